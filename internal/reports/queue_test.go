package reports

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dentalray/pmsbridge/internal/schema"
)

func testQueue(t *testing.T, fileName string) (*Queue, *Pipeline, string) {
	t.Helper()
	p, s, path := testPipeline(t, fileName)
	q := NewQueue(p, NewCleanup(s, testLogger()), testLogger())
	q.SetItemPause(time.Millisecond)
	return q, p, path
}

// TestEnqueue_Deduplicates rejects a path already waiting in the
// queue.
func TestEnqueue_Deduplicates(t *testing.T) {
	q, _, path := testQueue(t, "DentalRay_Report_John_Smith.pdf")

	if !q.Enqueue(path) {
		t.Fatal("first Enqueue() should accept the path")
	}
	if q.Enqueue(path) {
		t.Error("second Enqueue() should reject the duplicate")
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want 1", q.Len())
	}
}

// TestDrainAll_ProcessesInOrder drains two files and leaves both
// SUCCESS.
func TestDrainAll_ProcessesInOrder(t *testing.T) {
	q, p, first := testQueue(t, "DentalRay_Report_John_Smith.pdf")

	second := filepath.Join(filepath.Dir(first), "DentalRay_Report_Jane_Smith.pdf")
	if err := os.WriteFile(second, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}

	q.Enqueue(first)
	q.Enqueue(second)
	q.DrainAll(context.Background())

	if q.Len() != 0 {
		t.Errorf("queue should be empty after drain, has %d", q.Len())
	}
	for _, path := range []string{first, second} {
		report, err := p.store.LatestReportForPath(context.Background(), path)
		if err != nil {
			t.Fatalf("no record for %s: %v", path, err)
		}
		if report.Status != schema.StatusSuccess {
			t.Errorf("%s status = %s, want %s", filepath.Base(path), report.Status, schema.StatusSuccess)
		}
	}
}

// TestDrainAll_SkipsMissingFile drops a queued path whose file vanished
// before processing, without creating a record.
func TestDrainAll_SkipsMissingFile(t *testing.T) {
	q, p, path := testQueue(t, "DentalRay_Report_John_Smith.pdf")

	q.Enqueue(path)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	q.DrainAll(context.Background())

	if _, err := p.store.LatestReportForPath(context.Background(), path); err == nil {
		t.Error("a vanished file should not produce a report record")
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty, has %d", q.Len())
	}
}

// TestDrainAll_SingleFlight lets only one concurrent drain run; the
// others return immediately without touching the queue.
func TestDrainAll_SingleFlight(t *testing.T) {
	q, _, path := testQueue(t, "DentalRay_Report_John_Smith.pdf")
	q.SetItemPause(50 * time.Millisecond)
	q.Enqueue(path)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.DrainAll(context.Background())
		}()
	}
	wg.Wait()

	if q.Draining() {
		t.Error("no drain should be running after all calls returned")
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty, has %d", q.Len())
	}
}

// TestDrainAll_CancelledContext stops between items and leaves the
// remainder queued.
func TestDrainAll_CancelledContext(t *testing.T) {
	q, _, path := testQueue(t, "DentalRay_Report_John_Smith.pdf")
	q.Enqueue(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.DrainAll(ctx)

	if q.Len() != 1 {
		t.Errorf("cancelled drain should leave the item queued, length = %d", q.Len())
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("cancelled drain should not touch the file")
	}
}

// TestEnqueue_AfterDrainAccepted re-accepts a path once its previous
// run has fully finished.
func TestEnqueue_AfterDrainAccepted(t *testing.T) {
	q, _, path := testQueue(t, "DentalRay_Report_John_Smith.pdf")

	q.Enqueue(path)
	q.DrainAll(context.Background())

	if !q.Enqueue(path) {
		t.Error("Enqueue() should accept the path again after the drain finished")
	}
}
