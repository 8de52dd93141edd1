package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dentalray/pmsbridge/internal/config"
	"github.com/dentalray/pmsbridge/internal/folders"
	"github.com/dentalray/pmsbridge/internal/pms"
	"github.com/dentalray/pmsbridge/internal/reports"
	"github.com/dentalray/pmsbridge/internal/schema"
	"github.com/dentalray/pmsbridge/internal/store"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// testDaemon builds a daemon over temp dirs with patient sync
// disabled and a fast rescan.
func testDaemon(t *testing.T) (*Daemon, *store.Store, string) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	imageRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(imageRoot, "S"), 0755); err != nil {
		t.Fatal(err)
	}

	inbox := filepath.Join(t.TempDir(), "inbox")
	cfg := &config.Config{
		Provider:              "opendental",
		ReportsDir:            inbox,
		SyncIntervalMinutes:   60,
		StartupDelaySeconds:   0,
		RescanIntervalSeconds: 1,
	}

	resolver := folders.New(imageRoot, testLogger())
	pipeline := reports.NewPipeline(s, pms.TypeOpenDental, resolver, testLogger())
	queue := reports.NewQueue(pipeline, reports.NewCleanup(s, testLogger()), testLogger())
	queue.SetItemPause(time.Millisecond)

	d, err := New(cfg, s, nil, queue, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return d, s, inbox
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil, nil, nil, testLogger()); err == nil {
		t.Error("New() should reject a nil config")
	}
	if _, err := New(&config.Config{}, nil, nil, nil, testLogger()); err == nil {
		t.Error("New() should reject a nil store")
	}
}

// TestStart_ProcessesPreexistingReport imports a PDF that was already
// sitting in the inbox when the agent started.
func TestStart_ProcessesPreexistingReport(t *testing.T) {
	d, s, inbox := testDaemon(t)

	if err := os.MkdirAll(inbox, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(inbox, "DentalRay_Report_John_Smith.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	// Wait for the startup scan and drain to finish the import.
	deadline := time.Now().Add(10 * time.Second)
	var report *schema.Report
	for time.Now().Before(deadline) {
		r, err := s.LatestReportForPath(context.Background(), path)
		if err == nil && r.Status.Terminal() {
			report = r
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	if report == nil {
		t.Fatal("report was never processed")
	}
	if report.Status != schema.StatusSuccess {
		t.Errorf("status = %s, want %s (error: %s)", report.Status, schema.StatusSuccess, report.ErrorMessage)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("source file should be gone after a successful import")
	}
}

// TestStart_PicksUpNewFile drops a file after startup; the watcher or
// the periodic rescan must find and import it.
func TestStart_PicksUpNewFile(t *testing.T) {
	d, s, inbox := testDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	// Give the watcher a moment, then drop the file.
	time.Sleep(200 * time.Millisecond)
	path := filepath.Join(inbox, "DentalRay_Report_Jane_Smith.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(15 * time.Second)
	var report *schema.Report
	for time.Now().Before(deadline) {
		r, err := s.LatestReportForPath(context.Background(), path)
		if err == nil && r.Status.Terminal() {
			report = r
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	if report == nil {
		t.Fatal("report was never processed")
	}
	if report.Status != schema.StatusSuccess {
		t.Errorf("status = %s, want %s (error: %s)", report.Status, schema.StatusSuccess, report.ErrorMessage)
	}
}

// TestStop_IsGraceful cancels immediately after start and expects a
// clean return.
func TestStop_IsGraceful(t *testing.T) {
	d, _, _ := testDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down in time")
	}
}
