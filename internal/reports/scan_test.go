package reports

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestScanInbox_OnlyPDFsOldestFirst lists PDFs by modification time
// and ignores everything else.
func TestScanInbox_OnlyPDFsOldestFirst(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "DentalRay_Report_Jane_Doe.pdf")
	newer := filepath.Join(dir, "DentalRay_Report_John_Smith.PDF")
	for _, f := range []string{older, newer, filepath.Join(dir, "notes.txt")} {
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "archive.pdf"), 0755); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	if err := os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, now, now); err != nil {
		t.Fatal(err)
	}

	paths, err := ScanInbox(dir)
	if err != nil {
		t.Fatalf("ScanInbox() failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("ScanInbox() returned %d paths, want 2: %v", len(paths), paths)
	}
	if paths[0] != older || paths[1] != newer {
		t.Errorf("ScanInbox() order = %v, want oldest first", paths)
	}
}

// TestScanInbox_MissingDir treats an absent inbox as empty.
func TestScanInbox_MissingDir(t *testing.T) {
	paths, err := ScanInbox(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("ScanInbox() failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("ScanInbox() = %v, want empty", paths)
	}
}

// TestWaitReady_StableFile returns true for a file that is no longer
// growing.
func TestWaitReady_StableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "done.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 complete"), 0644); err != nil {
		t.Fatal(err)
	}

	if !WaitReady(context.Background(), path, 5*time.Second) {
		t.Error("WaitReady() should report a stable file ready")
	}
}

// TestWaitReady_MissingFile returns false when the file is gone.
func TestWaitReady_MissingFile(t *testing.T) {
	if WaitReady(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), time.Second) {
		t.Error("WaitReady() should fail for a missing file")
	}
}

// TestWaitReady_CancelledContext returns false promptly on
// cancellation.
func TestWaitReady_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.pdf")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if WaitReady(ctx, path, 10*time.Second) {
		t.Error("WaitReady() should fail under a cancelled context")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("WaitReady() should return promptly after cancellation")
	}
}
