package reports

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// readyCheckInterval is how often WaitReady samples the file size
// while an upload is still being written.
const readyCheckInterval = 500 * time.Millisecond

// IsPDF reports whether the path names a PDF file, case-insensitively.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ScanInbox lists the PDF files sitting in dir, oldest first.
// A missing directory yields an empty list, not an error; the inbox
// may be created lazily by the uploader.
func ScanInbox(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type candidate struct {
		path    string
		modTime time.Time
	}

	var found []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !IsPDF(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime.Before(found[j].modTime)
	})

	paths := make([]string, 0, len(found))
	for _, c := range found {
		paths = append(paths, c.path)
	}
	return paths, nil
}

// WaitReady blocks until the file's size has been stable for one
// sampling interval, which is how we detect that the uploader has
// finished writing. Returns false if the file disappears, never
// stabilizes within maxWait, or the context is cancelled.
func WaitReady(ctx context.Context, path string, maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	lastSize := int64(-1)

	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}

		if info.Size() == lastSize && info.Size() > 0 {
			return true
		}
		lastSize = info.Size()

		select {
		case <-ctx.Done():
			return false
		case <-time.After(readyCheckInterval):
		}
	}

	return false
}
