package reports

import (
	"context"
	"log"
	"os"

	"github.com/dentalray/pmsbridge/internal/store"
)

// Cleanup removes source files left behind by reports that already
// reached SUCCESS. Normally the pipeline deletes the source itself;
// this worker catches files that survived a locked handle or a crash
// between the copy and the delete.
type Cleanup struct {
	store  *store.Store
	logger *log.Logger
}

// NewCleanup creates a cleanup worker over the given store.
func NewCleanup(s *store.Store, logger *log.Logger) *Cleanup {
	return &Cleanup{store: s, logger: logger}
}

// Run deletes every still-present source file of a succeeded report.
// A missing file is the expected case and is skipped silently; a
// failed delete is logged and retried on the next run.
func (c *Cleanup) Run(ctx context.Context) {
	paths, err := c.store.SucceededReportPaths(ctx)
	if err != nil {
		c.logger.Printf("Cleanup: could not list succeeded reports: %v", err)
		return
	}

	removed := 0
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := os.Remove(path); err != nil {
			c.logger.Printf("Cleanup: failed to delete %s: %v", path, err)
			continue
		}
		c.logger.Printf("Cleanup: deleted leftover report file: %s", path)
		removed++
	}

	if removed > 0 {
		c.logger.Printf("Cleanup: removed %d leftover report file(s)", removed)
	}
}
