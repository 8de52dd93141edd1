package reports

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// defaultItemPause is the pause between processed files during a
// drain, keeping the file system and database breathing.
const defaultItemPause = 500 * time.Millisecond

// Queue is the deduplicating, single-flight queue feeding the
// pipeline.
//
// A path lives in exactly one of two disjoint sets: pending (enqueued,
// not yet picked up) or in-flight (being processed). Enqueue is a
// no-op while the path is in either set, which guarantees at most one
// concurrent run per path. Draining is single-flight: a drain
// triggered while one is running is a logged no-op.
type Queue struct {
	pipeline *Pipeline
	cleanup  *Cleanup
	logger   *log.Logger

	mu         sync.Mutex
	pending    []string
	pendingSet map[string]bool
	inflight   map[string]bool

	draining  atomic.Bool
	itemPause time.Duration
}

// NewQueue creates a queue draining into the given pipeline. The
// cleanup worker, when non-nil, runs once at the start of every drain.
func NewQueue(pipeline *Pipeline, cleanup *Cleanup, logger *log.Logger) *Queue {
	return &Queue{
		pipeline:   pipeline,
		cleanup:    cleanup,
		logger:     logger,
		pendingSet: make(map[string]bool),
		inflight:   make(map[string]bool),
		itemPause:  defaultItemPause,
	}
}

// SetItemPause overrides the pause between drained items (tests).
func (q *Queue) SetItemPause(d time.Duration) {
	q.itemPause = d
}

// Enqueue adds the path unless it is already pending or in flight.
// Returns true when the path was newly added.
func (q *Queue) Enqueue(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pendingSet[path] || q.inflight[path] {
		return false
	}

	q.pending = append(q.pending, path)
	q.pendingSet[path] = true
	q.logger.Printf("Report added to queue: %s. Queue size: %d", path, len(q.pending))
	return true
}

// Len returns the number of pending paths.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// dequeue pops the oldest pending path and marks it in-flight in the
// same critical section, so the path is never in both sets.
func (q *Queue) dequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return "", false
	}

	path := q.pending[0]
	q.pending = q.pending[1:]
	delete(q.pendingSet, path)
	q.inflight[path] = true
	return path, true
}

// release removes a path from the in-flight set once its run ends,
// whatever the outcome.
func (q *Queue) release(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, path)
}

// DrainAll processes every pending path, one at a time, FIFO.
//
// Single-flight: a concurrent call while a drain is running returns
// immediately. Cancellation is observed between items, never mid-item.
func (q *Queue) DrainAll(ctx context.Context) {
	if !q.draining.CompareAndSwap(false, true) {
		q.logger.Printf("Report queue already draining")
		return
	}
	defer q.draining.Store(false)

	if q.cleanup != nil {
		q.cleanup.Run(ctx)
	}

	for {
		if ctx.Err() != nil {
			q.logger.Printf("Drain cancelled with %d reports pending", q.Len())
			return
		}

		path, ok := q.dequeue()
		if !ok {
			return
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			q.logger.Printf("Report file not found, skipping: %s", path)
			q.release(path)
			continue
		}

		if err := q.pipeline.Process(ctx, path); err != nil {
			q.logger.Printf("Error processing report %s: %v", path, err)
		}
		q.release(path)

		// Small pause between files, interruptible.
		select {
		case <-ctx.Done():
		case <-time.After(q.itemPause):
		}
	}
}

// Draining reports whether a drain is currently running.
func (q *Queue) Draining() bool {
	return q.draining.Load()
}
