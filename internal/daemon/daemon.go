// Package daemon runs the long-lived agent loop: it watches the report
// inbox for new PDF uploads, feeds them through the import queue, and
// runs the patient sync engine on a fixed interval. Everything shuts
// down gracefully on context cancellation.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dentalray/pmsbridge/internal/config"
	"github.com/dentalray/pmsbridge/internal/reports"
	"github.com/dentalray/pmsbridge/internal/store"
	"github.com/dentalray/pmsbridge/internal/syncer"
)

// readyTimeout bounds how long the daemon waits for an uploading file
// to stop growing before giving up on it. A stuck upload is retried by
// the periodic rescan.
const readyTimeout = 2 * time.Minute

// Daemon wires the inbox watcher, the report queue and the sync engine
// into one supervised process.
type Daemon struct {
	cfg    *config.Config
	store  *store.Store
	engine *syncer.Engine
	queue  *reports.Queue
	logger *log.Logger

	watcher *fsnotify.Watcher

	// drainKick wakes the drain loop; buffered so a kick during a
	// running drain schedules exactly one follow-up pass.
	drainKick chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon. Start() begins watching and syncing.
func New(cfg *config.Config, s *store.Store, engine *syncer.Engine, queue *reports.Queue, logger *log.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		cfg:       cfg,
		store:     s,
		engine:    engine,
		queue:     queue,
		logger:    logger,
		watcher:   watcher,
		drainKick: make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Scan the inbox and queue any PDFs already waiting
// 2. Watch the inbox for new uploads
// 3. Rescan periodically to catch events the watcher missed
// 4. Run the patient sync engine on its interval
//
// This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Printf("Starting agent (provider: %s)", d.cfg.Provider)

	if err := os.MkdirAll(d.cfg.ReportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create reports inbox: %w", err)
	}
	if err := d.watcher.Add(d.cfg.ReportsDir); err != nil {
		return fmt.Errorf("failed to watch reports inbox: %w", err)
	}
	d.logger.Printf("Watching reports inbox: %s", d.cfg.ReportsDir)

	// Queue whatever was uploaded while the agent was down.
	d.scanInbox()

	d.wg.Add(4)
	go d.watchFileEvents()
	go d.drainLoop()
	go d.rescanLoop()
	go d.syncLoop()

	select {
	case <-ctx.Done():
		d.logger.Printf("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon and waits for in-flight work.
func (d *Daemon) Stop() error {
	d.logger.Printf("Stopping agent")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.logger.Printf("Agent stopped")
	return nil
}

// scanInbox queues every PDF currently in the inbox and kicks a drain
// if anything was new.
func (d *Daemon) scanInbox() {
	paths, err := reports.ScanInbox(d.cfg.ReportsDir)
	if err != nil {
		d.logger.Printf("Error scanning reports inbox: %v", err)
		return
	}

	queued := 0
	for _, path := range paths {
		if d.queue.Enqueue(path) {
			queued++
		}
	}
	if queued > 0 {
		d.logger.Printf("Queued %d report(s) from inbox scan", queued)
		d.kickDrain()
	}
}

// watchFileEvents reacts to inbox file system events. A new PDF is
// queued once its upload has settled.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !reports.IsPDF(event.Name) {
				continue
			}

			d.logger.Printf("File event: %s %s", event.Op, event.Name)

			// Wait out the upload without blocking the event loop.
			d.wg.Add(1)
			go func(path string) {
				defer d.wg.Done()
				if !reports.WaitReady(d.ctx, path, readyTimeout) {
					d.logger.Printf("File never settled, leaving for rescan: %s", path)
					return
				}
				if d.queue.Enqueue(path) {
					d.kickDrain()
				}
			}(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Printf("Watcher error: %v", err)
		}
	}
}

// kickDrain wakes the drain loop. A kick while a drain runs is
// coalesced into one follow-up drain.
func (d *Daemon) kickDrain() {
	select {
	case d.drainKick <- struct{}{}:
	default:
	}
}

// drainLoop serializes queue drains on a single goroutine.
func (d *Daemon) drainLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.drainKick:
			d.queue.DrainAll(d.ctx)
		}
	}
}

// rescanLoop periodically re-scans the inbox. The queue deduplicates,
// so a rescan only queues files the watcher missed or that never
// settled in time.
func (d *Daemon) rescanLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.RescanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.scanInbox()
		}
	}
}

// syncLoop runs the patient sync engine: once after the startup delay,
// then on every interval tick.
func (d *Daemon) syncLoop() {
	defer d.wg.Done()

	if d.engine == nil {
		d.logger.Printf("Patient sync disabled (no provider)")
		return
	}

	d.logger.Printf("Patient sync starts in %s, then every %s",
		d.cfg.StartupDelay(), d.cfg.SyncInterval())

	select {
	case <-d.ctx.Done():
		return
	case <-time.After(d.cfg.StartupDelay()):
	}
	d.runSyncCycle()

	ticker := time.NewTicker(d.cfg.SyncInterval())
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.runSyncCycle()
		}
	}
}

// runSyncCycle runs one cycle and records the attempt time. Cycle
// errors are logged, never fatal; the next tick tries again.
func (d *Daemon) runSyncCycle() {
	if _, err := d.engine.RunCycle(d.ctx); err != nil {
		d.logger.Printf("Sync cycle failed: %v", err)
	}
	if err := d.store.SetConfigTime(d.ctx, store.KeyLastSyncTime, time.Now()); err != nil {
		d.logger.Printf("Failed to record sync time: %v", err)
	}
}
