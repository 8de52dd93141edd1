package main

import (
	"context"
	"fmt"

	"github.com/dentalray/pmsbridge/internal/config"
	"github.com/dentalray/pmsbridge/internal/folders"
	"github.com/dentalray/pmsbridge/internal/logging"
	"github.com/dentalray/pmsbridge/internal/pms"
	"github.com/dentalray/pmsbridge/internal/reports"
	"github.com/dentalray/pmsbridge/internal/store"
)

// app bundles the pieces every subcommand needs: loaded config, the
// open database and the shared log sink.
type app struct {
	cfg   *config.Config
	store *store.Store
	sink  *logging.Sink
}

// newApp loads the config, opens the log sink and the database, and
// makes sure the schema exists. withFileLog selects the rotating file
// sink used by the long-running agent; one-shot commands log to stderr
// only.
func newApp(withFileLog bool) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	sink := logging.NewStderrSink()
	if withFileLog {
		sink = logging.NewSink(cfg.LogPath())
	}

	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := s.InitSchema(context.Background()); err != nil {
		s.Close()
		sink.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &app{cfg: cfg, store: s, sink: sink}, nil
}

// Close releases the database and the log sink.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.sink != nil {
		a.sink.Close()
	}
}

// provider constructs the configured PMS provider.
func (a *app) provider() (pms.Provider, error) {
	return pms.New(a.cfg, a.sink.Logger("pms"))
}

// reportQueue wires the resolver, pipeline, cleanup worker and queue
// for the configured provider.
func (a *app) reportQueue() (*reports.Queue, error) {
	providerType, err := pms.ParseType(a.cfg.Provider)
	if err != nil {
		return nil, err
	}

	var resolver *folders.Resolver
	if providerType == pms.TypeOpenDental {
		resolver = folders.New(a.cfg.OpenDental.ImagePath, a.sink.Logger("folders"))
	}

	pipeline := reports.NewPipeline(a.store, providerType, resolver, a.sink.Logger("reports"))
	cleanup := reports.NewCleanup(a.store, a.sink.Logger("cleanup"))
	return reports.NewQueue(pipeline, cleanup, a.sink.Logger("reports")), nil
}
