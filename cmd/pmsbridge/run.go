package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dentalray/pmsbridge/internal/daemon"
	"github.com/dentalray/pmsbridge/internal/syncer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent (watch reports, sync patients)",
	Long: `Run the long-lived integration agent.

The agent:
  1. Watches the reports inbox and imports new PDFs into the PMS
  2. Re-scans the inbox periodically for missed files
  3. Syncs new patients and insurance from the PMS on an interval
  4. Shuts down cleanly on SIGINT/SIGTERM`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		provider, err := a.provider()
		if err != nil {
			return err
		}

		queue, err := a.reportQueue()
		if err != nil {
			return err
		}

		engine := syncer.New(a.store, provider, a.cfg.ExportStart(), a.sink.Logger("sync"))

		d, err := daemon.New(a.cfg, a.store, engine, queue, a.sink.Logger("daemon"))
		if err != nil {
			return fmt.Errorf("failed to create daemon: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return d.Start(ctx)
	},
}
