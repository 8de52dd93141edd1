package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dentalray/pmsbridge/internal/store"
	"github.com/dentalray/pmsbridge/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one patient sync cycle and exit",
	Long: `Run a single incremental sync cycle against the PMS.

This fetches patients modified since the stored cursor, imports the
ones not yet known locally along with their insurance, and advances
the cursor. Useful for cron-driven setups and for testing the PMS
connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		provider, err := a.provider()
		if err != nil {
			return err
		}

		engine := syncer.New(a.store, provider, a.cfg.ExportStart(), a.sink.Logger("sync"))

		ctx := context.Background()
		start := time.Now()
		result, err := engine.RunCycle(ctx)

		if recErr := a.store.SetConfigTime(ctx, store.KeyLastSyncTime, time.Now()); recErr != nil {
			fmt.Printf("Warning: failed to record sync time: %v\n", recErr)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Sync complete in %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Fetched:   %d\n", result.Fetched)
		fmt.Printf("   Imported:  %d\n", result.Imported)
		fmt.Printf("   Insurance: %d plan(s), %d fetch failure(s)\n",
			result.InsurancePlans, result.InsuranceFailures)
		return nil
	},
}
