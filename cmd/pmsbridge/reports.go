package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dentalray/pmsbridge/internal/reports"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Process all reports waiting in the inbox and exit",
	Long: `Drain the reports inbox once.

Every PDF in the inbox is queued and run through the import pipeline:
a record is created, the patient name extracted, the file copied into
the patient's PMS image folder, and the source deleted on success.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		queue, err := a.reportQueue()
		if err != nil {
			return err
		}

		paths, err := reports.ScanInbox(a.cfg.ReportsDir)
		if err != nil {
			return fmt.Errorf("failed to scan reports inbox: %w", err)
		}
		if len(paths) == 0 {
			fmt.Printf("No reports waiting in %s\n", a.cfg.ReportsDir)
			return nil
		}

		for _, path := range paths {
			queue.Enqueue(path)
		}

		ctx := context.Background()
		queue.DrainAll(ctx)

		counts, err := a.store.ReportCountsByStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Processed %d report(s)\n", len(paths))
		for status, count := range counts {
			fmt.Printf("   %-10s %d\n", status, count)
		}
		return nil
	},
}
