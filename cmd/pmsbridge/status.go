package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dentalray/pmsbridge/internal/schema"
	"github.com/dentalray/pmsbridge/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent database status",
	Long: `Display the current state of the local mirror.

Shows:
  - Database location and size
  - Patient and insurance counts
  - Report pipeline counts per status
  - Sync cursor and last sync attempt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()

		fmt.Printf("\nDatabase: %s", a.cfg.DatabasePath())
		if info, err := os.Stat(a.cfg.DatabasePath()); err == nil {
			fmt.Printf(" (%.1f KB)", float64(info.Size())/1024)
		}
		fmt.Println()

		patients, err := a.store.PatientCount(ctx)
		if err != nil {
			return err
		}
		insurance, err := a.store.InsuranceCount(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Patients:  %d\n", patients)
		fmt.Printf("Insurance: %d plan(s)\n", insurance)

		counts, err := a.store.ReportCountsByStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Reports:\n")
		for _, status := range []schema.ReportStatus{
			schema.StatusUploaded,
			schema.StatusProcessed,
			schema.StatusImported,
			schema.StatusSuccess,
			schema.StatusFailed,
		} {
			if n := counts[status]; n > 0 {
				fmt.Printf("   %-10s %d\n", status, n)
			}
		}

		printCursor := func(label, key string) {
			if t, ok, _ := a.store.GetConfigTime(ctx, key); ok {
				fmt.Printf("%s %s\n", label, t.Format("2006-01-02 15:04:05"))
			} else {
				fmt.Printf("%s never\n", label)
			}
		}
		printCursor("Last export:", store.KeyLastExportDate)
		printCursor("Last sync attempt:", store.KeyLastSyncTime)

		fmt.Println()
		return nil
	},
}
