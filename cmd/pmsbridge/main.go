// pmsbridge is the DentalRay practice-management integration agent.
//
// It runs next to the practice's PMS, imports report PDFs dropped into
// a watched inbox, and keeps a local patient mirror in sync with the
// PMS over its REST API.
package main

import (
	"os"

	"github.com/spf13/cobra"

	// Register the PMS providers.
	_ "github.com/dentalray/pmsbridge/internal/pms/opendental"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "pmsbridge",
	Short: "DentalRay PMS integration agent",
	Long: `pmsbridge connects a dental practice's PMS to DentalRay.

It watches an inbox folder for report PDFs and files them into the
PMS image store, and it mirrors patient and insurance records into a
local database on an incremental sync schedule.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (default: ./pmsbridge.yaml)")
	rootCmd.AddCommand(runCmd, syncCmd, reportsCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
