package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "claimflow",
	Short: "Warranty claim processing pipeline",
	Long: `Claimflow processes inbound warranty claim emails through triage,
extraction, policy resolution, and analysis, then pauses for human review
before any customer-facing output leaves the system.

A claim moves through two gates:
  1. Review: a human approves, rejects, or requests more information.
  2. Dispatch: a human confirms the drafted email before it is sent.

Every stage transition is checkpointed, so a claim can be resumed from
exactly where it stopped after a crash or restart.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verboseLogging, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
