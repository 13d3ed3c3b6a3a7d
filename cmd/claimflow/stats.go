package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show decision statistics across finished claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.store.GetStats()
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}

		fmt.Printf("Finished claims: %d\n", stats.Total)
		fmt.Printf("  Approved:  %d\n", stats.Approved)
		fmt.Printf("  Rejected:  %d\n", stats.Rejected)
		fmt.Printf("  Need info: %d\n", stats.NeedInfo)
		return nil
	},
}
