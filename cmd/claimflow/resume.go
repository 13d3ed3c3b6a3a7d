package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [claim-id]",
	Short: "Resume an in-flight claim from its checkpoint",
	Long: `Re-drive a checkpointed claim without new input. The claim runs forward
until it finishes or parks at the next gate.

Without arguments, lists the claims that currently have checkpoints.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		return listResumable(a)
	}

	claim, intr, err := a.pipeline.Advance(context.Background(), args[0], nil)
	if err != nil {
		return err
	}
	printOutcome(claim, intr)
	return nil
}

func listResumable(a *app) error {
	ids, err := a.store.ListCheckpointIDs()
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No in-flight claims.")
		return nil
	}

	sort.Strings(ids)
	fmt.Println("In-flight claims:")
	for _, id := range ids {
		cp, err := a.store.GetCheckpoint(id)
		if err != nil || cp == nil {
			continue
		}
		fmt.Printf("  %s  next=%s  updated=%s\n", id, cp.NextStage, cp.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
