package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hairtech/claimflow/internal/pipeline"
)

var sendCmd = &cobra.Command{
	Use:   "send <claim-id>",
	Short: "Confirm and dispatch the drafted customer email",
	Long: `Confirm the outbound email for a claim parked at the dispatch gate.

In manual mode the draft is recorded as handled without an SMTP delivery;
in smtp mode the email is sent. Either way the dispatch is recorded in the
ledger, so confirming the same claim twice never sends twice.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	claim, intr, err := a.pipeline.Advance(context.Background(), args[0], &pipeline.ResumeInput{ConfirmSend: true})
	if err != nil {
		if errors.Is(err, pipeline.ErrLabelRequired) {
			return fmt.Errorf("claim %s is approved but has no return label; run: claimflow label %s", args[0], args[0])
		}
		return err
	}

	printOutcome(claim, intr)
	return nil
}
