package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hairtech/claimflow/internal/render"
)

var labelCmd = &cobra.Command{
	Use:   "label <claim-id>",
	Short: "Generate the return shipping label for an approved claim",
	Long: `Generate a return shipping label for an approved claim waiting at the
dispatch gate. The drafted email is updated to reference the label.

Approved claims cannot be sent until a label exists. Labels are only
issued for APPROVE decisions.`,
	Args: cobra.ExactArgs(1),
	RunE: runLabel,
}

func runLabel(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	claim, err := a.pipeline.GenerateLabel(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, render.ErrNotApproved) {
			return fmt.Errorf("claim %s is not approved; labels are only issued for APPROVE decisions", args[0])
		}
		return err
	}

	fmt.Printf("%s Return label: %s\n", color.GreenString("✓"), claim.Outputs.ReturnLabelPath)
	fmt.Printf("  Send the claim with: claimflow send %s\n", claim.ClaimID)
	return nil
}
