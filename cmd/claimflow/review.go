package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hairtech/claimflow/internal/pipeline"
	"github.com/hairtech/claimflow/pkg/models"
)

var (
	reviewDecision string
	reviewNotes    string
	reviewReviewer string
)

var reviewCmd = &cobra.Command{
	Use:   "review <claim-id>",
	Short: "Record a human review decision for a claim",
	Long: `Record the review decision for a claim parked at the review gate and
advance it to the response draft.

The decision must be APPROVE, REJECT, or NEED_INFO. The claim then stops
at the dispatch gate with a drafted customer email.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewDecision, "decision", "", "APPROVE, REJECT, or NEED_INFO (required)")
	reviewCmd.Flags().StringVar(&reviewNotes, "notes", "", "Reviewer notes for the audit record")
	reviewCmd.Flags().StringVar(&reviewReviewer, "reviewer", "cli", "Reviewer identity")
	reviewCmd.MarkFlagRequired("decision")
}

func runReview(cmd *cobra.Command, args []string) error {
	decision := models.Recommendation(strings.ToUpper(strings.TrimSpace(reviewDecision)))
	if !decision.Valid() {
		return fmt.Errorf("invalid decision %q: must be APPROVE, REJECT, or NEED_INFO", reviewDecision)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	claim, intr, err := a.pipeline.Advance(context.Background(), args[0], &pipeline.ResumeInput{
		Decision: &models.HumanDecision{
			Decision: decision,
			Notes:    reviewNotes,
			Reviewer: reviewReviewer,
		},
	})
	if err != nil {
		return err
	}

	printOutcome(claim, intr)
	return nil
}
