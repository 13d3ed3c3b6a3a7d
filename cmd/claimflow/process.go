package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hairtech/claimflow/internal/pipeline"
	"github.com/hairtech/claimflow/pkg/models"
)

var processCmd = &cobra.Command{
	Use:   "process <email-id>",
	Short: "Process an inbound email through the claim pipeline",
	Long: `Load a message from the inbox and run it through triage, extraction,
policy resolution, retrieval, and analysis.

Claims stop at the review gate with a review packet in the outbox. Spam
and non-claim messages complete immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	msg, err := a.inbox.Load(args[0])
	if err != nil {
		return err
	}

	claim, intr, err := a.pipeline.Process(context.Background(), msg)
	if err != nil {
		if claim != nil {
			printOutcome(claim, intr)
		}
		return err
	}

	printOutcome(claim, intr)
	return nil
}

// printOutcome summarizes where a claim landed and what to do next.
func printOutcome(claim *models.Claim, intr pipeline.Interrupt) {
	fmt.Printf("Claim: %s\n", claim.ClaimID)
	fmt.Printf("  Status: %s\n", statusString(claim.Status))
	if claim.Triage != nil {
		fmt.Printf("  Triage: %s (%.2f) %s\n", claim.Triage.Result, claim.Triage.Confidence, claim.Triage.Reason)
	}
	if claim.Analysis != nil {
		fmt.Printf("  Recommendation: %s (%.0f%%)\n", claim.Analysis.Recommendation, claim.Analysis.Confidence*100)
	}
	if claim.Human != nil {
		fmt.Printf("  Decision: %s by %s\n", claim.Human.Decision, claim.Human.Reviewer)
	}
	if claim.ErrorMessage != "" {
		fmt.Printf("  Note: %s\n", claim.ErrorMessage)
	}
	printArtifacts(claim)

	switch intr {
	case pipeline.InterruptReview:
		fmt.Println()
		fmt.Printf("%s Awaiting human review. Decide with:\n", color.YellowString("●"))
		fmt.Printf("  claimflow review %s --decision APPROVE|REJECT|NEED_INFO\n", claim.ClaimID)
	case pipeline.InterruptDispatch:
		fmt.Println()
		fmt.Printf("%s Draft ready. Confirm sending with:\n", color.YellowString("●"))
		if claim.Human != nil && claim.Human.Decision == models.RecommendApprove && claim.Outputs.ReturnLabelPath == "" {
			fmt.Printf("  claimflow label %s   (required before send)\n", claim.ClaimID)
		}
		fmt.Printf("  claimflow send %s\n", claim.ClaimID)
	}
}

func printArtifacts(claim *models.Claim) {
	if claim.Outputs.ReviewPacketPath != "" {
		fmt.Printf("  Review packet: %s\n", claim.Outputs.ReviewPacketPath)
	}
	if claim.Outputs.ResponsePath != "" {
		fmt.Printf("  Response draft: %s\n", claim.Outputs.ResponsePath)
	}
	if claim.Outputs.ReturnLabelPath != "" {
		fmt.Printf("  Return label: %s\n", claim.Outputs.ReturnLabelPath)
	}
}

func statusString(s models.ClaimStatus) string {
	switch s {
	case models.StatusCompleted:
		return color.GreenString(string(s))
	case models.StatusError:
		return color.RedString(string(s))
	case models.StatusAwaitingReview, models.StatusAwaitingEmail:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}
