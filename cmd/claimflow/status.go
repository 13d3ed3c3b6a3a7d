package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/hairtech/claimflow/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [claim-id]",
	Short: "Show claim state",
	Long: `Display the state of a single claim, or an overview of all claims.

For a claim ID, shows its current stage, triage and analysis results, the
review decision if one was made, and the artifacts generated so far.
In-flight claims are read from their checkpoint; finished claims from the
audit store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		return showClaim(a, args[0])
	}
	return showOverview(a)
}

func showClaim(a *app, claimID string) error {
	cp, err := a.store.GetCheckpoint(claimID)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if cp != nil {
		fmt.Printf("Claim %s (in flight, next stage: %s)\n", claimID, cp.NextStage)
		displayClaim(cp.Record)
		return nil
	}

	claim, err := a.store.GetClaim(claimID)
	if err != nil {
		return fmt.Errorf("load claim: %w", err)
	}
	if claim == nil {
		fmt.Printf("No claim found with ID %s.\n", claimID)
		return nil
	}
	fmt.Printf("Claim %s (finished)\n", claimID)
	displayClaim(claim)
	return nil
}

func displayClaim(claim *models.Claim) {
	fmt.Printf("  Status: %s\n", statusString(claim.Status))
	fmt.Printf("  Message: %s from %s\n", claim.Message.ID, claim.Message.From)
	fmt.Printf("  Started: %s ago\n", formatDuration(time.Since(claim.ProcessingStarted)))
	if claim.Triage != nil {
		fmt.Printf("  Triage: %s (%.2f)\n", claim.Triage.Result, claim.Triage.Confidence)
	}
	if claim.Resolution != nil && claim.Resolution.ProductName != nil {
		fmt.Printf("  Product: %s\n", *claim.Resolution.ProductName)
	}
	if claim.Analysis != nil {
		fmt.Printf("  Recommendation: %s (%.0f%%)\n", claim.Analysis.Recommendation, claim.Analysis.Confidence*100)
	}
	if claim.Human != nil {
		fmt.Printf("  Decision: %s by %s at %s\n",
			claim.Human.Decision, claim.Human.Reviewer, claim.Human.Timestamp.Format("2006-01-02 15:04"))
	}
	if claim.Outputs.EmailSent {
		fmt.Printf("  Email: sent (%s)\n", claim.Outputs.DispatchStatus)
	}
	if claim.ErrorMessage != "" {
		fmt.Printf("  Note: %s\n", claim.ErrorMessage)
	}
	printArtifacts(claim)
}

func showOverview(a *app) error {
	inflight, err := a.store.ListCheckpointIDs()
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	finished, err := a.store.ListClaimIDs()
	if err != nil {
		return fmt.Errorf("list claims: %w", err)
	}

	if len(inflight) == 0 && len(finished) == 0 {
		fmt.Println("No claims yet. Run 'claimflow process <email-id>' to start.")
		return nil
	}

	if len(inflight) > 0 {
		sort.Strings(inflight)
		fmt.Printf("In flight (%d):\n", len(inflight))
		for _, id := range inflight {
			cp, err := a.store.GetCheckpoint(id)
			if err != nil || cp == nil {
				continue
			}
			fmt.Printf("  %s  %s  next=%s\n", id, cp.Record.Status, cp.NextStage)
		}
	}

	if len(finished) > 0 {
		sort.Strings(finished)
		fmt.Printf("Finished (%d):\n", len(finished))
		for _, id := range finished {
			decision, err := a.store.GetDecision(id)
			if err != nil {
				continue
			}
			if decision == "" {
				decision = "-"
			}
			fmt.Printf("  %s  %s\n", id, decision)
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
