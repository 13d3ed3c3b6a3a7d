package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

// auditRecord is the per-claim processing log written when a claim reaches a
// terminal state. It flattens the claim into the sections an auditor cares
// about rather than dumping the raw checkpoint record.
type auditRecord struct {
	ClaimID             string `json:"claim_id"`
	ProcessingStarted   string `json:"processing_started"`
	ProcessingCompleted string `json:"processing_completed"`

	Email struct {
		ID      string `json:"id"`
		From    string `json:"from"`
		Subject string `json:"subject"`
		Date    string `json:"date"`
	} `json:"email"`

	Triage struct {
		Result     string  `json:"result"`
		Reason     string  `json:"reason"`
		Confidence float64 `json:"confidence"`
	} `json:"triage"`

	Extraction struct {
		Confidence      float64  `json:"confidence"`
		ProductDetected *string  `json:"product_detected"`
		MissingFields   []string `json:"missing_fields"`
	} `json:"extraction"`

	ProductMatch struct {
		ProductID       *string `json:"product_id"`
		ProductName     *string `json:"product_name"`
		PolicyFile      *string `json:"policy_file"`
		MatchConfidence float64 `json:"match_confidence"`
		SelectionReason string  `json:"selection_reason"`
	} `json:"product_match"`

	Policy struct {
		PolicyID      *string `json:"policy_id"`
		PolicyVersion *string `json:"policy_version"`
		PolicyFile    *string `json:"policy_file"`
		ExcerptCount  int     `json:"excerpt_count"`
	} `json:"policy"`

	Analysis struct {
		Recommendation string   `json:"recommendation"`
		Confidence     float64  `json:"confidence"`
		WarrantyValid  *bool    `json:"warranty_valid"`
		Exclusions     []string `json:"exclusions"`
	} `json:"analysis"`

	Model string `json:"model,omitempty"`

	HumanReview struct {
		Decision  string `json:"decision"`
		Reviewer  string `json:"reviewer"`
		Notes     string `json:"notes"`
		Timestamp string `json:"timestamp"`
	} `json:"human_review"`

	Outputs struct {
		ReviewPacket         string `json:"review_packet,omitempty"`
		CustomerEmail        string `json:"customer_email,omitempty"`
		ReturnLabel          string `json:"return_label,omitempty"`
		LabelAttachedToEmail bool   `json:"label_attached_to_email"`
		EmailSent            bool   `json:"email_sent"`
		DispatchStatus       string `json:"dispatch_status,omitempty"`
	} `json:"outputs"`

	Status struct {
		FinalStatus string `json:"final_status"`
		Error       string `json:"error,omitempty"`
	} `json:"status"`
}

// WriteAudit writes the JSON audit log for a claim to
// outbox/logs/<claim-id>.json and returns the path.
func (r *Renderer) WriteAudit(claim *models.Claim) (string, error) {
	var rec auditRecord
	rec.ClaimID = claim.ClaimID
	rec.ProcessingStarted = claim.ProcessingStarted.Format("2006-01-02T15:04:05Z07:00")
	completed := r.now()
	if claim.ProcessingCompleted != nil {
		completed = *claim.ProcessingCompleted
	}
	rec.ProcessingCompleted = completed.Format("2006-01-02T15:04:05Z07:00")

	rec.Email.ID = claim.Message.ID
	rec.Email.From = claim.Message.From
	rec.Email.Subject = claim.Message.Subject
	rec.Email.Date = claim.Message.Date

	if t := claim.Triage; t != nil {
		rec.Triage.Result = string(t.Result)
		rec.Triage.Reason = t.Reason
		rec.Triage.Confidence = t.Confidence
	}
	if ext := claim.Extracted; ext != nil {
		rec.Extraction.Confidence = claim.ExtractionConfidence
		rec.Extraction.ProductDetected = ext.ProductName
		rec.Extraction.MissingFields = ext.MissingFields
	}
	if res := claim.Resolution; res != nil {
		rec.ProductMatch.ProductID = res.ProductID
		rec.ProductMatch.ProductName = res.ProductName
		rec.ProductMatch.PolicyFile = res.PolicyFile
		rec.ProductMatch.MatchConfidence = res.MatchConfidence
		rec.ProductMatch.SelectionReason = res.Reason
		rec.Policy.PolicyID = res.PolicyID
		rec.Policy.PolicyVersion = res.PolicyVersion
		rec.Policy.PolicyFile = res.PolicyFile
	}
	rec.Policy.ExcerptCount = len(claim.Excerpts)
	if a := claim.Analysis; a != nil {
		rec.Analysis.Recommendation = string(a.Recommendation)
		rec.Analysis.Confidence = a.Confidence
		rec.Analysis.WarrantyValid = a.WarrantyValid
		rec.Analysis.Exclusions = a.ExclusionsTriggers
	}
	rec.Model = claim.Model
	if h := claim.Human; h != nil {
		rec.HumanReview.Decision = string(h.Decision)
		rec.HumanReview.Reviewer = h.Reviewer
		rec.HumanReview.Notes = h.Notes
		rec.HumanReview.Timestamp = h.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	}

	out := claim.Outputs
	rec.Outputs.ReviewPacket = out.ReviewPacketPath
	rec.Outputs.CustomerEmail = out.ResponsePath
	rec.Outputs.ReturnLabel = out.ReturnLabelPath
	rec.Outputs.LabelAttachedToEmail = claim.Human != nil &&
		claim.Human.Decision == models.RecommendApprove && out.ReturnLabelPath != ""
	rec.Outputs.EmailSent = out.EmailSent
	rec.Outputs.DispatchStatus = out.DispatchStatus

	rec.Status.FinalStatus = string(claim.Status)
	rec.Status.Error = claim.ErrorMessage

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit log: %w", err)
	}
	return r.write(logsSubdir, claim.ClaimID+".json", string(data)+"\n")
}

// WriteSummary writes the short human-readable completion summary to
// outbox/<claim-id>_summary.txt and returns the path.
func (r *Renderer) WriteSummary(claim *models.Claim, auditPath string) (string, error) {
	decision := "N/A"
	if claim.Human != nil {
		decision = string(claim.Human.Decision)
	}

	lines := []string{
		fmt.Sprintf("Claim Processing Summary: %s", claim.ClaimID),
		strings.Repeat("=", 50),
		"",
		fmt.Sprintf("Status: %s", claim.Status),
		fmt.Sprintf("Decision: %s", decision),
		"",
		"Generated Files:",
	}
	if p := claim.Outputs.ReviewPacketPath; p != "" {
		lines = append(lines, "  - Review Packet: "+p)
	}
	if p := claim.Outputs.ResponsePath; p != "" {
		lines = append(lines, "  - Customer Email: "+p)
	}
	if p := claim.Outputs.ReturnLabelPath; p != "" {
		lines = append(lines, "  - Return Label: "+p)
	}
	lines = append(lines,
		"  - Audit Log: "+auditPath,
		"",
		"Processed: "+r.now().Format("2006-01-02 15:04:05"),
	)

	return r.write("", claim.ClaimID+"_summary.txt", strings.Join(lines, "\n")+"\n")
}
