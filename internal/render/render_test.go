package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hairtech/claimflow/internal/catalog"
	"github.com/hairtech/claimflow/pkg/models"
)

func strPtr(s string) *string { return &s }

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r := NewRenderer(t.TempDir(), nil)
	r.now = func() time.Time {
		return time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)
	}
	r.trackingSuffix = func() int { return 123456 }
	return r
}

func reviewedClaim(decision models.Recommendation) *models.Claim {
	return &models.Claim{
		ClaimID: "CLM-20250901-abc12345",
		Message: models.InboundMessage{
			ID:      "msg-001",
			From:    "jane@example.com",
			Subject: "Broken ProStyler after two months",
			Date:    "2025-08-28",
			Body:    "My ProStyler 3000 stopped heating up.",
		},
		Triage: &models.Triage{Result: models.TriageClaim, Reason: "Warranty claim", Confidence: 0.9},
		Extracted: &models.ExtractedFields{
			CustomerName:       strPtr("Jane Doe"),
			CustomerEmail:      strPtr("jane@example.com"),
			CustomerAddress:    strPtr("42 Elm Street\nSpringfield, IL 62704"),
			ProductName:        strPtr("ProStyler 3000"),
			ProductSerial:      strPtr("PS3K-2024-0042"),
			PurchaseDate:       strPtr("2025-07-01"),
			IssueDescription:   strPtr("The unit stopped heating up entirely after two months of normal use."),
			HasProofOfPurchase: true,
		},
		Resolution: &models.Resolution{
			ProductID:   strPtr("PS3K"),
			ProductName: strPtr("ProStyler 3000"),
			PolicyID:    strPtr("POL-PRO-V1"),
			PolicyFile:  strPtr("pro.txt"),
			Reason:      "Exact name match",
		},
		Analysis: &models.Analysis{
			Recommendation: models.RecommendApprove,
			Confidence:     0.85,
			Reasoning:      "Within warranty window with proof of purchase.",
		},
		Human: &models.HumanDecision{
			Decision:  decision,
			Reviewer:  "ops",
			Timestamp: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		},
		Status: models.StatusReviewed,
	}
}

func TestDraftResponse_Approve(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendApprove)

	art, err := r.DraftResponse(claim)
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	if filepath.Base(art.Path) != claim.ClaimID+".txt" {
		t.Errorf("path = %s, want %s.txt", art.Path, claim.ClaimID)
	}
	if filepath.Base(filepath.Dir(art.Path)) != "emails" {
		t.Errorf("draft written outside emails/: %s", art.Path)
	}
	for _, want := range []string{
		"Subject: Your Warranty Claim Has Been Approved - " + claim.ClaimID,
		"Dear Jane Doe,",
		"has been APPROVED",
		"1. A prepaid return shipping label is attached to this email",
		"process your replacement within 5-7 business days",
	} {
		if !strings.Contains(art.Content, want) {
			t.Errorf("approval draft missing %q", want)
		}
	}

	data, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatalf("read draft: %v", err)
	}
	if string(data) != art.Content {
		t.Error("file content does not match returned content")
	}
}

func TestDraftResponse_RejectWithExclusions(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendReject)
	claim.Analysis.Reasoning = "Damage is consistent with a drop, not a defect."
	claim.Analysis.ExclusionsTriggers = []string{"accidental damage", "dropped"}
	claim.Analysis.PolicyReferences = []string{"Section 4.2", "Section 7"}

	art, err := r.DraftResponse(claim)
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	for _, want := range []string{
		"cannot be approved at this time",
		"Damage is consistent with a drop, not a defect.",
		"Exclusions that apply:\n- accidental damage\n- dropped",
		"POLICY REFERENCE:\nSection 4.2, Section 7",
	} {
		if !strings.Contains(art.Content, want) {
			t.Errorf("rejection draft missing %q", want)
		}
	}
}

func TestDraftResponse_RejectDefaults(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendReject)
	claim.Analysis = nil

	art, err := r.DraftResponse(claim)
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	if !strings.Contains(art.Content, "Based on our warranty policy review.") {
		t.Error("missing default rejection reason")
	}
	if !strings.Contains(art.Content, "Standard warranty terms") {
		t.Error("missing default policy reference")
	}
}

func TestDraftResponse_NeedInfo(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendNeedInfo)
	claim.Extracted.MissingFields = []string{"purchase_date", "proof_of_purchase"}

	art, err := r.DraftResponse(claim)
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	if !strings.Contains(art.Content, "MISSING INFORMATION:\n- purchase_date\n- proof_of_purchase") {
		t.Error("missing-information list not rendered")
	}
}

func TestDraftResponse_NeedInfoDefaults(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendNeedInfo)
	claim.Extracted.MissingFields = nil
	claim.Extracted.IssueDescription = nil

	art, err := r.DraftResponse(claim)
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	if !strings.Contains(art.Content, "- Additional details about the issue") ||
		!strings.Contains(art.Content, "- Proof of purchase") {
		t.Error("default missing items not used")
	}
	if !strings.Contains(art.Content, "- Issue: Not yet provided") {
		t.Error("empty issue should render as Not yet provided")
	}
}

func TestDraftResponse_NoHumanDecisionDraftsNeedInfo(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendApprove)
	claim.Human = nil

	art, err := r.DraftResponse(claim)
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	if !strings.Contains(art.Content, "Additional Information Needed") {
		t.Error("absent decision should draft the NEED_INFO response")
	}
}

func TestDraftResponse_IssueSummaryTruncated(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendApprove)
	long := strings.Repeat("x", 150)
	claim.Extracted.IssueDescription = &long

	art, err := r.DraftResponse(claim)
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	if !strings.Contains(art.Content, "- Issue: "+strings.Repeat("x", 100)+"\n") {
		t.Error("issue summary not truncated to 100 characters")
	}
	if strings.Contains(art.Content, strings.Repeat("x", 101)) {
		t.Error("issue summary exceeds 100 characters")
	}
}

func TestDraftNonClaimResponse(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendNeedInfo)
	claim.Message.Subject = strings.Repeat("Bulk order pricing for salons ", 4)

	art, err := r.DraftNonClaimResponse(claim)
	if err != nil {
		t.Fatalf("DraftNonClaimResponse() error = %v", err)
	}
	if filepath.Base(art.Path) != claim.ClaimID+"_non_claim.txt" {
		t.Errorf("path = %s, want _non_claim suffix", art.Path)
	}
	if !strings.Contains(art.Content, claim.Message.Subject[:50]) {
		t.Error("subject summary missing")
	}
	if strings.Contains(art.Content, claim.Message.Subject[:51]) {
		t.Error("subject summary not truncated to 50 characters")
	}
}

func TestAppendLabelNotice(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendApprove)

	art, err := r.DraftResponse(claim)
	if err != nil {
		t.Fatalf("DraftResponse() error = %v", err)
	}
	labelPath := filepath.Join(r.outboxDir, "labels", claim.ClaimID+"_label.txt")
	if err := r.AppendLabelNotice(art.Path, labelPath); err != nil {
		t.Fatalf("AppendLabelNotice() error = %v", err)
	}

	data, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatalf("read draft: %v", err)
	}
	if !strings.Contains(string(data), "ATTACHMENT: Return Shipping Label") {
		t.Error("attachment section not appended")
	}
	if !strings.Contains(string(data), claim.ClaimID+"_label.txt") {
		t.Error("label file name not referenced")
	}
	if !strings.HasPrefix(string(data), art.Content) {
		t.Error("original draft content was modified")
	}
}

func TestReviewPacket(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendApprove)
	claim.Extracted.MissingFields = []string{"order_number"}
	valid := true
	claim.Analysis.WarrantyValid = &valid
	claim.Analysis.WarrantyExplained = "Within warranty period. Purchased 62 days ago. 28 days remaining in warranty."
	claim.Excerpts = []models.PolicyExcerpt{{
		SectionName: "Excerpt from pro.txt",
		Content:     "Coverage includes heating element failures.",
		PolicyID:    "POL-PRO-V1",
		PolicyFile:  "pro.txt",
		ChunkIndex:  2,
		Distance:    0.134,
		Query:       "issue",
	}}

	art, err := r.ReviewPacket(claim)
	if err != nil {
		t.Fatalf("ReviewPacket() error = %v", err)
	}
	if filepath.Base(art.Path) != claim.ClaimID+".md" {
		t.Errorf("path = %s, want %s.md", art.Path, claim.ClaimID)
	}
	if filepath.Base(filepath.Dir(art.Path)) != "packets" {
		t.Errorf("packet written outside packets/: %s", art.Path)
	}
	for _, want := range []string{
		"# Warranty Claim Review Packet",
		"**Claim ID:** " + claim.ClaimID,
		"**Generated:** 2025-09-01 10:30:00",
		"| **Recommendation** | **APPROVE** |",
		"| **Confidence** | 85% |",
		"| **Warranty Valid** | true |",
		"| Name | Jane Doe |",
		"| Serial | PS3K-2024-0042 |",
		"| Proof of Purchase | Yes |",
		"- [x] Proof of Purchase",
		"- [x] Serial Number",
		"Within warranty period. Purchased 62 days ago.",
		"#### Excerpt from pro.txt",
		"Source: POL-PRO-V1 | File: pro.txt | Chunk: 2 | Distance: 0.134 | Query: issue",
		"**Policy ID:** POL-PRO-V1",
		"**From:** jane@example.com",
		"- [ ] **APPROVE** - Issue replacement/repair/refund",
		"### Missing Information",
		"- order_number",
	} {
		if !strings.Contains(art.Content, want) {
			t.Errorf("packet missing %q", want)
		}
	}
}

func TestReviewPacket_Sparse(t *testing.T) {
	r := testRenderer(t)
	claim := &models.Claim{
		ClaimID: "CLM-20250901-bare0000",
		Message: models.InboundMessage{From: "x@example.com", Subject: "hi", Body: "hello"},
	}

	art, err := r.ReviewPacket(claim)
	if err != nil {
		t.Fatalf("ReviewPacket() error = %v", err)
	}
	for _, want := range []string{
		"| **Recommendation** | **N/A** |",
		"| **Warranty Valid** | Unknown |",
		"| Name | Not provided |",
		"| Product ID | Not matched |",
		"No description provided",
		"Warranty window not checked",
		"- [ ] Proof of Purchase",
		"- No facts extracted",
		"- No assumptions made",
		"No reasoning provided",
		"- No policy sections referenced",
		"**Policy ID:** None",
	} {
		if !strings.Contains(art.Content, want) {
			t.Errorf("sparse packet missing %q", want)
		}
	}
	if strings.Contains(art.Content, "Exclusions Triggered") {
		t.Error("exclusion section rendered with no exclusions")
	}
}

func TestReturnLabel(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendApprove)

	label, err := r.ReturnLabel(claim)
	if err != nil {
		t.Fatalf("ReturnLabel() error = %v", err)
	}
	if filepath.Base(label.Path) != claim.ClaimID+"_label.txt" {
		t.Errorf("path = %s, want %s_label.txt", label.Path, claim.ClaimID)
	}
	if label.Tracking != "HTK20250901123456" {
		t.Errorf("tracking = %s, want HTK20250901123456", label.Tracking)
	}
	if label.RMA != "RMA-"+claim.ClaimID {
		t.Errorf("rma = %s", label.RMA)
	}
	for _, want := range []string{
		"PREPAID RETURN LABEL",
		"|  Jane Doe",
		"|  42 Elm Street",
		"|  HairTech Industries Returns",
		"|  San Jose, CA 95134",
		"RMA Number: " + label.RMA,
		"Tracking:   " + label.Tracking,
		"Claim: " + claim.ClaimID,
	} {
		if !strings.Contains(label.Content, want) {
			t.Errorf("label missing %q", want)
		}
	}
}

func TestReturnLabel_CustomAddress(t *testing.T) {
	addr := &catalog.ReturnAddress{
		Name: "HairTech EU Returns", Street: "Beispielstrasse 9",
		City: "Berlin", State: "BE", Zip: "10115", Country: "Germany",
	}
	r := NewRenderer(t.TempDir(), addr)
	r.trackingSuffix = func() int { return 654321 }

	label, err := r.ReturnLabel(reviewedClaim(models.RecommendApprove))
	if err != nil {
		t.Fatalf("ReturnLabel() error = %v", err)
	}
	if !strings.Contains(label.Content, "|  HairTech EU Returns") ||
		!strings.Contains(label.Content, "|  Berlin, BE 10115") {
		t.Error("catalog return address not used")
	}
}

func TestReturnLabel_OnlyForApproved(t *testing.T) {
	r := testRenderer(t)

	for _, decision := range []models.Recommendation{models.RecommendReject, models.RecommendNeedInfo} {
		if _, err := r.ReturnLabel(reviewedClaim(decision)); err != ErrNotApproved {
			t.Errorf("ReturnLabel(%s) error = %v, want ErrNotApproved", decision, err)
		}
	}

	claim := reviewedClaim(models.RecommendApprove)
	claim.Human = nil
	if _, err := r.ReturnLabel(claim); err != ErrNotApproved {
		t.Errorf("ReturnLabel() without review error = %v, want ErrNotApproved", err)
	}
}

func TestReturnLabel_MissingCustomerAddress(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendApprove)
	claim.Extracted.CustomerName = nil
	claim.Extracted.CustomerAddress = nil

	label, err := r.ReturnLabel(claim)
	if err != nil {
		t.Fatalf("ReturnLabel() error = %v", err)
	}
	if !strings.Contains(label.Content, "Customer Address Not Provided") {
		t.Error("missing address placeholder not rendered")
	}
}

func TestWriteAudit(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendApprove)
	claim.Status = models.StatusCompleted
	claim.Outputs = models.Outputs{
		ReviewPacketPath: "/outbox/packets/x.md",
		ResponsePath:     "/outbox/emails/x.txt",
		ReturnLabelPath:  "/outbox/labels/x_label.txt",
		EmailSent:        true,
		DispatchStatus:   "SENT",
	}

	path, err := r.WriteAudit(claim)
	if err != nil {
		t.Fatalf("WriteAudit() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}

	var rec auditRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("audit log is not valid JSON: %v", err)
	}
	if rec.ClaimID != claim.ClaimID {
		t.Errorf("claim_id = %s", rec.ClaimID)
	}
	if rec.Triage.Result != "CLAIM" {
		t.Errorf("triage result = %s", rec.Triage.Result)
	}
	if rec.HumanReview.Decision != "APPROVE" {
		t.Errorf("human decision = %s", rec.HumanReview.Decision)
	}
	if !rec.Outputs.LabelAttachedToEmail {
		t.Error("label_attached_to_email should be true for approved claim with label")
	}
	if !rec.Outputs.EmailSent || rec.Outputs.DispatchStatus != "SENT" {
		t.Error("dispatch outcome not recorded")
	}
	if rec.Status.FinalStatus != "COMPLETED" {
		t.Errorf("final status = %s", rec.Status.FinalStatus)
	}
}

func TestWriteSummary(t *testing.T) {
	r := testRenderer(t)
	claim := reviewedClaim(models.RecommendReject)
	claim.Status = models.StatusCompleted
	claim.Outputs.ReviewPacketPath = "/outbox/packets/x.md"
	claim.Outputs.ResponsePath = "/outbox/emails/x.txt"

	path, err := r.WriteSummary(claim, "/outbox/logs/x.json")
	if err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	if filepath.Dir(path) != r.outboxDir {
		t.Errorf("summary not at outbox root: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"Claim Processing Summary: " + claim.ClaimID,
		"Decision: REJECT",
		"  - Review Packet: /outbox/packets/x.md",
		"  - Audit Log: /outbox/logs/x.json",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("summary missing %q", want)
		}
	}
	if strings.Contains(content, "Return Label:") {
		t.Error("summary lists a label that was never generated")
	}
}
