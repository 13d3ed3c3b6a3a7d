package decision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hairtech/claimflow/pkg/models"
)

var evalDate = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func strptr(s string) *string { return &s }

// completeClaim returns a claim that passes every deterministic check, so
// only the advisor step remains.
func completeClaim() *models.Claim {
	return &models.Claim{
		ClaimID: "CLM-TEST-0001",
		Message: models.InboundMessage{
			ID:   "msg-1",
			From: "jane@example.com",
			Body: "My ProSalon 3000 makes a loud grinding noise and shuts off after five minutes of use.\nSerial: PS3K-2024-0042",
			Date: "2025-09-01T12:00:00Z",
		},
		Extracted: &models.ExtractedFields{
			CustomerName:       strptr("Jane Doe"),
			CustomerEmail:      strptr("jane@example.com"),
			CustomerAddress:    strptr("123 Main Street, Springfield, IL 62704"),
			ProductName:        strptr("ProSalon 3000"),
			ProductSerial:      strptr("PS3K-2024-0042"),
			PurchaseDate:       strptr("2025-08-01"),
			IssueDescription:   strptr("makes a loud grinding noise and shuts off after five minutes of use"),
			HasProofOfPurchase: true,
		},
		Resolution: &models.Resolution{
			ProductID:         strptr("HD-PRO-001"),
			ExclusionKeywords: []string{"water damage", "commercial use"},
		},
		Status: models.StatusExtracted,
	}
}

type stubAdvisor struct {
	analysis *models.Analysis
	err      error
	calls    int
}

func (s *stubAdvisor) Analyze(context.Context, *models.Claim) (*models.Analysis, error) {
	s.calls++
	return s.analysis, s.err
}

func TestCheckWarrantyWindow_Boundary(t *testing.T) {
	tests := []struct {
		name     string
		purchase string
		want     bool
	}{
		{"exactly 90 days is valid", "2025-06-03", true},
		{"91 days is expired", "2025-06-02", false},
		{"same day is valid", "2025-09-01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, details := CheckWarrantyWindow(tt.purchase, evalDate, DefaultWarrantyDays)
			if valid == nil {
				t.Fatalf("expected determined validity, got nil (%s)", details)
			}
			if *valid != tt.want {
				t.Errorf("valid = %v, want %v (%s)", *valid, tt.want, details)
			}
		})
	}
}

func TestCheckWarrantyWindow_Undetermined(t *testing.T) {
	if valid, _ := CheckWarrantyWindow("", evalDate, DefaultWarrantyDays); valid != nil {
		t.Errorf("expected nil validity for missing date, got %v", *valid)
	}
	if valid, _ := CheckWarrantyWindow("last summer", evalDate, DefaultWarrantyDays); valid != nil {
		t.Errorf("expected nil validity for unparseable date, got %v", *valid)
	}
}

func TestFindExclusionHits_Negation(t *testing.T) {
	keywords := []string{"water damage", "commercial use"}

	tests := []struct {
		name string
		text string
		want int
	}{
		{"unnegated mention triggers", "water damage occurred last week", 1},
		{"no-negated mention does not", "there was no water damage at all", 0},
		{"not-negated mention does not", "it is not water damage", 0},
		{"never-negated mention does not", "never commercial use here", 0},
		{"negation outside window still triggers", "there was absolutely positively water damage", 1},
		{"both keywords", "water damage from commercial use", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := FindExclusionHits(tt.text, keywords)
			if len(hits) != tt.want {
				t.Errorf("hits = %v, want %d", hits, tt.want)
			}
		})
	}
}

func TestAddressPredicates(t *testing.T) {
	tests := []struct {
		addr     string
		us, usCa bool
	}{
		{"123 Main Street, Springfield, IL 62704", true, true},
		{"42 Elm St, Portland, USA", true, true},
		{"500 King St W, Toronto, ON M5V 1K4", false, true},
		{"10 Maple Ave, Vancouver, Canada", false, true},
		{"1 Baker Street, London NW1", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := AddressInUS(tt.addr); got != tt.us {
			t.Errorf("AddressInUS(%q) = %v, want %v", tt.addr, got, tt.us)
		}
		if got := AddressInUSOrCanada(tt.addr); got != tt.usCa {
			t.Errorf("AddressInUSOrCanada(%q) = %v, want %v", tt.addr, got, tt.usCa)
		}
	}
}

func TestEvaluate_ExpiredWarrantyRejects(t *testing.T) {
	advisor := &stubAdvisor{analysis: &models.Analysis{Recommendation: models.RecommendApprove, Confidence: 0.99}}
	engine := NewEngine(advisor, 0)

	claim := completeClaim()
	claim.Extracted.PurchaseDate = strptr("2025-02-13") // 200 days before evaluation
	claim.Extracted.IssueDescription = strptr("it simply stopped producing any heat even though I maintain it well")

	analysis := engine.Evaluate(context.Background(), claim, evalDate)

	if analysis.Recommendation != models.RecommendReject {
		t.Errorf("recommendation = %s, want REJECT", analysis.Recommendation)
	}
	if analysis.Confidence != 0.95 {
		t.Errorf("confidence = %f, want 0.95", analysis.Confidence)
	}
	if analysis.WarrantyValid == nil || *analysis.WarrantyValid {
		t.Error("expected warrantyValid=false")
	}
	if advisor.calls != 0 {
		t.Errorf("advisor consulted %d times on an expired claim", advisor.calls)
	}
}

func TestEvaluate_ExclusionRejects(t *testing.T) {
	advisor := &stubAdvisor{}
	engine := NewEngine(advisor, 0)

	claim := completeClaim()
	claim.Extracted.IssueDescription = strptr("the housing cracked after water damage from a dropped sink rinse")

	analysis := engine.Evaluate(context.Background(), claim, evalDate)

	if analysis.Recommendation != models.RecommendReject {
		t.Errorf("recommendation = %s, want REJECT", analysis.Recommendation)
	}
	if analysis.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", analysis.Confidence)
	}
	if len(analysis.ExclusionsTriggers) != 1 || analysis.ExclusionsTriggers[0] != "water damage" {
		t.Errorf("exclusions = %v", analysis.ExclusionsTriggers)
	}
	if advisor.calls != 0 {
		t.Error("advisor consulted despite exclusion hit")
	}
}

func TestEvaluate_NegatedExclusionPasses(t *testing.T) {
	advisor := &stubAdvisor{analysis: &models.Analysis{Recommendation: models.RecommendApprove, Confidence: 0.9}}
	engine := NewEngine(advisor, 0)

	claim := completeClaim()
	claim.Message.Body = "There was no water damage; the motor itself seized.\nSerial: PS3K-2024-0042"
	claim.Extracted.IssueDescription = strptr("the motor itself seized and will not restart even after cooling down")

	analysis := engine.Evaluate(context.Background(), claim, evalDate)
	if analysis.Recommendation != models.RecommendApprove {
		t.Errorf("recommendation = %s, want APPROVE from advisor", analysis.Recommendation)
	}
	if advisor.calls != 1 {
		t.Errorf("advisor calls = %d, want 1", advisor.calls)
	}
}

func TestEvaluate_CriticalMissingSkipsAdvisor(t *testing.T) {
	advisor := &stubAdvisor{}
	engine := NewEngine(advisor, 0)

	claim := completeClaim()
	claim.Extracted.IssueDescription = nil
	claim.Extracted.CustomerEmail = nil
	claim.Extracted.CustomerAddress = nil
	claim.Extracted.MissingFields = []string{"issue_description", "contact_info (email, phone, or address)"}

	analysis := engine.Evaluate(context.Background(), claim, evalDate)

	if analysis.Recommendation != models.RecommendNeedInfo {
		t.Errorf("recommendation = %s, want NEED_INFO", analysis.Recommendation)
	}
	if analysis.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", analysis.Confidence)
	}
	joined := strings.Join(analysis.Facts, " ")
	if !strings.Contains(joined, "issue_description") || !strings.Contains(joined, "contact_info") {
		t.Errorf("facts do not list both missing items: %v", analysis.Facts)
	}
	if advisor.calls != 0 {
		t.Error("advisor consulted despite critical missing fields")
	}
}

func TestEvaluate_VagueIssueNeedsDetail(t *testing.T) {
	engine := NewEngine(&stubAdvisor{}, 0)

	claim := completeClaim()
	claim.Extracted.IssueDescription = strptr("it is broken")

	analysis := engine.Evaluate(context.Background(), claim, evalDate)
	if analysis.Recommendation != models.RecommendNeedInfo {
		t.Errorf("recommendation = %s, want NEED_INFO", analysis.Recommendation)
	}
	if !strings.Contains(strings.Join(analysis.Facts, " "), "detailed_issue_description") {
		t.Errorf("facts missing detailed_issue_description: %v", analysis.Facts)
	}
}

func TestIsVagueIssue(t *testing.T) {
	tests := []struct {
		issue string
		want  bool
	}{
		{"it broke", true},
		{"the heating element no longer reaches temperature", false},
		{"my expensive hair dryer is completely broken", true},
		{"broken not working stopped help issue problem", true},
		{"the dryer overheats and smells like burning plastic near the vent", false},
		{"", true},
	}
	for _, tt := range tests {
		if got := isVagueIssue(tt.issue); got != tt.want {
			t.Errorf("isVagueIssue(%q) = %v, want %v", tt.issue, got, tt.want)
		}
	}
}

func TestEvaluate_RequirementsNeedInfo(t *testing.T) {
	engine := NewEngine(&stubAdvisor{}, 0)

	claim := completeClaim()
	claim.Resolution.Requirements = []string{"photos", "business_license"}

	analysis := engine.Evaluate(context.Background(), claim, evalDate)

	if analysis.Recommendation != models.RecommendNeedInfo {
		t.Errorf("recommendation = %s, want NEED_INFO", analysis.Recommendation)
	}
	if analysis.Confidence != 0.85 {
		t.Errorf("confidence = %f, want 0.85", analysis.Confidence)
	}
	// Requirement labels merge into the claim's missing list, sorted.
	found := 0
	for _, f := range claim.Extracted.MissingFields {
		if f == "photos of the product issue" || f == "business license (salon models)" {
			found++
		}
	}
	if found != 2 {
		t.Errorf("missing fields not merged: %v", claim.Extracted.MissingFields)
	}
}

func TestEvaluate_RequirementsSatisfied(t *testing.T) {
	advisor := &stubAdvisor{analysis: &models.Analysis{Recommendation: models.RecommendApprove, Confidence: 0.9}}
	engine := NewEngine(advisor, 0)

	claim := completeClaim()
	claim.Message.Body += "\nAttached photos of the issue. My business license number is BL-9981.\nI clean the filter weekly."
	claim.Message.Attachments = []string{"damage.jpg"}
	claim.Resolution.Requirements = []string{
		"proof_of_purchase", "serial_number", "contact_info", "photos",
		"business_license", "maintenance_description", "us_address",
	}

	analysis := engine.Evaluate(context.Background(), claim, evalDate)
	if analysis.Recommendation != models.RecommendApprove {
		t.Errorf("recommendation = %s, want APPROVE (requirements met)", analysis.Recommendation)
	}
}

func TestEvaluate_AdvisorFailureFallsBack(t *testing.T) {
	engine := NewEngine(&stubAdvisor{err: errors.New("model timeout")}, 0)

	analysis := engine.Evaluate(context.Background(), completeClaim(), evalDate)

	if analysis.Recommendation != models.RecommendNeedInfo {
		t.Errorf("recommendation = %s, want NEED_INFO", analysis.Recommendation)
	}
	if analysis.Confidence != 0.5 {
		t.Errorf("confidence = %f, want 0.5", analysis.Confidence)
	}
}

func TestEvaluate_InvalidAdvisorRecommendation(t *testing.T) {
	advisor := &stubAdvisor{analysis: &models.Analysis{Recommendation: "MAYBE", Confidence: 0.7}}
	engine := NewEngine(advisor, 0)

	analysis := engine.Evaluate(context.Background(), completeClaim(), evalDate)
	if analysis.Recommendation != models.RecommendNeedInfo {
		t.Errorf("recommendation = %s, want NEED_INFO for invalid advisor output", analysis.Recommendation)
	}
}

func TestEvaluate_NilAdvisor(t *testing.T) {
	engine := NewEngine(nil, 0)
	analysis := engine.Evaluate(context.Background(), completeClaim(), evalDate)
	if analysis.Recommendation != models.RecommendNeedInfo || analysis.Confidence != 0.5 {
		t.Errorf("nil advisor should degrade to NEED_INFO/0.5, got %s/%f",
			analysis.Recommendation, analysis.Confidence)
	}
}
