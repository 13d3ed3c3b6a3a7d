package decision

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hairtech/claimflow/pkg/models"
)

// Advisor is the reasoning capability consulted only when every
// deterministic check passes. Implementations must apply their own timeout
// and may fail; the engine recovers locally.
type Advisor interface {
	Analyze(ctx context.Context, claim *models.Claim) (*models.Analysis, error)
}

// Engine runs the deterministic decision ladder. Checks fire in a fixed
// priority order; the first hit produces the analysis and later checks
// (including the advisor) never run.
type Engine struct {
	advisor      Advisor
	warrantyDays int
}

// NewEngine creates an engine. warrantyDays <= 0 selects the default
// 90-day window. A nil advisor is allowed; the fallback analysis is used
// whenever the ladder reaches the advisor step.
func NewEngine(advisor Advisor, warrantyDays int) *Engine {
	if warrantyDays <= 0 {
		warrantyDays = DefaultWarrantyDays
	}
	return &Engine{advisor: advisor, warrantyDays: warrantyDays}
}

var vagueWords = map[string]bool{
	"broken": true, "not": true, "working": true, "doesn't": true,
	"work": true, "stopped": true, "help": true, "issue": true,
	"problem": true,
}

var trailingVagueWords = map[string]bool{
	"broken": true, "issue": true, "problem": true,
}

// isVagueIssue flags descriptions too thin to analyze: shorter than 30
// characters, or ending in a generic word, or made up entirely of generic
// words. Only descriptions under 50 characters are flagged.
func isVagueIssue(issue string) bool {
	if len(issue) >= 50 {
		return false
	}
	if len(issue) < 30 {
		return true
	}
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(issue)))
	if len(tokens) == 0 {
		return true
	}
	if trailingVagueWords[tokens[len(tokens)-1]] {
		return true
	}
	for _, tok := range tokens {
		if !vagueWords[strings.Trim(tok, ".,!?")] {
			return false
		}
	}
	return true
}

// Evaluate runs the ladder for a claim and always produces an analysis.
// now anchors the warranty window when the message carries no usable date.
func (e *Engine) Evaluate(ctx context.Context, claim *models.Claim, now time.Time) *models.Analysis {
	fields := claim.Extracted
	if fields == nil {
		fields = &models.ExtractedFields{}
	}

	evaluation := EvaluationTime(claim.Message.Date, now)
	warrantyValid, warrantyDetails := CheckWarrantyWindow(deref(fields.PurchaseDate), evaluation, e.warrantyDays)

	// 1. Expired warranty is a hard rejection before anything else.
	if warrantyValid != nil && !*warrantyValid {
		return &models.Analysis{
			Recommendation: models.RecommendReject,
			Confidence:     0.95,
			Facts: []string{
				"Purchase date: " + deref(fields.PurchaseDate),
				warrantyDetails,
			},
			Reasoning:          fmt.Sprintf("Warranty period has expired. The %d-day warranty window has passed.", e.warrantyDays),
			PolicyReferences:   []string{"WARRANTY PERIOD"},
			WarrantyValid:      warrantyValid,
			WarrantyExplained:  warrantyDetails,
			ExclusionsTriggers: []string{"Warranty period expired"},
		}
	}

	// 2. An admitted exclusion rejects even when information is missing.
	var exclusionKeywords []string
	if claim.Resolution != nil {
		exclusionKeywords = claim.Resolution.ExclusionKeywords
	}
	textBlob := deref(fields.IssueDescription) + " " + claim.Message.Body
	if hits := FindExclusionHits(textBlob, exclusionKeywords); len(hits) > 0 {
		return &models.Analysis{
			Recommendation: models.RecommendReject,
			Confidence:     0.9,
			Facts: []string{
				"Issue description: " + orDefault(deref(fields.IssueDescription), "Not provided"),
				"Exclusions matched: " + strings.Join(hits, ", "),
			},
			Reasoning:          "The claim mentions excluded conditions per the policy. These exclusions invalidate the warranty claim.",
			PolicyReferences:   []string{"EXCLUSIONS"},
			WarrantyValid:      warrantyValid,
			WarrantyExplained:  warrantyDetails,
			ExclusionsTriggers: hits,
		}
	}

	// 3. Critical fields the analysis cannot proceed without.
	var critical []string
	for _, f := range fields.MissingFields {
		switch f {
		case "product_name", "issue_description", "contact_info (email, phone, or address)":
			critical = append(critical, f)
		}
	}
	if deref(fields.ProductSerial) == "" {
		critical = append(critical, "serial_number")
	}
	if isVagueIssue(deref(fields.IssueDescription)) {
		critical = append(critical, "detailed_issue_description")
	}
	if deref(fields.CustomerAddress) == "" {
		critical = append(critical, "customer_address")
	}
	if len(critical) > 0 {
		joined := strings.Join(critical, ", ")
		return &models.Analysis{
			Recommendation:    models.RecommendNeedInfo,
			Confidence:        0.9,
			Facts:             []string{"Critical information missing: " + joined},
			Reasoning:         fmt.Sprintf("Cannot process claim without: %s. Please request this information from the customer.", joined),
			PolicyReferences:  []string{"CLAIM REQUIREMENTS"},
			WarrantyValid:     warrantyValid,
			WarrantyExplained: warrantyDetails,
		}
	}

	// 4. Policy-specific evidence requirements.
	var requirements []string
	if claim.Resolution != nil {
		requirements = claim.Resolution.Requirements
	}
	if reqMissing := MissingRequirements(requirements, fields, &claim.Message); len(reqMissing) > 0 {
		fields.MissingFields = mergeSorted(fields.MissingFields, reqMissing)
		return &models.Analysis{
			Recommendation:    models.RecommendNeedInfo,
			Confidence:        0.85,
			Facts:             []string{"Missing required evidence: " + strings.Join(reqMissing, ", ")},
			Reasoning:         "Required evidence is missing for this product. Collect the missing items before making a final decision.",
			PolicyReferences:  []string{"CLAIM REQUIREMENTS"},
			WarrantyValid:     warrantyValid,
			WarrantyExplained: warrantyDetails,
		}
	}

	// 5. The advisor decides; its failure degrades to manual review.
	if e.advisor != nil {
		analysis, err := e.advisor.Analyze(ctx, claim)
		if err == nil && analysis != nil {
			if !analysis.Recommendation.Valid() {
				analysis.Recommendation = models.RecommendNeedInfo
			}
			analysis.WarrantyValid = warrantyValid
			analysis.WarrantyExplained = warrantyDetails
			return analysis
		}
	}
	return &models.Analysis{
		Recommendation:    models.RecommendNeedInfo,
		Confidence:        0.5,
		Facts:             []string{"Automated analysis unavailable"},
		Assumptions:       []string{"Manual review required due to analysis error"},
		Reasoning:         "Automated analysis failed. Please review manually.",
		WarrantyValid:     warrantyValid,
		WarrantyExplained: warrantyDetails,
	}
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
