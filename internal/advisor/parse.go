package advisor

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hairtech/claimflow/pkg/models"
)

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseTriage(raw string) (*models.Triage, error) {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("triage response is not valid JSON")
	}

	classification := models.TriageResult(strings.ToUpper(gjson.Get(body, "classification").String()))
	switch classification {
	case models.TriageClaim, models.TriageNonClaim, models.TriageSpam:
	default:
		// Default to processing: a misclassified claim is worse than a
		// misclassified non-claim.
		classification = models.TriageClaim
	}

	confidence := gjson.Get(body, "confidence").Float()
	if confidence == 0 {
		confidence = 0.8
	}

	return &models.Triage{
		Result:     classification,
		Reason:     orString(gjson.Get(body, "reason").String(), "Model classification"),
		Confidence: confidence,
	}, nil
}

func parseExtracted(raw string) (*models.ExtractedFields, error) {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("extraction response is not valid JSON")
	}

	fields := &models.ExtractedFields{
		CustomerName:       nullableString(body, "customer_name"),
		CustomerEmail:      nullableString(body, "customer_email"),
		CustomerPhone:      nullableString(body, "customer_phone"),
		CustomerAddress:    nullableString(body, "customer_address"),
		ProductName:        nullableString(body, "product_name"),
		ProductSerial:      nullableString(body, "product_serial"),
		PurchaseDate:       nullableString(body, "purchase_date"),
		PurchaseLocation:   nullableString(body, "purchase_location"),
		OrderNumber:        nullableString(body, "order_number"),
		IssueDescription:   nullableString(body, "issue_description"),
		HasProofOfPurchase: gjson.Get(body, "has_proof_of_purchase").Bool(),
	}
	for _, v := range gjson.Get(body, "missing_fields").Array() {
		fields.MissingFields = append(fields.MissingFields, v.String())
	}
	return fields, nil
}

func parseAnalysis(raw string) (*models.Analysis, error) {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("analysis response is not valid JSON")
	}

	recommendation := models.Recommendation(strings.ToUpper(gjson.Get(body, "recommendation").String()))
	if !recommendation.Valid() {
		recommendation = models.RecommendNeedInfo
	}

	confidence := gjson.Get(body, "confidence").Float()
	if confidence == 0 {
		confidence = 0.7
	}

	return &models.Analysis{
		Recommendation:     recommendation,
		Confidence:         confidence,
		Facts:              stringList(body, "facts"),
		Assumptions:        stringList(body, "assumptions"),
		Reasoning:          gjson.Get(body, "reasoning").String(),
		PolicyReferences:   stringList(body, "policy_references"),
		ExclusionsTriggers: stringList(body, "exclusions_triggered"),
	}, nil
}

// nullableString returns nil for absent, JSON-null, empty, or literal
// "null" values; models often echo the word instead of the type.
func nullableString(body, path string) *string {
	res := gjson.Get(body, path)
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	s := strings.TrimSpace(res.String())
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func stringList(body, path string) []string {
	var out []string
	for _, v := range gjson.Get(body, path).Array() {
		out = append(out, v.String())
	}
	return out
}

func orString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
