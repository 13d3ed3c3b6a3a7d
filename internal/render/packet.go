package render

import (
	"fmt"
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

// ReviewPacket renders the Markdown document a human reviewer reads while a
// claim is parked at the review interrupt, and writes it to
// outbox/packets/<claim-id>.md. It carries everything the reviewer needs:
// the recommendation, extracted fields, warranty analysis, policy excerpts,
// and the original email.
func (r *Renderer) ReviewPacket(claim *models.Claim) (Artifact, error) {
	ext := claim.Extracted
	if ext == nil {
		ext = &models.ExtractedFields{}
	}
	analysis := claim.Analysis
	if analysis == nil {
		analysis = &models.Analysis{}
	}

	recommendation := "N/A"
	if analysis.Recommendation != "" {
		recommendation = string(analysis.Recommendation)
	}
	warrantyValid := "Unknown"
	if analysis.WarrantyValid != nil {
		warrantyValid = fmt.Sprintf("%t", *analysis.WarrantyValid)
	}

	lines := []string{
		"# Warranty Claim Review Packet",
		"",
		fmt.Sprintf("**Claim ID:** %s", claim.ClaimID),
		fmt.Sprintf("**Generated:** %s", r.now().Format("2006-01-02 15:04:05")),
		"",
		"---",
		"",
		"## Recommendation Summary",
		"",
		"| Field | Value |",
		"|-------|-------|",
		fmt.Sprintf("| **Recommendation** | **%s** |", recommendation),
		fmt.Sprintf("| **Confidence** | %.0f%% |", analysis.Confidence*100),
		fmt.Sprintf("| **Warranty Valid** | %s |", warrantyValid),
		"",
		"---",
		"",
		"## Customer Information",
		"",
		"| Field | Value |",
		"|-------|-------|",
		fmt.Sprintf("| Name | %s |", strOr(ext.CustomerName, "Not provided")),
		fmt.Sprintf("| Email | %s |", strOr(ext.CustomerEmail, "Not provided")),
		fmt.Sprintf("| Phone | %s |", strOr(ext.CustomerPhone, "Not provided")),
		fmt.Sprintf("| Address | %s |", strOr(ext.CustomerAddress, "Not provided")),
		"",
		"---",
		"",
		"## Product & Purchase",
		"",
		"| Field | Value |",
		"|-------|-------|",
	}

	res := claim.Resolution
	if res == nil {
		res = &models.Resolution{}
	}
	proof := "No"
	if ext.HasProofOfPurchase {
		proof = "Yes"
	}
	lines = append(lines,
		fmt.Sprintf("| Product | %s |", strOr(res.ProductName, "Unknown")),
		fmt.Sprintf("| Product ID | %s |", strOr(res.ProductID, "Not matched")),
		fmt.Sprintf("| Category | %s |", strOr(res.ProductCategory, "N/A")),
		fmt.Sprintf("| Serial | %s |", strOr(ext.ProductSerial, "Not provided")),
		fmt.Sprintf("| Purchase Date | %s |", strOr(ext.PurchaseDate, "Not provided")),
		fmt.Sprintf("| Purchase Location | %s |", strOr(ext.PurchaseLocation, "Not provided")),
		fmt.Sprintf("| Order Number | %s |", strOr(ext.OrderNumber, "Not provided")),
		fmt.Sprintf("| Proof of Purchase | %s |", proof),
		"",
		"---",
		"",
		"## Issue Description",
		"",
		"```",
		strOr(ext.IssueDescription, "No description provided"),
		"```",
		"",
		"---",
		"",
		"## Warranty Window Analysis",
		"",
		orDefault(analysis.WarrantyExplained, "Warranty window not checked"),
		"",
		"---",
		"",
		"## Evidence Checklist",
		"",
	)

	checklist := []struct {
		item    string
		present bool
	}{
		{"Proof of Purchase", ext.HasProofOfPurchase},
		{"Serial Number", set(ext.ProductSerial)},
		{"Purchase Date", set(ext.PurchaseDate)},
		{"Issue Description", set(ext.IssueDescription)},
		{"Contact Information", set(ext.CustomerEmail) || set(ext.CustomerAddress)},
	}
	for _, c := range checklist {
		box := "[ ]"
		if c.present {
			box = "[x]"
		}
		lines = append(lines, fmt.Sprintf("- %s %s", box, c.item))
	}

	lines = append(lines,
		"",
		"---",
		"",
		"## Analysis Details",
		"",
		"### Facts (Verified)",
		"",
	)
	lines = appendBullets(lines, analysis.Facts, "- ", "- No facts extracted")

	lines = append(lines, "", "### Assumptions (Not Verified)", "")
	lines = appendBullets(lines, analysis.Assumptions, "- [!] ", "- No assumptions made")

	lines = append(lines,
		"",
		"### Reasoning",
		"",
		orDefault(analysis.Reasoning, "No reasoning provided"),
		"",
		"### Policy References",
		"",
	)
	lines = appendBullets(lines, analysis.PolicyReferences, "- ", "- No policy sections referenced")

	if len(analysis.ExclusionsTriggers) > 0 {
		lines = append(lines, "", "### [WARNING] Exclusions Triggered", "")
		for _, exc := range analysis.ExclusionsTriggers {
			lines = append(lines, fmt.Sprintf("- **%s**", exc))
		}
	}

	lines = append(lines,
		"",
		"---",
		"",
		"## Policy Selected",
		"",
		fmt.Sprintf("**Policy ID:** %s", strOr(res.PolicyID, "None")),
		fmt.Sprintf("**Version:** %s", strOr(res.PolicyVersion, "N/A")),
		fmt.Sprintf("**Effective Date:** %s", strOr(res.PolicyEffective, "N/A")),
		fmt.Sprintf("**File:** %s", strOr(res.PolicyFile, "None")),
		"",
		fmt.Sprintf("**Reason:** %s", orDefault(res.Reason, "N/A")),
		"",
	)

	if len(claim.Excerpts) > 0 {
		lines = append(lines, "### Relevant Policy Excerpts", "")
		for _, ex := range claim.Excerpts {
			lines = append(lines,
				fmt.Sprintf("#### %s", orDefault(ex.SectionName, "Unknown Section")),
				"",
				fmt.Sprintf("Source: %s | File: %s | Chunk: %d | Distance: %.3f | Query: %s",
					ex.PolicyID, ex.PolicyFile, ex.ChunkIndex, ex.Distance, ex.Query),
				"",
				"```",
				truncate(ex.Content, 500),
				"```",
				"",
			)
		}
	}

	lines = append(lines,
		"---",
		"",
		"## Original Email",
		"",
		fmt.Sprintf("**From:** %s", orDefault(claim.Message.From, "Unknown")),
		fmt.Sprintf("**Subject:** %s", orDefault(claim.Message.Subject, "No subject")),
		fmt.Sprintf("**Date:** %s", orDefault(claim.Message.Date, "Unknown")),
		"",
		"```",
		truncate(orDefault(claim.Message.Body, "No body"), 2000),
		"```",
		"",
		"---",
		"",
		"## Human Review Required",
		"",
		"Please review this claim and select an action:",
		"",
		"- [ ] **APPROVE** - Issue replacement/repair/refund",
		"- [ ] **REJECT** - Deny claim with explanation",
		"- [ ] **NEED_INFO** - Request additional information",
		"",
	)

	if len(ext.MissingFields) > 0 {
		lines = append(lines, "### Missing Information", "")
		for _, field := range ext.MissingFields {
			lines = append(lines, "- "+field)
		}
	}

	content := strings.Join(lines, "\n")
	path, err := r.write(packetsSubdir, claim.ClaimID+".md", content)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, Content: content}, nil
}

func appendBullets(lines, items []string, prefix, empty string) []string {
	if len(items) == 0 {
		return append(lines, empty)
	}
	for _, item := range items {
		lines = append(lines, prefix+item)
	}
	return lines
}

func set(p *string) bool { return p != nil && *p != "" }

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
