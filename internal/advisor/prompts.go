package advisor

import (
	"fmt"
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

const triagePromptTemplate = `You are a warranty claims email classifier for HairTech Industries, a hair dryer manufacturer.

Analyze the following email and classify it into one of these categories:
1. CLAIM - A warranty claim or request for warranty service for a product defect
2. NON_CLAIM - A legitimate email but not a warranty claim (product inquiry, general question, feedback)
3. SPAM - Promotional, phishing, or irrelevant email

Email details:
From: %s
Subject: %s
Date: %s

Body:
%s

Attachments: %s

Respond with ONLY a JSON object in this exact format:
{
    "classification": "CLAIM" or "NON_CLAIM" or "SPAM",
    "confidence": 0.0 to 1.0,
    "reason": "Brief explanation of classification"
}`

const extractPromptTemplate = `You are extracting warranty claim information from an email for HairTech Industries.

Extract the following fields from the email.
- Look for the customer name in the email signature (e.g. "Sincerely, [Name]" or "Thanks, [Name]").
- Look for address/phone in the signature block.
- If a field is not clearly stated, set it to null.
- Do NOT infer the purchase date from the email 'Date' header. Only use dates explicitly mentioned in the body as the purchase date.


Email:
From: %s
Subject: %s
Date: %s

Body:
%s

Attachments mentioned: %s

Extract and respond with ONLY a JSON object in this exact format:
{
    "customer_name": "Full name (check signature) or null",
    "customer_email": "Email address or null",
    "customer_phone": "Phone number or null",
    "customer_address": "Full address or null",
    "product_name": "Product name/model mentioned or null",
    "product_serial": "Serial number or null",
    "purchase_date": "YYYY-MM-DD format or null",
    "purchase_location": "Where purchased or null",
    "order_number": "Order/confirmation number or null",
    "issue_description": "Description of the problem or null",
    "has_proof_of_purchase": true or false,
    "missing_fields": ["list", "of", "missing", "required", "fields"]
}

Required fields for a complete claim: customer_name, customer_email or customer_address, product_name, purchase_date, issue_description`

const analysisPromptTemplate = `You are a warranty claims analyst for HairTech Industries.

Analyze this warranty claim and provide a recommendation.

## Claim Details
- Customer: %s
- Product: %s (%s)
- Purchase Date: %s
- Issue: %s
- Has Proof of Purchase: %t
- Serial Number: %s

## Warranty Window Check
%s

## Relevant Policy Excerpts

%s

## Missing Information
%s

---

Analyze this claim carefully.
1. Is the purchase within the warranty window? (See Warranty Window Check)
2. Is the issue a product defect? (Examples: stopped working, no heat, bad switch, won't turn on).
3. Do any exclusions apply? (Damage, misuse, water, commercial use).

IMPORTANT RULES:
- If the warranty is VALID and the issue is a DEFECT, you MUST recommend **APPROVE**.
- Do NOT reject for lack of detail if the customer states the product stopped working.
- Only REJECT if there is a clear policy violation (e.g. warranty expired, water damage, misuse).
- If unsure, use NEED_INFO.

Respond with ONLY a JSON object:
{
    "recommendation": "APPROVE" or "REJECT" or "NEED_INFO",
    "confidence": 0.0 to 1.0,
    "facts": ["list of verified facts"],
    "assumptions": ["list of assumptions made"],
    "reasoning": "Detailed explanation of the recommendation",
    "policy_references": ["list of policy sections that apply"],
    "exclusions_triggered": ["list of any exclusions that apply, empty if none"]
}`

const (
	triageBodyLimit  = 2000
	extractBodyLimit = 4500
)

func triagePrompt(msg *models.InboundMessage) string {
	return fmt.Sprintf(triagePromptTemplate,
		msg.From, msg.Subject, msg.Date,
		truncate(msg.Body, triageBodyLimit),
		attachmentList(msg.Attachments))
}

func extractPrompt(msg *models.InboundMessage) string {
	combined := strings.TrimSpace(msg.Body + "\n\nAttachment text:\n" + msg.AttachmentText)
	return fmt.Sprintf(extractPromptTemplate,
		msg.From, msg.Subject, msg.Date,
		truncate(combined, extractBodyLimit),
		attachmentList(msg.Attachments))
}

func analysisPrompt(claim *models.Claim, warrantyCheck string) string {
	fields := claim.Extracted
	if fields == nil {
		fields = &models.ExtractedFields{}
	}

	productName, productID := "Unknown", "Unknown"
	if claim.Resolution != nil {
		productName = strOr(claim.Resolution.ProductName, strOr(fields.ProductName, "Unknown"))
		productID = strOr(claim.Resolution.ProductID, "Unknown")
	} else if fields.ProductName != nil {
		productName = *fields.ProductName
	}

	missing := "None"
	if len(fields.MissingFields) > 0 {
		missing = strings.Join(fields.MissingFields, ", ")
	}
	if warrantyCheck == "" {
		warrantyCheck = "Warranty window check not performed (missing purchase date)"
	}

	return fmt.Sprintf(analysisPromptTemplate,
		strOr(fields.CustomerName, "Unknown"),
		productName, productID,
		strOr(fields.PurchaseDate, "Not provided"),
		strOr(fields.IssueDescription, "Not provided"),
		fields.HasProofOfPurchase,
		strOr(fields.ProductSerial, "Not provided"),
		warrantyCheck,
		formatExcerpts(claim.Excerpts),
		missing)
}

func formatExcerpts(excerpts []models.PolicyExcerpt) string {
	if len(excerpts) == 0 {
		return "No policy excerpts available."
	}
	var b strings.Builder
	for _, exc := range excerpts {
		fmt.Fprintf(&b, "### %s\nSource: %s | File: %s | Chunk: %d | Distance: %.3f\n%s\n\n",
			exc.SectionName, exc.PolicyID, exc.PolicyFile, exc.ChunkIndex, exc.Distance, exc.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func attachmentList(attachments []string) string {
	if len(attachments) == 0 {
		return "None"
	}
	return strings.Join(attachments, ", ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func strOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
