package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

// Response templates. Field order: see each Draft* call site. Subject lines
// are part of the draft and parsed back out by the dispatcher.
const approvalTemplate = `Subject: Your Warranty Claim Has Been Approved - %[1]s

Dear %[2]s,

Thank you for contacting HairTech Industries regarding your warranty claim for the %[3]s.

We are pleased to inform you that your warranty claim has been APPROVED.

CLAIM DETAILS:
- Claim ID: %[1]s
- Product: %[3]s
- Issue: %[4]s

NEXT STEPS:
%[5]s
2. Please pack your %[3]s securely in its original packaging if available
3. Drop off the package at any authorized shipping location
4. Once we receive your product, we will process your %[6]s within 5-7 business days

IMPORTANT:
- Please include a copy of this email in your package
- Keep your tracking number for reference
- Do not include any accessories unless specifically requested

If you have any questions, please reply to this email or call us at 1-800-HAIRTECH.

Thank you for choosing HairTech Industries!

Best regards,
HairTech Customer Support Team
warranty@hairtechind.com
`

const rejectionTemplate = `Subject: Regarding Your Warranty Claim - %[1]s

Dear %[2]s,

Thank you for contacting HairTech Industries regarding your warranty claim for the %[3]s.

After careful review, we regret to inform you that your warranty claim cannot be approved at this time.

CLAIM DETAILS:
- Claim ID: %[1]s
- Product: %[3]s
- Issue: %[4]s

REASON FOR DECISION:
%[5]s

POLICY REFERENCE:
%[6]s

YOUR OPTIONS:
1. Out-of-Warranty Repair: We offer repair services at a reduced cost. Contact us for a quote.
2. Replacement Discount: Use code LOYAL20 for 20%% off a new %[3]s.
3. Appeal: If you believe this decision was made in error, you may submit additional documentation.

To appeal this decision, please reply to this email with any additional evidence or clarification within 14 days.

We value your business and hope to serve you again in the future.

Best regards,
HairTech Customer Support Team
warranty@hairtechind.com
`

const needInfoTemplate = `Subject: Additional Information Needed for Your Warranty Claim - %[1]s

Dear %[2]s,

Thank you for contacting HairTech Industries regarding your warranty claim.

To process your claim, we need some additional information:

MISSING INFORMATION:
%[5]s

WHAT YOU'VE PROVIDED:
- Product: %[3]s
- Issue: %[4]s

HOW TO RESPOND:
Please reply to this email with the missing information listed above. You can also attach any relevant documents such as:
- Proof of purchase (receipt, order confirmation, credit card statement)
- Photos of the product defect
- Product serial number (usually found on the handle or base)

Once we receive the complete information, we will process your claim within 2-3 business days.

If you have any questions, please don't hesitate to reach out.

Best regards,
HairTech Customer Support Team
warranty@hairtechind.com
`

const nonClaimTemplate = `Subject: Thank You for Contacting HairTech Industries - %[1]s

Dear %[2]s,

Thank you for reaching out to HairTech Industries!

We've received your inquiry regarding %[3]s. Since this doesn't appear to be a warranty-related request, we'd like to direct you to the appropriate team who can best assist you.

FOR PRODUCT INQUIRIES:
- Visit our product catalog at www.hairtechind.com/products
- Email our sales team at sales@hairtechind.com
- Call 1-800-HAIRTECH (option 2) for product recommendations

FOR GENERAL SUPPORT:
- Check our FAQ at www.hairtechind.com/faq
- Email support@hairtechind.com
- Live chat available at www.hairtechind.com (Mon-Fri, 9am-6pm EST)

FOR WARRANTY CLAIMS:
If you do have a warranty-related issue with a HairTech product, please reply to this email with:
- Your product name and serial number
- Date and place of purchase
- Description of the issue you're experiencing

We're here to help and appreciate your interest in HairTech products!

Best regards,
HairTech Customer Support Team
warranty@hairtechind.com
`

// labelAttachedNotice is the first NEXT STEPS line for approved claims; the
// label is always generated before the email is dispatched.
const labelAttachedNotice = "1. A prepaid return shipping label is attached to this email"

// defaultMissingItems is used when a claim reaches NEED_INFO drafting with an
// empty missing-field list (reviewer override of an APPROVE recommendation,
// for example).
var defaultMissingItems = []string{
	"Additional details about the issue",
	"Proof of purchase",
}

// DraftResponse renders the customer response email for the claim's review
// decision and writes it to outbox/emails/<claim-id>.txt. An absent or
// invalid decision drafts the NEED_INFO response.
func (r *Renderer) DraftResponse(claim *models.Claim) (Artifact, error) {
	decision := models.RecommendNeedInfo
	if claim.Human != nil && claim.Human.Decision.Valid() {
		decision = claim.Human.Decision
	}

	name := customerName(claim)
	product := productName(claim)
	issue := issueSummary(claim)
	if issue == "" {
		issue = "Product issue"
	}

	var content string
	switch decision {
	case models.RecommendApprove:
		content = fmt.Sprintf(approvalTemplate,
			claim.ClaimID, name, product, issue, labelAttachedNotice, "replacement")

	case models.RecommendReject:
		reason := "Based on our warranty policy review."
		policyRef := "Standard warranty terms"
		if claim.Analysis != nil {
			if claim.Analysis.Reasoning != "" {
				reason = claim.Analysis.Reasoning
			}
			if len(claim.Analysis.PolicyReferences) > 0 {
				policyRef = strings.Join(claim.Analysis.PolicyReferences, ", ")
			}
			if len(claim.Analysis.ExclusionsTriggers) > 0 {
				reason += "\n\nExclusions that apply:\n- " + strings.Join(claim.Analysis.ExclusionsTriggers, "\n- ")
			}
		}
		content = fmt.Sprintf(rejectionTemplate,
			claim.ClaimID, name, product, issue, reason, policyRef)

	default:
		missing := defaultMissingItems
		if claim.Extracted != nil && len(claim.Extracted.MissingFields) > 0 {
			missing = claim.Extracted.MissingFields
		}
		items := make([]string, len(missing))
		for i, item := range missing {
			items[i] = "- " + item
		}
		if issueSummary(claim) == "" {
			issue = "Not yet provided"
		}
		content = fmt.Sprintf(needInfoTemplate,
			claim.ClaimID, name, product, issue, strings.Join(items, "\n"))
	}

	path, err := r.write(emailsSubdir, claim.ClaimID+".txt", content)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, Content: content}, nil
}

// DraftNonClaimResponse renders the redirect email for messages triaged as
// something other than a warranty claim. Written alongside claim responses
// with a _non_claim suffix so the two are never confused.
func (r *Renderer) DraftNonClaimResponse(claim *models.Claim) (Artifact, error) {
	subject := "your inquiry"
	if claim.Message.Subject != "" {
		subject = truncate(claim.Message.Subject, 50)
	}

	content := fmt.Sprintf(nonClaimTemplate, claim.ClaimID, customerName(claim), subject)
	path, err := r.write(emailsSubdir, claim.ClaimID+"_non_claim.txt", content)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, Content: content}, nil
}

// AppendLabelNotice rewrites a drafted approval email to reference the
// generated return label. The label is produced after the draft, so the
// draft cannot mention the concrete file until the dispatch gate.
func (r *Renderer) AppendLabelNotice(emailPath, labelPath string) error {
	content, err := os.ReadFile(emailPath)
	if err != nil {
		return fmt.Errorf("read draft: %w", err)
	}
	section := fmt.Sprintf(`
---
ATTACHMENT: Return Shipping Label
- File: %s
- Location: %s

Please print this label and attach it to your return package.
---
`, filepath.Base(labelPath), labelPath)
	if err := os.WriteFile(emailPath, append(content, section...), 0o644); err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	return nil
}
