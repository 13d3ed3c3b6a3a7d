package extract

import (
	"regexp"
	"strings"

	"github.com/hairtech/claimflow/internal/catalog"
	"github.com/hairtech/claimflow/pkg/models"
)

// MissingContactInfo is the entry used in the missing-fields list when no
// contact method at all is present.
const MissingContactInfo = "contact_info (email, phone, or address)"

var requiredFields = []string{"customer_name", "product_name", "purchase_date", "issue_description"}

var issueKeywords = []string{
	"stopped working", "not working", "won't", "doesn't",
	"no heat", "no power", "broken", "defect",
}

var proofPattern = regexp.MustCompile(`(?i)\b(receipt|order|confirmation|invoice|proof of purchase)\b`)

var proofAttachmentKeywords = []string{"receipt", "order", "confirmation", "invoice"}

var signatureMarkers = []string{"thanks", "thank you", "sincerely", "regards", "best", "cheers"}

var hasDigit = regexp.MustCompile(`\d`)

// Extractor performs deterministic field extraction against a product
// catalog. It is the fallback when the model extractor fails, and supplies
// the gap-filling pass over model output.
type Extractor struct {
	catalog *catalog.Catalog
}

// NewExtractor creates a deterministic extractor over the given catalog.
func NewExtractor(cat *catalog.Catalog) *Extractor {
	return &Extractor{catalog: cat}
}

// Extract derives structured fields from a message without any model call.
func (e *Extractor) Extract(msg *models.InboundMessage) *models.ExtractedFields {
	sourceText := strings.TrimSpace(msg.Body + "\n\n" + msg.AttachmentText)

	fields := &models.ExtractedFields{
		CustomerName:     optional(nameFromSignature(msg.Body)),
		CustomerPhone:    optional(PhoneFromText(sourceText)),
		CustomerAddress:  optional(AddressFromText(sourceText)),
		ProductName:      optional(e.productInText(sourceText)),
		ProductSerial:    optional(SerialFromText(sourceText)),
		PurchaseDate:     optional(DateFromText(sourceText)),
		OrderNumber:      optional(OrderNumberFromText(sourceText)),
		IssueDescription: optional(issueFromBody(msg.Body)),
	}

	if strings.Contains(msg.From, "@") {
		fields.CustomerEmail = optional(strings.TrimSpace(msg.From))
	} else {
		fields.CustomerEmail = optional(EmailFromText(sourceText))
	}

	fields.HasProofOfPurchase = HasProofOfPurchase(msg.Body, msg.AttachmentText, msg.Attachments)
	fields.MissingFields = MissingFields(fields)
	return fields
}

// FillGaps overlays deterministic extraction onto model output: any field
// the model left empty is filled from the message text, known fields are
// normalized, and the missing list is recomputed.
func (e *Extractor) FillGaps(fields *models.ExtractedFields, msg *models.InboundMessage) {
	combined := strings.TrimSpace(msg.Body + "\n\nAttachment text:\n" + msg.AttachmentText)

	if !set(fields.CustomerEmail) && strings.Contains(msg.From, "@") {
		fields.CustomerEmail = optional(strings.TrimSpace(msg.From))
	}
	if !set(fields.CustomerPhone) {
		fields.CustomerPhone = optional(PhoneFromText(combined))
	}
	if !set(fields.ProductSerial) {
		fields.ProductSerial = optional(SerialFromText(combined))
	}
	if !set(fields.PurchaseDate) {
		fields.PurchaseDate = optional(DateFromText(combined))
	}
	if !set(fields.CustomerAddress) {
		fields.CustomerAddress = optional(AddressFromText(combined))
	}

	if set(fields.CustomerPhone) {
		fields.CustomerPhone = optional(NormalizePhone(*fields.CustomerPhone))
	}
	if set(fields.ProductSerial) {
		fields.ProductSerial = optional(NormalizeSerial(*fields.ProductSerial))
	}
	if set(fields.CustomerAddress) {
		fields.CustomerAddress = optional(NormalizeAddress(*fields.CustomerAddress))
	}
	if set(fields.PurchaseDate) {
		normalized := NormalizeDate(*fields.PurchaseDate)
		if !IsISODate(normalized) {
			if fallback := DateFromText(normalized); fallback != "" {
				normalized = fallback
			}
		}
		fields.PurchaseDate = optional(normalized)
	}

	if !fields.HasProofOfPurchase {
		fields.HasProofOfPurchase = HasProofOfPurchase(msg.Body, msg.AttachmentText, msg.Attachments)
	}
	fields.MissingFields = MissingFields(fields)
}

// Confidence scores extraction completeness as filled-fields over the ten
// extractable fields.
func Confidence(fields *models.ExtractedFields) float64 {
	filled := 0
	for _, p := range []*string{
		fields.CustomerName, fields.CustomerEmail, fields.CustomerPhone,
		fields.CustomerAddress, fields.ProductName, fields.ProductSerial,
		fields.PurchaseDate, fields.PurchaseLocation, fields.OrderNumber,
		fields.IssueDescription,
	} {
		if p != nil && *p != "" {
			filled++
		}
	}
	return float64(filled) / 10.0
}

// MissingFields lists the required fields that are absent. At least one
// contact method (email, phone, or address) must be present.
func MissingFields(fields *models.ExtractedFields) []string {
	byName := map[string]*string{
		"customer_name":     fields.CustomerName,
		"product_name":      fields.ProductName,
		"purchase_date":     fields.PurchaseDate,
		"issue_description": fields.IssueDescription,
	}

	var missing []string
	for _, name := range requiredFields {
		if !set(byName[name]) {
			missing = append(missing, name)
		}
	}
	if !fields.HasContactMethod() {
		missing = append(missing, MissingContactInfo)
	}
	return missing
}

// HasProofOfPurchase checks attachment names first, then the message text,
// for receipt-like evidence.
func HasProofOfPurchase(body, attachmentText string, attachments []string) bool {
	for _, att := range attachments {
		low := strings.ToLower(att)
		for _, kw := range proofAttachmentKeywords {
			if strings.Contains(low, kw) {
				return true
			}
		}
	}
	return proofPattern.MatchString(body + "\n" + attachmentText)
}

// productInText matches the longest catalog name or alias contained in the
// text, returning the canonical product name.
func (e *Extractor) productInText(text string) string {
	haystack := normText(text)
	if haystack == "" || e.catalog == nil {
		return ""
	}

	best, bestLen := "", 0
	for _, product := range e.catalog.Products {
		for _, name := range append([]string{product.Name}, product.Aliases...) {
			needle := normText(name)
			if needle == "" || !strings.Contains(haystack, needle) {
				continue
			}
			if len(needle) > bestLen {
				best, bestLen = product.Name, len(needle)
			}
		}
	}
	return best
}

var wsRun = regexp.MustCompile(`\s+`)

func normText(s string) string {
	return strings.ToLower(strings.TrimSpace(wsRun.ReplaceAllString(s, " ")))
}

// nameFromSignature looks for a sign-off marker and takes the next line as
// the customer name; failing that, the last line if it looks name-like.
func nameFromSignature(body string) string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	for i, line := range lines {
		low := strings.Trim(strings.ToLower(line), " :,")
		for _, marker := range signatureMarkers {
			if low == marker || strings.HasPrefix(low, marker) {
				if i+1 < len(lines) {
					if candidate := strings.Trim(lines[i+1], " ,"); looksLikeName(candidate) {
						return candidate
					}
				}
				break
			}
		}
	}

	if tail := strings.Trim(lines[len(lines)-1], " ,"); looksLikeName(tail) {
		return tail
	}
	return ""
}

func looksLikeName(s string) bool {
	return len(s) >= 1 && len(s) <= 60 && !strings.Contains(s, "@") && !hasDigit.MatchString(s)
}

// issueFromBody returns the first line containing a failure keyword, or a
// 400-character prefix of the body when no line matches.
func issueFromBody(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		low := strings.ToLower(line)
		for _, kw := range issueKeywords {
			if strings.Contains(low, kw) {
				return line
			}
		}
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) > 400 {
		trimmed = trimmed[:400]
	}
	return trimmed
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func set(p *string) bool { return p != nil && *p != "" }
