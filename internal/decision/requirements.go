package decision

import (
	"regexp"
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

// requirementLabels maps policy requirement codes to the operator-facing
// labels recorded in the missing-fields list.
var requirementLabels = map[string]string{
	"proof_of_purchase":       "proof_of_purchase",
	"serial_number":           "serial_number",
	"contact_info":            "contact_info (email, phone, or address)",
	"photos":                  "photos of the product issue",
	"business_license":        "business license (salon models)",
	"maintenance_description": "maintenance description",
	"adult_supervision":       "adult supervision confirmation",
	"recycling_confirmation":  "recycling confirmation",
	"us_address":              "US return address",
	"us_ca_address":           "US or Canada return address",
}

var (
	photoMention       = regexp.MustCompile(`\b(photo|picture|image)\b`)
	licenseMention     = regexp.MustCompile(`\b(business license|salon license|license number)\b`)
	maintenanceMention = regexp.MustCompile(`\b(clean|filter|maintenance|wipe)\b`)
	supervisionMention = regexp.MustCompile(`\b(supervision|supervised|adult present)\b`)
	recyclingMention   = regexp.MustCompile(`\b(recycle|recycling|return for recycling)\b`)
	zipPattern         = regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)
	postalCodePattern  = regexp.MustCompile(`\b[A-Z]\d[A-Z]\s?\d[A-Z]\d\b`)
)

var usStatePattern = regexp.MustCompile(
	`\b(AL|AK|AZ|AR|CA|CO|CT|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|` +
		`MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY)\b`)

var caProvincePattern = regexp.MustCompile(
	`\b(ON|QC|BC|AB|MB|NB|NL|NS|NT|NU|PE|SK|YT)\b`)

// AddressInUS reports whether an address looks like a US address: an
// explicit country mention, or a zip code alongside a state abbreviation.
func AddressInUS(address string) bool {
	if address == "" {
		return false
	}
	addr := strings.ToUpper(address)
	if strings.Contains(addr, "USA") || strings.Contains(addr, "UNITED STATES") {
		return true
	}
	return zipPattern.MatchString(addr) && usStatePattern.MatchString(addr)
}

// AddressInUSOrCanada extends AddressInUS with Canadian addresses: an
// explicit country mention, or a postal code alongside a province code.
func AddressInUSOrCanada(address string) bool {
	if AddressInUS(address) {
		return true
	}
	addr := strings.ToUpper(address)
	if strings.Contains(addr, "CANADA") {
		return true
	}
	return postalCodePattern.MatchString(addr) && caProvincePattern.MatchString(addr)
}

// MissingRequirements evaluates the policy's evidence requirements against
// the claim and returns the labels of those not satisfied.
func MissingRequirements(requirements []string, fields *models.ExtractedFields, msg *models.InboundMessage) []string {
	if fields == nil {
		fields = &models.ExtractedFields{}
	}
	body := strings.ToLower(msg.Body)
	address := deref(fields.CustomerAddress)

	hasPhotos := func() bool {
		for _, att := range msg.Attachments {
			low := strings.ToLower(att)
			for _, ext := range []string{".jpg", ".jpeg", ".png", ".heic"} {
				if strings.HasSuffix(low, ext) {
					return true
				}
			}
		}
		return photoMention.MatchString(body)
	}

	var missing []string
	fail := func(req string) {
		if label, ok := requirementLabels[req]; ok {
			missing = append(missing, label)
		} else {
			missing = append(missing, req)
		}
	}

	for _, req := range requirements {
		switch req {
		case "proof_of_purchase":
			if !fields.HasProofOfPurchase {
				fail(req)
			}
		case "serial_number":
			if deref(fields.ProductSerial) == "" {
				fail(req)
			}
		case "contact_info":
			if !fields.HasContactMethod() {
				fail(req)
			}
		case "photos":
			if !hasPhotos() {
				fail(req)
			}
		case "business_license":
			if !licenseMention.MatchString(body) {
				fail(req)
			}
		case "maintenance_description":
			if !maintenanceMention.MatchString(body) {
				fail(req)
			}
		case "adult_supervision":
			if !supervisionMention.MatchString(body) {
				fail(req)
			}
		case "recycling_confirmation":
			if !recyclingMention.MatchString(body) {
				fail(req)
			}
		case "us_address":
			if !AddressInUS(address) {
				fail(req)
			}
		case "us_ca_address":
			if !AddressInUSOrCanada(address) {
				fail(req)
			}
		}
	}
	return missing
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
