// Package extract pulls structured claim fields out of free-form message
// text. The model-backed extractor produces richer output; the functions
// here are the deterministic layer used both as fallback and as post-pass
// cleanup over model output.
package extract

import (
	"regexp"
	"strings"
	"time"
)

var (
	phonePattern  = regexp.MustCompile(`(\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	serialPattern = regexp.MustCompile(`(?i)(serial number|serial|s/n|sn)\s*[:#]?\s*([A-Za-z0-9-]{4,})`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	orderPattern  = regexp.MustCompile(`(?i)\b(order number|order|confirmation)\s*[:#]?\s*([A-Za-z0-9-]{6,})\b`)
	amazonPattern = regexp.MustCompile(`\b\d{3}-\d{7}-\d{7}\b`)
	digitsOnly    = regexp.MustCompile(`\D`)
	nonSerial     = regexp.MustCompile(`[^A-Za-z0-9-]`)
	multiSpace    = regexp.MustCompile(`\s{2,}`)
	isoDate       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`),
		regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`),
	}

	dateLayouts = []string{
		"2006-01-02",
		"1/2/2006",
		"1-2-2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		"2006/01/02",
	}
)

// NormalizeDate converts common date spellings to ISO YYYY-MM-DD. Strings
// it cannot parse are returned unchanged so the caller can still record
// what the customer wrote.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	for _, p := range datePatterns {
		if m := p.FindString(s); m != "" && m != s {
			return NormalizeDate(m)
		}
	}
	return s
}

// IsISODate reports whether s is already in YYYY-MM-DD form.
func IsISODate(s string) bool { return isoDate.MatchString(s) }

// NormalizePhone formats a US phone number as ###-###-#### when the digit
// count allows, otherwise returns the trimmed input.
func NormalizePhone(s string) string {
	digits := digitsOnly.ReplaceAllString(s, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) == 10 {
		return digits[0:3] + "-" + digits[3:6] + "-" + digits[6:]
	}
	return strings.TrimSpace(s)
}

// NormalizeSerial uppercases a serial and strips everything but
// alphanumerics and hyphens.
func NormalizeSerial(s string) string {
	return strings.ToUpper(nonSerial.ReplaceAllString(s, ""))
}

// NormalizeAddress joins address lines with commas and collapses runs of
// whitespace.
func NormalizeAddress(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	joined := multiSpace.ReplaceAllString(strings.Join(parts, ", "), " ")
	return strings.Trim(joined, " ,")
}

// PhoneFromText finds and normalizes the first phone number in text.
func PhoneFromText(text string) string {
	if m := phonePattern.FindString(text); m != "" {
		return NormalizePhone(m)
	}
	return ""
}

// SerialFromText finds a labeled serial number ("Serial: PS3K-...") in text.
func SerialFromText(text string) string {
	if m := serialPattern.FindStringSubmatch(text); m != nil {
		return NormalizeSerial(m[2])
	}
	return ""
}

// DateFromText finds the first recognizable date in text, normalized.
func DateFromText(text string) string {
	for _, p := range datePatterns {
		if m := p.FindString(text); m != "" {
			return NormalizeDate(m)
		}
	}
	return ""
}

// EmailFromText finds the first email address in text.
func EmailFromText(text string) string {
	return emailPattern.FindString(text)
}

// OrderNumberFromText finds an order or confirmation number in text.
func OrderNumberFromText(text string) string {
	if m := orderPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[2])
	}
	return amazonPattern.FindString(text)
}

var (
	streetNumber  = regexp.MustCompile(`\d{1,6}\s+\w+`)
	streetKeyword = regexp.MustCompile(`\b(street|st|avenue|ave|road|rd|blvd|boulevard|lane|ln|drive|dr|court|ct|way|circle|cir|parkway|pkwy)\b`)
	zipCode       = regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)
	stateAbbrev   = regexp.MustCompile(`\b[A-Z]{2}\b\s+\d{5}(-\d{4})?\b`)
	anyLetter     = regexp.MustCompile(`[A-Z]`)
)

func isStreetLine(line string) bool {
	return streetNumber.MatchString(line) && streetKeyword.MatchString(strings.ToLower(line))
}

func isCityStateLine(line string) bool {
	upper := strings.ToUpper(line)
	if stateAbbrev.MatchString(upper) {
		return true
	}
	return zipCode.MatchString(upper) && anyLetter.MatchString(upper)
}

// AddressFromText finds a likely postal address: a street line, optionally
// followed by a city/state/zip line, or a bare city/state/zip line.
func AddressFromText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	for i, line := range lines {
		if isStreetLine(line) {
			parts := []string{line}
			if i+1 < len(lines) && isCityStateLine(lines[i+1]) {
				parts = append(parts, lines[i+1])
			}
			return NormalizeAddress(strings.Join(parts, ", "))
		}
	}
	for _, line := range lines {
		if isCityStateLine(line) {
			return NormalizeAddress(line)
		}
	}
	return ""
}
