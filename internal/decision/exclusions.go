package decision

import (
	"regexp"
	"strings"
)

const negationWindow = 12

var (
	wsRun    = regexp.MustCompile(`\s+`)
	negation = regexp.MustCompile(`\b(no|not|never)\b`)
)

func normalizeText(s string) string {
	return strings.TrimSpace(wsRun.ReplaceAllString(strings.ToLower(s), " "))
}

// keywordPresent reports whether keyword occurs in text without a negation
// word ("no", "not", "never") in the 12 characters preceding it.
func keywordPresent(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	idx := strings.Index(text, keyword)
	if idx == -1 {
		return false
	}
	start := idx - negationWindow
	if start < 0 {
		start = 0
	}
	return !negation.MatchString(text[start:idx])
}

// FindExclusionHits returns the policy exclusion keywords that appear,
// unnegated, in the claim text. Keywords are matched case-insensitively
// against normalized text; the original keyword spelling is returned.
func FindExclusionHits(text string, keywords []string) []string {
	normalized := normalizeText(text)
	var hits []string
	for _, kw := range keywords {
		if n := normalizeText(kw); n != "" && keywordPresent(normalized, n) {
			hits = append(hits, kw)
		}
	}
	return hits
}
