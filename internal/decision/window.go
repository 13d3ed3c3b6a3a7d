// Package decision implements the deterministic checks that gate the
// analysis stage: warranty window, policy exclusions, completeness, and
// per-policy evidence requirements. Only when every check passes does the
// engine consult the model advisor.
package decision

import (
	"fmt"
	"time"
)

// DefaultWarrantyDays is the standard warranty window.
const DefaultWarrantyDays = 90

// CheckWarrantyWindow determines whether a purchase falls inside the
// warranty window as of the evaluation time. The returned pointer is nil
// when validity cannot be determined (no date, or unparseable date), which
// callers must treat as distinct from false.
func CheckWarrantyWindow(purchaseDate string, evaluation time.Time, windowDays int) (*bool, string) {
	if purchaseDate == "" {
		return nil, "Purchase date not provided - cannot verify warranty window"
	}
	purchased, err := time.Parse("2006-01-02", purchaseDate)
	if err != nil {
		return nil, fmt.Sprintf("Could not parse purchase date %q", purchaseDate)
	}

	// Compare at date granularity so a claim on the last warranty day is
	// still in-window regardless of time of day.
	y, m, d := evaluation.Date()
	evalDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	expiration := purchased.AddDate(0, 0, windowDays)
	valid := !evalDay.After(expiration)

	daysSince := int(evalDay.Sub(purchased).Hours() / 24)
	daysRemaining := int(expiration.Sub(evalDay).Hours() / 24)

	var explanation string
	if valid {
		explanation = fmt.Sprintf(
			"Within warranty period. Purchased %d days ago. %d days remaining in warranty.",
			daysSince, daysRemaining)
	} else {
		explanation = fmt.Sprintf(
			"Outside warranty period. Purchased %d days ago. Warranty expired %d days ago.",
			daysSince, -daysRemaining)
	}
	return &valid, explanation
}

// EvaluationTime picks the reference time for the warranty check: the
// message date when it parses, otherwise now.
func EvaluationTime(messageDate string, now time.Time) time.Time {
	if messageDate == "" {
		return now
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, messageDate); err == nil {
			return t
		}
	}
	return now
}
