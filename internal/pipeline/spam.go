package pipeline

import (
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

// spamScore counts cheap spam indicators in a message. Two or more is taken
// as spam without consulting the classifier.
func spamScore(msg *models.InboundMessage) int {
	body := strings.ToLower(msg.Body)
	from := strings.ToLower(msg.From)

	indicators := []bool{
		strings.Contains(body, "unsubscribe"),
		strings.Contains(body, "click here") && strings.Contains(body, "http"),
		strings.Contains(body, "act now") || strings.Contains(body, "act fast"),
		strings.Contains(body, "wholesale") && strings.Contains(body, "price"),
		strings.Contains(body, "credit card") && strings.Contains(body, "verify"),
		strings.Contains(from, ".scam") || strings.Contains(from, "fake"),
		strings.Count(msg.Body, "!") > 10,
	}

	score := 0
	for _, hit := range indicators {
		if hit {
			score++
		}
	}
	return score
}
