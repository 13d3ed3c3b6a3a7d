package advisor

import (
	"context"
	"time"

	"github.com/hairtech/claimflow/internal/decision"
	"github.com/hairtech/claimflow/pkg/models"
)

// Advisor is the reasoning capability consumed by the pipeline. All three
// calls are pure with respect to the claim; callers own fallback behavior.
type Advisor interface {
	Classify(ctx context.Context, msg *models.InboundMessage) (*models.Triage, error)
	Extract(ctx context.Context, msg *models.InboundMessage) (*models.ExtractedFields, error)
	Analyze(ctx context.Context, claim *models.Claim) (*models.Analysis, error)
}

// DefaultTimeout bounds each model call.
const DefaultTimeout = 60 * time.Second

const (
	classifyMaxTokens = 512
	extractMaxTokens  = 1024
	analyzeMaxTokens  = 2048
)

// ModelAdvisor implements Advisor against the Anthropic API.
type ModelAdvisor struct {
	client  *Client
	timeout time.Duration
}

var _ Advisor = (*ModelAdvisor)(nil)
var _ decision.Advisor = (*ModelAdvisor)(nil)

// New creates a model advisor. timeout <= 0 selects DefaultTimeout.
func New(client *Client, timeout time.Duration) *ModelAdvisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ModelAdvisor{client: client, timeout: timeout}
}

// ModelName reports the configured model, for audit records.
func (a *ModelAdvisor) ModelName() string {
	return string(a.client.Model())
}

// Usage reports the token totals and call count accumulated across this
// advisor's API calls.
func (a *ModelAdvisor) Usage() (input, output int64, calls int) {
	t := a.client.Tracker()
	input, output = t.Total()
	return input, output, t.Calls()
}

// Classify triages a message into CLAIM / NON_CLAIM / SPAM.
func (a *ModelAdvisor) Classify(ctx context.Context, msg *models.InboundMessage) (*models.Triage, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.complete(ctx, triagePrompt(msg), classifyMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseTriage(raw)
}

// Extract pulls structured claim fields out of a message.
func (a *ModelAdvisor) Extract(ctx context.Context, msg *models.InboundMessage) (*models.ExtractedFields, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.complete(ctx, extractPrompt(msg), extractMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseExtracted(raw)
}

// Analyze produces a recommendation for a claim that passed every
// deterministic check.
func (a *ModelAdvisor) Analyze(ctx context.Context, claim *models.Claim) (*models.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var purchaseDate string
	if claim.Extracted != nil && claim.Extracted.PurchaseDate != nil {
		purchaseDate = *claim.Extracted.PurchaseDate
	}
	evaluation := decision.EvaluationTime(claim.Message.Date, time.Now())
	_, warrantyCheck := decision.CheckWarrantyWindow(purchaseDate, evaluation, decision.DefaultWarrantyDays)

	raw, err := a.client.complete(ctx, analysisPrompt(claim, warrantyCheck), analyzeMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(raw)
}
