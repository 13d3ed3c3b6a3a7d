package pipeline

import (
	"context"
	"fmt"

	"github.com/hairtech/claimflow/internal/dispatch"
	"github.com/hairtech/claimflow/internal/extract"
	"github.com/hairtech/claimflow/internal/retrieval"
	"github.com/hairtech/claimflow/pkg/models"
)

// triageStage classifies the message. A cheap rule-based spam scan runs
// before the model; the model's failure mode is CLAIM, never silence, so a
// misclassified message still reaches a human.
func (p *Pipeline) triageStage(ctx context.Context, claim *models.Claim) error {
	if claim.Triage != nil {
		return nil
	}

	if spamScore(&claim.Message) >= 2 {
		claim.Triage = &models.Triage{
			Result:     models.TriageSpam,
			Reason:     "Multiple spam indicators detected",
			Confidence: 0.95,
		}
		claim.Status = models.StatusTriaged
		return nil
	}

	if p.advisor == nil {
		claim.Triage = &models.Triage{
			Result:     models.TriageClaim,
			Reason:     "No classifier configured, defaulting to CLAIM",
			Confidence: 0.5,
		}
		claim.Status = models.StatusTriaged
		return nil
	}

	triage, err := p.advisor.Classify(ctx, &claim.Message)
	if err != nil {
		claim.Triage = &models.Triage{
			Result:     models.TriageClaim,
			Reason:     fmt.Sprintf("Classifier error, defaulting to CLAIM: %v", err),
			Confidence: 0.5,
		}
		claim.Status = models.StatusTriaged
		return nil
	}
	claim.Triage = triage
	claim.Model = p.advisor.ModelName()
	claim.Status = models.StatusTriaged
	return nil
}

// extractStage pulls structured fields from the message. The model's output
// is gap-filled and normalized deterministically; if the model is absent or
// fails, the deterministic extractor runs alone.
func (p *Pipeline) extractStage(ctx context.Context, claim *models.Claim) error {
	if claim.Extracted != nil {
		return nil
	}

	var fields *models.ExtractedFields
	if p.advisor != nil {
		var err error
		fields, err = p.advisor.Extract(ctx, &claim.Message)
		if err != nil {
			p.log.Warn().Str("claim", claim.ClaimID).Err(err).
				Msg("model extraction failed, using deterministic extractor")
			fields = nil
		}
	}
	if fields == nil {
		fields = p.extractor.Extract(&claim.Message)
	} else {
		p.extractor.FillGaps(fields, &claim.Message)
	}

	claim.Extracted = fields
	claim.ExtractionConfidence = extract.Confidence(fields)
	claim.Status = models.StatusExtracted
	return nil
}

// resolveStage matches the product mention and serial against the catalog
// and selects the dated policy version. A no-match resolution is a valid
// outcome, not an error.
func (p *Pipeline) resolveStage(_ context.Context, claim *models.Claim) error {
	var mention, serial, purchaseDate string
	if ext := claim.Extracted; ext != nil {
		mention = deref(ext.ProductName)
		serial = deref(ext.ProductSerial)
		purchaseDate = deref(ext.PurchaseDate)
	}
	claim.Resolution = p.resolver.Resolve(mention, serial, purchaseDate)
	return nil
}

// retrieveStage fetches policy excerpts grounding the analysis. Retrieval
// failure degrades to analysis without excerpts.
func (p *Pipeline) retrieveStage(ctx context.Context, claim *models.Claim) error {
	if p.retriever == nil {
		return nil
	}

	req := retrieval.Request{}
	if ext := claim.Extracted; ext != nil {
		req.IssueDescription = deref(ext.IssueDescription)
		req.ProductName = deref(ext.ProductName)
	}
	if res := claim.Resolution; res != nil {
		if name := deref(res.ProductName); name != "" {
			req.ProductName = name
		}
		req.PolicyID = deref(res.PolicyID)
		req.PolicyFile = deref(res.PolicyFile)
		req.ProductID = deref(res.ProductID)
	}

	excerpts, err := p.retriever.Retrieve(ctx, req)
	if err != nil {
		return fmt.Errorf("policy retrieval: %w", err)
	}
	claim.Excerpts = excerpts
	return nil
}

// analyzeStage runs the deterministic decision ladder; the engine invokes
// the advisor itself only when no hard rule fires, and recovers locally
// from advisor failures.
func (p *Pipeline) analyzeStage(ctx context.Context, claim *models.Claim) error {
	claim.Analysis = p.engine.Evaluate(ctx, claim, p.now())
	claim.Status = models.StatusAnalyzed
	return nil
}

// packetStage writes the reviewer packet. Skipped when already produced so
// a replayed advance does not regenerate it.
func (p *Pipeline) packetStage(_ context.Context, claim *models.Claim) error {
	defer func() { claim.Status = models.StatusAwaitingReview }()
	if claim.Outputs.ReviewPacketPath != "" {
		return nil
	}
	art, err := p.renderer.ReviewPacket(claim)
	if err != nil {
		return fmt.Errorf("review packet: %w", err)
	}
	claim.Outputs.ReviewPacketPath = art.Path
	return nil
}

// draftStage renders the customer response for the review decision. The
// draft is mandatory for dispatch, so failure here is terminal.
func (p *Pipeline) draftStage(_ context.Context, claim *models.Claim) error {
	defer func() { claim.Status = models.StatusAwaitingEmail }()
	if claim.Outputs.ResponseDraft != "" {
		return nil
	}
	art, err := p.renderer.DraftResponse(claim)
	if err != nil {
		return terminal("draft response: %w", err)
	}
	claim.Outputs.ResponseDraft = art.Content
	claim.Outputs.ResponsePath = art.Path
	return nil
}

// dispatchStage sends the drafted response through the idempotent dispatch
// layer. Runs only after the dispatch interrupt is confirmed; a claim whose
// send already committed skips straight through.
func (p *Pipeline) dispatchStage(ctx context.Context, claim *models.Claim) error {
	if claim.Outputs.EmailSent {
		return nil
	}

	recipient := claim.Message.From
	if ext := claim.Extracted; ext != nil {
		if email := deref(ext.CustomerEmail); email != "" {
			recipient = email
		}
	}
	subject, body := dispatch.ParseDraft(claim.Outputs.ResponseDraft,
		"Warranty Claim Update - "+claim.ClaimID)

	email := dispatch.Email{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	}
	if claim.Outputs.ReturnLabelPath != "" {
		email.Attachments = []string{claim.Outputs.ReturnLabelPath}
	}

	res, err := p.dispatcher.Send(ctx, claim.ClaimID, claim.Message.ID, email)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	claim.Outputs.DispatchKey = res.Key
	claim.Outputs.DispatchStatus = string(res.Status)
	if !res.OK {
		return fmt.Errorf("dispatch: %s", res.Error)
	}
	claim.Outputs.EmailSent = true
	if res.Duplicate {
		p.log.Info().Str("claim", claim.ClaimID).Str("key", res.Key).
			Msg("payload already sent, skipping provider")
	}
	return nil
}

// completeStage closes out the claim: non-claims get their redirect draft,
// the audit log and summary are written, and the record moves to the audit
// store. Artifact failures degrade; losing the audit row does not.
func (p *Pipeline) completeStage(_ context.Context, claim *models.Claim) error {
	if claim.Triage != nil && claim.Triage.Result == models.TriageNonClaim &&
		claim.Outputs.ResponsePath == "" {
		art, err := p.renderer.DraftNonClaimResponse(claim)
		if err != nil {
			p.log.Warn().Str("claim", claim.ClaimID).Err(err).Msg("non-claim draft failed")
		} else {
			claim.Outputs.ResponseDraft = art.Content
			claim.Outputs.ResponsePath = art.Path
		}
	}

	completed := p.now()
	claim.ProcessingCompleted = &completed
	claim.Status = models.StatusCompleted

	auditPath, err := p.renderer.WriteAudit(claim)
	if err != nil {
		p.log.Warn().Str("claim", claim.ClaimID).Err(err).Msg("audit artifact failed")
	} else if _, err := p.renderer.WriteSummary(claim, auditPath); err != nil {
		p.log.Warn().Str("claim", claim.ClaimID).Err(err).Msg("summary artifact failed")
	}

	if err := p.store.SaveClaim(claim, completed); err != nil {
		// A degrading error here would route to done and drop the
		// checkpoint, leaving the claim with no durable record at all.
		return terminal("save claim record: %w", err)
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
