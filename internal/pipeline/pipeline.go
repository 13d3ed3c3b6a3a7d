// Package pipeline sequences a claim through the processing stages: triage,
// extraction, catalog/policy resolution, retrieval, analysis, the human
// review interrupt, response drafting, the dispatch interrupt, and
// completion. Stages are composed by an explicit stage list and routing
// table; the single re-entrant Advance entry point replays from the last
// checkpoint, so resume can happen in a different process entirely.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hairtech/claimflow/internal/catalog"
	"github.com/hairtech/claimflow/internal/decision"
	"github.com/hairtech/claimflow/internal/dispatch"
	"github.com/hairtech/claimflow/internal/extract"
	"github.com/hairtech/claimflow/internal/render"
	"github.com/hairtech/claimflow/internal/retrieval"
	"github.com/hairtech/claimflow/internal/state"
	"github.com/hairtech/claimflow/pkg/models"
)

// Stage names the orchestrator's next runnable unit of work. Stored in the
// checkpoint, so renaming a stage breaks in-flight claims.
type Stage string

const (
	StageTriage   Stage = "triage"
	StageExtract  Stage = "extract"
	StageResolve  Stage = "resolve"
	StageRetrieve Stage = "retrieve"
	StageAnalyze  Stage = "analyze"
	StagePacket   Stage = "review_packet"
	StageDraft    Stage = "draft_response"
	StageDispatch Stage = "dispatch"
	StageComplete Stage = "complete"
	StageDone     Stage = "done"
)

// Interrupt identifies which external input a parked claim is waiting for.
type Interrupt string

const (
	InterruptNone     Interrupt = ""
	InterruptReview   Interrupt = "review"
	InterruptDispatch Interrupt = "dispatch"
)

// ResumeInput carries the external input that satisfies an interrupt:
// a reviewer decision for the review interrupt, a send confirmation for the
// dispatch interrupt. Both may be set; each is consumed at its own interrupt.
type ResumeInput struct {
	Decision    *models.HumanDecision
	ConfirmSend bool
}

var (
	// ErrUnknownClaim means no checkpoint exists for the claim id.
	ErrUnknownClaim = errors.New("no checkpoint for claim")
	// ErrLabelRequired blocks dispatch of an approved claim until a return
	// label has been generated.
	ErrLabelRequired = errors.New("approved claim needs a return label before dispatch")
	// ErrClaimHalted is returned when advancing a claim in ERROR state.
	ErrClaimHalted = errors.New("claim is halted with an error")
)

// Advisor is the reasoning capability the pipeline's early stages call.
// Analysis goes through the decision engine, which holds its own advisor.
type Advisor interface {
	Classify(ctx context.Context, msg *models.InboundMessage) (*models.Triage, error)
	Extract(ctx context.Context, msg *models.InboundMessage) (*models.ExtractedFields, error)
	ModelName() string
}

type stageFunc func(ctx context.Context, claim *models.Claim) error

type routeFunc func(claim *models.Claim) Stage

// Config wires the pipeline's collaborators. Store, Engine, Resolver,
// Extractor, Renderer, and Dispatcher are required; Advisor may be nil for
// fully deterministic offline processing, Retriever may be nil to skip
// excerpt retrieval.
type Config struct {
	Store      state.Store
	Advisor    Advisor
	Engine     *decision.Engine
	Resolver   *catalog.Resolver
	Retriever  *retrieval.Retriever
	Extractor  *extract.Extractor
	Renderer   *render.Renderer
	Dispatcher *dispatch.Dispatcher
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Pipeline drives claims through the stage graph. One claim is advanced by
// one logical task at a time; distinct claims may advance concurrently.
type Pipeline struct {
	store      state.Store
	advisor    Advisor
	engine     *decision.Engine
	resolver   *catalog.Resolver
	retriever  *retrieval.Retriever
	extractor  *extract.Extractor
	renderer   *render.Renderer
	dispatcher *dispatch.Dispatcher
	log        zerolog.Logger
	now        func() time.Time

	stages map[Stage]stageFunc
	routes map[Stage]routeFunc
}

// New builds a pipeline from its collaborators.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		store:      cfg.Store,
		advisor:    cfg.Advisor,
		engine:     cfg.Engine,
		resolver:   cfg.Resolver,
		retriever:  cfg.Retriever,
		extractor:  cfg.Extractor,
		renderer:   cfg.Renderer,
		dispatcher: cfg.Dispatcher,
		log:        cfg.Logger,
		now:        cfg.Now,
	}
	if p.now == nil {
		p.now = time.Now
	}

	p.stages = map[Stage]stageFunc{
		StageTriage:   p.triageStage,
		StageExtract:  p.extractStage,
		StageResolve:  p.resolveStage,
		StageRetrieve: p.retrieveStage,
		StageAnalyze:  p.analyzeStage,
		StagePacket:   p.packetStage,
		StageDraft:    p.draftStage,
		StageDispatch: p.dispatchStage,
		StageComplete: p.completeStage,
	}

	to := func(next Stage) routeFunc {
		return func(*models.Claim) Stage { return next }
	}
	p.routes = map[Stage]routeFunc{
		StageTriage: func(c *models.Claim) Stage {
			if c.Triage != nil && c.Triage.Result == models.TriageClaim {
				return StageExtract
			}
			return StageComplete
		},
		StageExtract:  to(StageResolve),
		StageResolve:  to(StageRetrieve),
		StageRetrieve: to(StageAnalyze),
		// No auto-approve path: every analyzed claim goes to review.
		StageAnalyze:  to(StagePacket),
		StagePacket:   to(StageDraft),
		StageDraft:    to(StageDispatch),
		StageDispatch: to(StageComplete),
		StageComplete: to(StageDone),
	}
	return p
}

// Process creates a claim for an inbound message and advances it to its
// first interrupt or terminal state.
func (p *Pipeline) Process(ctx context.Context, msg *models.InboundMessage) (*models.Claim, Interrupt, error) {
	claim := models.NewClaim(msg.ID, p.now())
	claim.Message = *msg

	if !claim.Message.Populated() {
		claim.Status = models.StatusError
		claim.ErrorMessage = fmt.Sprintf("message %s is missing sender, subject, or body", msg.ID)
		if err := p.checkpoint(claim, StageTriage); err != nil {
			return claim, InterruptNone, err
		}
		return claim, InterruptNone, fmt.Errorf("ingest %s: %s", msg.ID, claim.ErrorMessage)
	}

	if err := p.checkpoint(claim, StageTriage); err != nil {
		return claim, InterruptNone, err
	}
	p.log.Info().Str("claim", claim.ClaimID).Str("message", msg.ID).Msg("claim created")
	return p.advance(ctx, claim, StageTriage, nil)
}

// Advance resumes a checkpointed claim. With a nil input it replays from the
// last checkpoint and stops at the same interrupt; with a decision payload
// or send confirmation it satisfies the corresponding interrupt and
// continues. Safe to call repeatedly: committed side effects are skipped.
func (p *Pipeline) Advance(ctx context.Context, claimID string, input *ResumeInput) (*models.Claim, Interrupt, error) {
	cp, err := p.store.GetCheckpoint(claimID)
	if err != nil {
		return nil, InterruptNone, fmt.Errorf("load checkpoint %s: %w", claimID, err)
	}
	if cp == nil {
		return nil, InterruptNone, fmt.Errorf("%w: %s", ErrUnknownClaim, claimID)
	}
	claim := cp.Record
	if claim.Status == models.StatusError {
		return claim, InterruptNone, fmt.Errorf("%w: %s", ErrClaimHalted, claim.ErrorMessage)
	}
	return p.advance(ctx, claim, Stage(cp.NextStage), input)
}

// advance runs stages until an interrupt or terminal state, checkpointing
// after every stage so a crash never loses more than the stage in flight.
func (p *Pipeline) advance(ctx context.Context, claim *models.Claim, stage Stage, input *ResumeInput) (*models.Claim, Interrupt, error) {
	for {
		switch stage {
		case StageDone:
			return claim, InterruptNone, nil

		case StageDraft:
			if claim.Human == nil {
				if input == nil || input.Decision == nil {
					return p.park(claim, stage, InterruptReview)
				}
				if !input.Decision.Decision.Valid() {
					_, _, err := p.park(claim, stage, InterruptReview)
					if err != nil {
						return claim, InterruptNone, err
					}
					return claim, InterruptReview, fmt.Errorf("invalid review decision %q", input.Decision.Decision)
				}
				h := *input.Decision
				if h.Timestamp.IsZero() {
					h.Timestamp = p.now()
				}
				claim.Human = &h
				claim.Status = models.StatusReviewed
				p.log.Info().Str("claim", claim.ClaimID).
					Str("decision", string(h.Decision)).Str("reviewer", h.Reviewer).
					Msg("review decision recorded")
			}

		case StageDispatch:
			if !claim.Outputs.EmailSent {
				if input == nil || !input.ConfirmSend {
					return p.park(claim, stage, InterruptDispatch)
				}
				if claim.Human != nil && claim.Human.Decision == models.RecommendApprove &&
					claim.Outputs.ReturnLabelPath == "" {
					_, _, err := p.park(claim, stage, InterruptDispatch)
					if err != nil {
						return claim, InterruptNone, err
					}
					return claim, InterruptDispatch, ErrLabelRequired
				}
			}
		}

		fn := p.stages[stage]
		work := claim.Clone()
		err := fn(ctx, work)
		switch {
		case err == nil:
			claim = work
		case stage == StageDispatch:
			// Dispatch failures stay parked at the gate and are retried by
			// confirming again; the ledger makes the retry idempotent.
			claim = work
			claim.ErrorMessage = err.Error()
			p.log.Error().Str("claim", claim.ClaimID).Err(err).Msg("dispatch failed")
			if _, _, perr := p.park(claim, stage, InterruptDispatch); perr != nil {
				return claim, InterruptNone, perr
			}
			return claim, InterruptDispatch, err
		default:
			var term *terminalError
			if errors.As(err, &term) {
				claim.Status = models.StatusError
				claim.ErrorMessage = term.Error()
				p.log.Error().Str("claim", claim.ClaimID).Str("stage", string(stage)).
					Err(term.err).Msg("stage failed, claim halted")
				if cerr := p.checkpoint(claim, stage); cerr != nil {
					return claim, InterruptNone, cerr
				}
				return claim, InterruptNone, term.err
			}
			// Degraded: record and proceed with defaults.
			claim.ErrorMessage = err.Error()
			p.log.Warn().Str("claim", claim.ClaimID).Str("stage", string(stage)).
				Err(err).Msg("stage degraded, continuing")
		}

		stage = p.routes[stage](claim)
		if stage == StageDone {
			if err := p.store.DeleteCheckpoint(claim.ClaimID); err != nil {
				return claim, InterruptNone, fmt.Errorf("clear checkpoint: %w", err)
			}
			p.log.Info().Str("claim", claim.ClaimID).Str("status", string(claim.Status)).Msg("claim finished")
			return claim, InterruptNone, nil
		}
		if err := p.checkpoint(claim, stage); err != nil {
			return claim, InterruptNone, err
		}
	}
}

// GenerateLabel creates the return label for an approved claim parked at
// the dispatch interrupt. Idempotent: an existing label is kept as-is.
func (p *Pipeline) GenerateLabel(ctx context.Context, claimID string) (*models.Claim, error) {
	cp, err := p.store.GetCheckpoint(claimID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", claimID, err)
	}
	if cp == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClaim, claimID)
	}
	claim := cp.Record
	if Stage(cp.NextStage) != StageDispatch {
		return claim, fmt.Errorf("claim %s is not awaiting dispatch", claimID)
	}
	if claim.Outputs.ReturnLabelPath != "" {
		return claim, nil
	}

	label, err := p.renderer.ReturnLabel(claim)
	if err != nil {
		return claim, err
	}
	claim.Outputs.ReturnLabelPath = label.Path
	if claim.Outputs.ResponsePath != "" {
		if err := p.renderer.AppendLabelNotice(claim.Outputs.ResponsePath, label.Path); err != nil {
			p.log.Warn().Str("claim", claimID).Err(err).Msg("could not reference label in draft")
		}
	}
	p.log.Info().Str("claim", claimID).Str("tracking", label.Tracking).Msg("return label generated")

	if err := p.checkpoint(claim, StageDispatch); err != nil {
		return claim, err
	}
	return claim, nil
}

// park persists the checkpoint and reports the interrupt the claim waits at.
func (p *Pipeline) park(claim *models.Claim, stage Stage, intr Interrupt) (*models.Claim, Interrupt, error) {
	if err := p.checkpoint(claim, stage); err != nil {
		return claim, InterruptNone, err
	}
	return claim, intr, nil
}

// checkpoint persists the claim and next-stage pointer. Checkpoint failures
// are fatal: no progress can be safely recorded without one.
func (p *Pipeline) checkpoint(claim *models.Claim, next Stage) error {
	err := p.store.SaveCheckpoint(&state.Checkpoint{
		ClaimID:   claim.ClaimID,
		NextStage: string(next),
		Record:    claim,
		UpdatedAt: p.now(),
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", claim.ClaimID, err)
	}
	return nil
}

// terminalError marks a stage failure that leaves mandatory downstream
// fields unpopulated; routing stops and the claim is flagged ERROR.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

func terminal(format string, args ...any) error {
	return &terminalError{err: fmt.Errorf(format, args...)}
}
