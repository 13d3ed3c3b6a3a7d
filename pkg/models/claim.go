// Package models defines the shared data types for the claimflow pipeline.
// The Claim struct is the single aggregate threaded through every stage;
// stages treat it as mutable-by-replacement and return an updated copy.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClaimStatus represents the coarse workflow state of a claim.
type ClaimStatus string

const (
	StatusPending        ClaimStatus = "PENDING"
	StatusTriaged        ClaimStatus = "TRIAGED"
	StatusExtracted      ClaimStatus = "EXTRACTED"
	StatusAnalyzed       ClaimStatus = "ANALYZED"
	StatusAwaitingReview ClaimStatus = "AWAITING_REVIEW"
	StatusReviewed       ClaimStatus = "REVIEWED"
	StatusAwaitingEmail  ClaimStatus = "AWAITING_EMAIL"
	StatusCompleted      ClaimStatus = "COMPLETED"
	StatusError          ClaimStatus = "ERROR"
)

// TriageResult classifies an inbound message.
type TriageResult string

const (
	TriageClaim    TriageResult = "CLAIM"
	TriageNonClaim TriageResult = "NON_CLAIM"
	TriageSpam     TriageResult = "SPAM"
)

// Recommendation is a decision outcome, produced by analysis or by a reviewer.
type Recommendation string

const (
	RecommendApprove  Recommendation = "APPROVE"
	RecommendReject   Recommendation = "REJECT"
	RecommendNeedInfo Recommendation = "NEED_INFO"
)

// Valid reports whether r is one of the three allowed outcomes.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendApprove, RecommendReject, RecommendNeedInfo:
		return true
	}
	return false
}

// Triage holds the first-pass classification of a message. Set once;
// never re-derived unless a human explicitly overrides it.
type Triage struct {
	Result     TriageResult `json:"result"`
	Reason     string       `json:"reason"`
	Confidence float64      `json:"confidence"`
}

// ExtractedFields are the structured fields pulled out of a claim message.
// Every field is independently nullable; absence is meaningful and drives
// the decision engine.
type ExtractedFields struct {
	CustomerName       *string  `json:"customer_name"`
	CustomerEmail      *string  `json:"customer_email"`
	CustomerPhone      *string  `json:"customer_phone"`
	CustomerAddress    *string  `json:"customer_address"`
	ProductName        *string  `json:"product_name"`
	ProductSerial      *string  `json:"product_serial"`
	PurchaseDate       *string  `json:"purchase_date"` // ISO YYYY-MM-DD
	PurchaseLocation   *string  `json:"purchase_location"`
	OrderNumber        *string  `json:"order_number"`
	IssueDescription   *string  `json:"issue_description"`
	HasProofOfPurchase bool     `json:"has_proof_of_purchase"`
	MissingFields      []string `json:"missing_fields"`
}

// HasContactMethod reports whether at least one way of reaching the
// customer is present.
func (f *ExtractedFields) HasContactMethod() bool {
	if f == nil {
		return false
	}
	return strSet(f.CustomerEmail) || strSet(f.CustomerPhone) || strSet(f.CustomerAddress)
}

func strSet(s *string) bool { return s != nil && *s != "" }

// Resolution is the outcome of catalog and policy matching. Nil until the
// resolver runs; immutable after. A nil ProductID with confidence 0 is a
// valid terminal resolution, not an error.
type Resolution struct {
	ProductID         *string  `json:"product_id"`
	ProductName       *string  `json:"product_name"`
	ProductCategory   *string  `json:"product_category"`
	PolicyID          *string  `json:"policy_id"`
	PolicyFile        *string  `json:"policy_file"`
	PolicyVersion     *string  `json:"policy_version"`
	PolicyEffective   *string  `json:"policy_effective_date"`
	Requirements      []string `json:"requirements"`
	ExclusionKeywords []string `json:"exclusion_keywords"`
	Reason            string   `json:"reason"`
	MatchConfidence   float64  `json:"match_confidence"`
}

// PolicyExcerpt is a retrieved chunk of policy text with its provenance.
type PolicyExcerpt struct {
	SectionName string  `json:"section_name"`
	Content     string  `json:"content"`
	PolicyID    string  `json:"policy_id"`
	PolicyFile  string  `json:"policy_file"`
	ChunkIndex  int     `json:"chunk_index"`
	Distance    float64 `json:"distance"`
	Query       string  `json:"query"`
}

// Analysis is the recommendation produced for a single pipeline pass.
// A re-run replaces it wholesale, never merges.
type Analysis struct {
	Recommendation   Recommendation `json:"recommendation"`
	Confidence       float64        `json:"confidence"`
	Facts            []string       `json:"facts"`
	Assumptions      []string       `json:"assumptions"`
	Reasoning        string         `json:"reasoning"`
	PolicyReferences []string       `json:"policy_references"`
	// WarrantyValid is nil when the window could not be determined
	// (e.g. no purchase date), which is distinct from false.
	WarrantyValid      *bool    `json:"warranty_valid"`
	WarrantyExplained  string   `json:"warranty_explained"`
	ExclusionsTriggers []string `json:"exclusions_triggered"`
}

// HumanDecision records the outcome of the review interrupt.
type HumanDecision struct {
	Decision  Recommendation `json:"decision"`
	Notes     string         `json:"notes"`
	Reviewer  string         `json:"reviewer"`
	Timestamp time.Time      `json:"timestamp"`
}

// Outputs collects artifact references produced after review.
type Outputs struct {
	ReviewPacketPath string `json:"review_packet_path,omitempty"`
	ResponseDraft    string `json:"response_draft,omitempty"`
	ResponsePath     string `json:"response_path,omitempty"`
	// ReturnLabelPath is set only for approved claims, and only once the
	// label has been generated at the dispatch gate.
	ReturnLabelPath string `json:"return_label_path,omitempty"`
	EmailSent       bool   `json:"email_sent"`
	DispatchKey     string `json:"dispatch_key,omitempty"`
	DispatchStatus  string `json:"dispatch_status,omitempty"`
}

// Claim is the aggregate record for one warranty claim. The claim ID is
// generated once at intake and never changes; it is the checkpoint key.
type Claim struct {
	ClaimID string         `json:"claim_id"`
	Message InboundMessage `json:"message"`

	Triage               *Triage          `json:"triage,omitempty"`
	Extracted            *ExtractedFields `json:"extracted,omitempty"`
	ExtractionConfidence float64          `json:"extraction_confidence"`
	Resolution           *Resolution      `json:"resolution,omitempty"`
	Excerpts             []PolicyExcerpt  `json:"excerpts,omitempty"`
	Analysis             *Analysis        `json:"analysis,omitempty"`
	Human                *HumanDecision   `json:"human,omitempty"`
	Outputs              Outputs          `json:"outputs"`

	Status ClaimStatus `json:"status"`
	// ErrorMessage is informational; the pipeline degrades rather than
	// halting unless Status is StatusError.
	ErrorMessage string `json:"error_message,omitempty"`

	ProcessingStarted   time.Time  `json:"processing_started"`
	ProcessingCompleted *time.Time `json:"processing_completed,omitempty"`
	Model               string     `json:"model,omitempty"`
}

// NewClaim creates a claim for a source message with a fresh claim ID.
func NewClaim(messageID string, now time.Time) *Claim {
	short := uuid.New().String()[:8]
	return &Claim{
		ClaimID:           fmt.Sprintf("CLM-%s-%s", now.Format("20060102150405"), short),
		Message:           InboundMessage{ID: messageID},
		Status:            StatusPending,
		ProcessingStarted: now,
	}
}

// Clone returns a deep copy of the claim. Stages operate on copies so a
// failed stage never leaves a half-mutated record behind.
func (c *Claim) Clone() *Claim {
	out := *c
	out.Message.Attachments = append([]string(nil), c.Message.Attachments...)
	if c.Triage != nil {
		t := *c.Triage
		out.Triage = &t
	}
	if c.Extracted != nil {
		f := *c.Extracted
		f.MissingFields = append([]string(nil), c.Extracted.MissingFields...)
		out.Extracted = &f
	}
	if c.Resolution != nil {
		r := *c.Resolution
		r.Requirements = append([]string(nil), c.Resolution.Requirements...)
		r.ExclusionKeywords = append([]string(nil), c.Resolution.ExclusionKeywords...)
		out.Resolution = &r
	}
	out.Excerpts = append([]PolicyExcerpt(nil), c.Excerpts...)
	if c.Analysis != nil {
		a := *c.Analysis
		a.Facts = append([]string(nil), c.Analysis.Facts...)
		a.Assumptions = append([]string(nil), c.Analysis.Assumptions...)
		a.PolicyReferences = append([]string(nil), c.Analysis.PolicyReferences...)
		a.ExclusionsTriggers = append([]string(nil), c.Analysis.ExclusionsTriggers...)
		if c.Analysis.WarrantyValid != nil {
			v := *c.Analysis.WarrantyValid
			a.WarrantyValid = &v
		}
		out.Analysis = &a
	}
	if c.Human != nil {
		h := *c.Human
		out.Human = &h
	}
	if c.ProcessingCompleted != nil {
		t := *c.ProcessingCompleted
		out.ProcessingCompleted = &t
	}
	return &out
}

// Terminal reports whether the claim has left the pipeline.
func (c *Claim) Terminal() bool {
	if c.Status == StatusCompleted || c.Status == StatusError {
		return true
	}
	if c.Triage != nil && c.Triage.Result != TriageClaim {
		return true
	}
	return false
}
