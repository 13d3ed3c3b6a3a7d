package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hairtech/claimflow/pkg/models"
)

// AuditRecord is the flattened row stored for a completed claim. The full
// record JSON rides along so history views can reconstruct everything.
type AuditRecord struct {
	ClaimID       string
	MessageID     string
	Decision      string
	Recommend     string
	Confidence    float64
	CustomerName  string
	CustomerEmail string
	ProductID     string
	ProductName   string
	PolicyID      string
	PolicyVersion string
	WarrantyValid *bool
	Reviewer      string
	Notes         string
	CompletedAt   time.Time
	Record        *models.Claim
}

// SaveClaim upserts a completed claim into the audit store, keyed by claim ID.
func (db *DB) SaveClaim(c *models.Claim, completedAt time.Time) error {
	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}

	var decision, reviewer, notes string
	if c.Human != nil {
		decision = string(c.Human.Decision)
		reviewer = c.Human.Reviewer
		notes = c.Human.Notes
	}
	var recommend string
	var confidence float64
	var warrantyValid any
	if c.Analysis != nil {
		recommend = string(c.Analysis.Recommendation)
		confidence = c.Analysis.Confidence
		if c.Analysis.WarrantyValid != nil {
			if *c.Analysis.WarrantyValid {
				warrantyValid = 1
			} else {
				warrantyValid = 0
			}
		}
	}
	var customerName, customerEmail string
	if c.Extracted != nil {
		customerName = deref(c.Extracted.CustomerName)
		customerEmail = deref(c.Extracted.CustomerEmail)
	}
	var productID, productName, policyID, policyVersion string
	if c.Resolution != nil {
		productID = deref(c.Resolution.ProductID)
		productName = deref(c.Resolution.ProductName)
		policyID = deref(c.Resolution.PolicyID)
		policyVersion = deref(c.Resolution.PolicyVersion)
	}

	_, err = db.Exec(`
		INSERT INTO claims (
			claim_id, message_id, decision, recommendation, confidence,
			customer_name, customer_email, product_id, product_name,
			policy_id, policy_version, warranty_valid, reviewer, notes,
			completed_at, record
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			decision = excluded.decision,
			recommendation = excluded.recommendation,
			confidence = excluded.confidence,
			reviewer = excluded.reviewer,
			notes = excluded.notes,
			completed_at = excluded.completed_at,
			record = excluded.record
	`, c.ClaimID, c.Message.ID, decision, recommend, confidence,
		customerName, customerEmail, productID, productName,
		policyID, policyVersion, warrantyValid, reviewer, notes,
		formatTime(completedAt), string(record))
	if err != nil {
		return fmt.Errorf("save claim: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetClaim retrieves an audited claim record by claim ID, or nil.
func (db *DB) GetClaim(claimID string) (*models.Claim, error) {
	row := db.QueryRow("SELECT record FROM claims WHERE claim_id = ?", claimID)

	var record string
	err := row.Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}

	var c models.Claim
	if err := json.Unmarshal([]byte(record), &c); err != nil {
		return nil, fmt.Errorf("unmarshal claim: %w", err)
	}
	return &c, nil
}

// GetDecision returns the recorded human decision for a claim ID, or "" if
// the claim is unknown or undecided.
func (db *DB) GetDecision(claimID string) (string, error) {
	row := db.QueryRow("SELECT decision FROM claims WHERE claim_id = ?", claimID)

	var decision string
	err := row.Scan(&decision)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get decision: %w", err)
	}
	return decision, nil
}

// ListClaimIDs returns all audited claim IDs, newest first.
func (db *DB) ListClaimIDs() ([]string, error) {
	rows, err := db.Query("SELECT claim_id FROM claims ORDER BY completed_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan claim id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListProcessedMessageIDs returns the message IDs of all audited claims,
// used by inbox views to filter out already-processed mail.
func (db *DB) ListProcessedMessageIDs() ([]string, error) {
	rows, err := db.Query("SELECT message_id FROM claims")
	if err != nil {
		return nil, fmt.Errorf("list processed message ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats holds aggregate claim counts by decision.
type Stats struct {
	Total    int
	Approved int
	Rejected int
	NeedInfo int
}

// GetStats returns aggregate claim counts grouped by decision.
func (db *DB) GetStats() (*Stats, error) {
	rows, err := db.Query("SELECT decision, COUNT(*) FROM claims GROUP BY decision")
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	defer rows.Close()

	var s Stats
	for rows.Next() {
		var decision string
		var count int
		if err := rows.Scan(&decision, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		s.Total += count
		switch models.Recommendation(decision) {
		case models.RecommendApprove:
			s.Approved += count
		case models.RecommendReject:
			s.Rejected += count
		case models.RecommendNeedInfo:
			s.NeedInfo += count
		}
	}
	return &s, nil
}
