package state

import (
	"database/sql"
	"fmt"
	"time"
)

// DispatchStatus is the terminal state of one outbound send attempt.
type DispatchStatus string

const (
	DispatchSent    DispatchStatus = "SENT"
	DispatchFailed  DispatchStatus = "FAILED"
	DispatchSkipped DispatchStatus = "SKIPPED"
)

// Dispatch is one row of the outbound send ledger. The ledger, not the claim
// record, is the durable source of truth for whether a payload went out; the
// dispatch key is content-derived so byte-identical resends are detected even
// after a restart.
type Dispatch struct {
	Key               string
	ClaimID           string
	MessageID         string
	Provider          string
	Recipient         string
	Subject           string
	PayloadHash       string
	Status            DispatchStatus
	ProviderMessageID string
	Error             string
	CreatedAt         time.Time
}

// RecordDispatch upserts a dispatch row keyed by dispatch key. The primary
// key makes concurrent resumes of the same claim converge on a single row.
func (db *DB) RecordDispatch(d *Dispatch) error {
	_, err := db.Exec(`
		INSERT INTO dispatches (
			dispatch_key, claim_id, message_id, provider, recipient, subject,
			payload_hash, status, provider_message_id, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dispatch_key) DO UPDATE SET
			provider = excluded.provider,
			status = excluded.status,
			provider_message_id = excluded.provider_message_id,
			error = excluded.error
	`, d.Key, d.ClaimID, d.MessageID, d.Provider, d.Recipient, d.Subject,
		d.PayloadHash, string(d.Status), d.ProviderMessageID, d.Error, formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

// GetDispatch retrieves a dispatch by its key, or nil if none exists.
func (db *DB) GetDispatch(key string) (*Dispatch, error) {
	row := db.QueryRow(`
		SELECT dispatch_key, claim_id, message_id, provider, recipient, subject,
			payload_hash, status, provider_message_id, error, created_at
		FROM dispatches WHERE dispatch_key = ?
	`, key)

	var d Dispatch
	var createdAt string
	err := row.Scan(&d.Key, &d.ClaimID, &d.MessageID, &d.Provider, &d.Recipient,
		&d.Subject, &d.PayloadHash, &d.Status, &d.ProviderMessageID, &d.Error, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch: %w", err)
	}
	d.CreatedAt, _ = parseTime(createdAt)
	return &d, nil
}

// ListDispatchesByClaim returns all dispatch attempts for a claim, oldest first.
func (db *DB) ListDispatchesByClaim(claimID string) ([]Dispatch, error) {
	rows, err := db.Query(`
		SELECT dispatch_key, claim_id, message_id, provider, recipient, subject,
			payload_hash, status, provider_message_id, error, created_at
		FROM dispatches WHERE claim_id = ? ORDER BY created_at ASC
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	defer rows.Close()

	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		var createdAt string
		if err := rows.Scan(&d.Key, &d.ClaimID, &d.MessageID, &d.Provider, &d.Recipient,
			&d.Subject, &d.PayloadHash, &d.Status, &d.ProviderMessageID, &d.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		d.CreatedAt, _ = parseTime(createdAt)
		out = append(out, d)
	}
	return out, nil
}
