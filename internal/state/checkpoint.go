package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hairtech/claimflow/pkg/models"
)

// Checkpoint is a durable snapshot of a claim record plus the orchestrator's
// next-stage pointer. It is keyed by claim ID and survives process restarts.
type Checkpoint struct {
	ClaimID   string
	NextStage string
	Record    *models.Claim
	UpdatedAt time.Time
}

// SaveCheckpoint upserts the checkpoint for a claim. Last writer wins; the
// orchestrator owns the in-flight copy of a claim so concurrent writers for
// the same claim ID are not expected.
func (db *DB) SaveCheckpoint(cp *Checkpoint) error {
	record, err := json.Marshal(cp.Record)
	if err != nil {
		return fmt.Errorf("marshal claim record: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO checkpoints (claim_id, next_stage, record, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			next_stage = excluded.next_stage,
			record = excluded.record,
			updated_at = excluded.updated_at
	`, cp.ClaimID, cp.NextStage, string(record), formatTime(cp.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint retrieves the checkpoint for a claim ID, or nil if none.
func (db *DB) GetCheckpoint(claimID string) (*Checkpoint, error) {
	row := db.QueryRow(`
		SELECT claim_id, next_stage, record, updated_at
		FROM checkpoints WHERE claim_id = ?
	`, claimID)

	var cp Checkpoint
	var record, updatedAt string
	err := row.Scan(&cp.ClaimID, &cp.NextStage, &record, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}

	var claim models.Claim
	if err := json.Unmarshal([]byte(record), &claim); err != nil {
		return nil, fmt.Errorf("unmarshal claim record: %w", err)
	}
	cp.Record = &claim
	cp.UpdatedAt, _ = parseTime(updatedAt)
	return &cp, nil
}

// DeleteCheckpoint removes the checkpoint for a claim ID.
func (db *DB) DeleteCheckpoint(claimID string) error {
	_, err := db.Exec("DELETE FROM checkpoints WHERE claim_id = ?", claimID)
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// ListCheckpointIDs returns the claim IDs of all in-flight checkpoints,
// newest first.
func (db *DB) ListCheckpointIDs() ([]string, error) {
	rows, err := db.Query("SELECT claim_id FROM checkpoints ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan checkpoint id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
