// Package state provides SQLite-based persistence for claimflow.
package state

import (
	"io"
	"time"

	"github.com/hairtech/claimflow/pkg/models"
)

// CheckpointStore persists in-flight claim snapshots for resume.
type CheckpointStore interface {
	SaveCheckpoint(cp *Checkpoint) error
	GetCheckpoint(claimID string) (*Checkpoint, error)
	DeleteCheckpoint(claimID string) error
	ListCheckpointIDs() ([]string, error)
}

// DispatchLedger records outbound send attempts keyed by dispatch key.
type DispatchLedger interface {
	RecordDispatch(d *Dispatch) error
	GetDispatch(key string) (*Dispatch, error)
	ListDispatchesByClaim(claimID string) ([]Dispatch, error)
}

// AuditStore holds completed claims for history and reporting.
type AuditStore interface {
	SaveClaim(c *models.Claim, completedAt time.Time) error
	GetClaim(claimID string) (*models.Claim, error)
	GetDecision(claimID string) (string, error)
	ListClaimIDs() ([]string, error)
	ListProcessedMessageIDs() ([]string, error)
	GetStats() (*Stats, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the full persistence surface. The orchestrator depends on
// this interface rather than the concrete SQLite implementation so tests can
// substitute in-memory fakes.
type Store interface {
	io.Closer
	Migrator
	CheckpointStore
	DispatchLedger
	AuditStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store           = (*DB)(nil)
	_ Migrator        = (*DB)(nil)
	_ CheckpointStore = (*DB)(nil)
	_ DispatchLedger  = (*DB)(nil)
	_ AuditStore      = (*DB)(nil)
)
