package ports

import (
	"context"

	"github.com/danielrs/polycopy/internal/domain"
)

// ExecutionTracker is the durable, idempotent record of which observed
// trades have already been attempted. It is the sole authority on
// "already attempted"; entries never leave the attempted state.
type ExecutionTracker interface {
	// AlreadyAttempted reports whether the source id has ever been claimed.
	AlreadyAttempted(ctx context.Context, sourceID string) (bool, error)

	// MarkAttempted atomically claims the source id, creating its pending
	// execution record. Returns false if another (or a previous) run already
	// claimed it. The write MUST be flushed to persistent storage before
	// returning — the engine submits the order only after this succeeds.
	MarkAttempted(ctx context.Context, sourceID string) (claimed bool, err error)

	// RecordOutcome moves the execution record to success or failure and
	// stores the order details and venue response. Reporting only: a
	// failure here never re-opens the attempted state.
	RecordOutcome(ctx context.Context, rec domain.ExecutionRecord) error

	// Executions returns recorded executions with the given outcome,
	// newest first. Pass "" for all.
	Executions(ctx context.Context, outcome domain.Outcome) ([]domain.ExecutionRecord, error)
}

// CopyLog is the durable log of successfully placed copy orders. It feeds
// the ledger: every logged order is a fill of our own account.
type CopyLog interface {
	SaveCopiedFill(ctx context.Context, fill domain.Fill) error
}

// SnapshotStore persists portfolio snapshots for later inspection.
type SnapshotStore interface {
	SavePortfolioSnapshot(ctx context.Context, snap domain.PortfolioSnapshot) error
}
