package driven

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// StatusStore persists the per-(document, category) processing state machine.
// Claim, Complete, Fail and Release are atomic in the store.
type StatusStore interface {
	// GetStatus returns the recorded status, or domain.ErrNotFound when the
	// pair is pending.
	GetStatus(ctx context.Context, documentID, categoryID int64) (*domain.ProcessingStatus, error)

	// Claim moves a pair to started for runID. Absent and failed rows can be
	// claimed, as can rows another run started longer ago than the store's
	// stale threshold. Returns domain.ErrAlreadyCompleted or
	// domain.ErrAlreadyClaimed otherwise.
	Claim(ctx context.Context, runID string, documentID, categoryID int64) error

	// Complete writes the position and marks the pair completed in one
	// transaction. The pair must be started by runID. With keepHistory the
	// replaced position is copied to the history table first.
	Complete(ctx context.Context, runID string, pos *domain.PartyPosition, keepHistory bool) error

	// Fail marks a pair started by runID as failed with a message.
	Fail(ctx context.Context, runID string, documentID, categoryID int64, message string) error

	// Release returns a pair started by runID to pending.
	Release(ctx context.Context, runID string, documentID, categoryID int64) error

	// Reset deletes a completed pair's status so it can be regenerated.
	// The stored position is kept until the regenerated one replaces it.
	// Pairs in any other state are left alone.
	Reset(ctx context.Context, documentID, categoryID int64) error

	// DocumentsNotCompleted returns IDs of documents whose pair with the
	// category is not completed, ordered by ID.
	DocumentsNotCompleted(ctx context.Context, categoryID int64) ([]int64, error)

	// Progress counts states per active category across all documents.
	Progress(ctx context.Context) ([]domain.CategoryProgress, error)
}

// PositionStore reads persisted party positions. Writes go through
// StatusStore.Complete.
type PositionStore interface {
	// GetPosition retrieves the position for (party, document, category).
	GetPosition(ctx context.Context, partyID, documentID, categoryID int64) (*domain.PartyPosition, error)

	// ListPositionsByParty returns a party's positions in category display order.
	ListPositionsByParty(ctx context.Context, partyID int64) ([]domain.PartyPosition, error)

	// ListHistory returns replaced positions for a party and category, newest first.
	ListHistory(ctx context.Context, partyID, categoryID int64) ([]domain.PartyPosition, error)

	// Totals aggregates count, tokens and cost over all positions.
	Totals(ctx context.Context) (domain.PositionTotals, error)
}

// ProcessingLogStore is the append-only processing log.
type ProcessingLogStore interface {
	// AppendLog inserts a log entry.
	AppendLog(ctx context.Context, entry *domain.ProcessingLogEntry) error

	// RecentLogs returns the newest entries first.
	RecentLogs(ctx context.Context, limit int) ([]domain.ProcessingLogEntry, error)
}
