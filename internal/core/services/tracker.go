package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Tracker exposes the (document, category) processing state machine.
// Transitions are enforced by the StatusStore; a pair with no record is
// pending.
type Tracker struct {
	store       driven.StatusStore
	keepHistory bool
}

// NewTracker creates a tracker. With keepHistory set, Complete archives the
// position it replaces.
func NewTracker(store driven.StatusStore, keepHistory bool) *Tracker {
	return &Tracker{store: store, keepHistory: keepHistory}
}

// State returns the pair's state, domain.StatePending when unrecorded.
func (t *Tracker) State(ctx context.Context, documentID, categoryID int64) (domain.ProcessingState, error) {
	st, err := t.store.GetStatus(ctx, documentID, categoryID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.StatePending, nil
	}
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}
	return st.State, nil
}

// Eligible reports whether the pair still needs processing.
func (t *Tracker) Eligible(ctx context.Context, documentID, categoryID int64) (bool, error) {
	state, err := t.State(ctx, documentID, categoryID)
	if err != nil {
		return false, err
	}
	return state.Eligible(), nil
}

// Start claims the pair for a run.
func (t *Tracker) Start(ctx context.Context, runID string, documentID, categoryID int64) error {
	return t.store.Claim(ctx, runID, documentID, categoryID)
}

// Complete stores the position and marks the pair completed.
func (t *Tracker) Complete(ctx context.Context, runID string, pos *domain.PartyPosition) error {
	return t.store.Complete(ctx, runID, pos, t.keepHistory)
}

// Fail marks the pair failed with the cause's message.
func (t *Tracker) Fail(ctx context.Context, runID string, documentID, categoryID int64, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return t.store.Fail(ctx, runID, documentID, categoryID, msg)
}

// Release returns a claimed pair to pending.
func (t *Tracker) Release(ctx context.Context, runID string, documentID, categoryID int64) error {
	return t.store.Release(ctx, runID, documentID, categoryID)
}

// Reset returns a completed pair to pending, keeping its position.
func (t *Tracker) Reset(ctx context.Context, documentID, categoryID int64) error {
	return t.store.Reset(ctx, documentID, categoryID)
}

// PendingDocuments lists documents not yet completed for a category.
func (t *Tracker) PendingDocuments(ctx context.Context, categoryID int64) ([]int64, error) {
	return t.store.DocumentsNotCompleted(ctx, categoryID)
}
