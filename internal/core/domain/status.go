package domain

import "time"

// ProcessingState is the lifecycle state of one (document, category) pair.
type ProcessingState string

// Available processing states.
const (
	// StatePending is implicit: no status row exists.
	StatePending ProcessingState = "pending"

	// StateStarted means a run has claimed the pair.
	StateStarted ProcessingState = "started"

	// StateCompleted means a position was persisted.
	StateCompleted ProcessingState = "completed"

	// StateFailed means the last attempt failed; the pair stays eligible.
	StateFailed ProcessingState = "failed"
)

// IsValid returns true if the state is recognised.
func (s ProcessingState) IsValid() bool {
	switch s {
	case StatePending, StateStarted, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ProcessingState) String() string {
	return string(s)
}

// Eligible reports whether a pair in this state needs (re)processing.
func (s ProcessingState) Eligible() bool {
	return s != StateCompleted
}

// CanTransition reports whether the state machine allows s -> to.
//
// Started may be re-entered only when a different run claims a pair left
// behind by an interrupted process; the store enforces the run check.
// Started may return to pending when a run releases a pair it found no
// content for.
func (s ProcessingState) CanTransition(to ProcessingState) bool {
	switch s {
	case StatePending:
		return to == StateStarted
	case StateStarted:
		return to == StateCompleted || to == StateFailed || to == StateStarted || to == StatePending
	case StateFailed:
		return to == StateStarted
	default:
		return false
	}
}

// DefaultStaleClaimAfter is how long a started pair owned by another run is
// protected before a new run may take it over.
const DefaultStaleClaimAfter = 30 * time.Minute

// ProcessingStatus is the recorded state of one (document, category) pair.
type ProcessingStatus struct {
	DocumentID int64
	CategoryID int64
	State      ProcessingState

	// RunID identifies the run that last claimed the pair.
	RunID string

	// ErrorMessage is set when State is failed.
	ErrorMessage string

	StartedAt   time.Time
	CompletedAt time.Time
	UpdatedAt   time.Time
}

// Stage names a pipeline step in the processing log.
type Stage string

// Pipeline stages.
const (
	StageExtraction Stage = "extraction"
	StageIndexing   Stage = "indexing"
	StageRetrieval  Stage = "retrieval"
	StageSynthesis  Stage = "synthesis"
	StageDocument   Stage = "document"
)

// LogStatus is the result recorded for a stage.
type LogStatus string

// Stage results.
const (
	LogSuccess LogStatus = "success"
	LogSkipped LogStatus = "skipped"
	LogFailed  LogStatus = "failed"
)

// ProcessingLogEntry is one append-only row of the processing log.
// CategoryID is zero for document-level stages.
type ProcessingLogEntry struct {
	ID           int64
	RunID        string
	DocumentID   int64
	CategoryID   int64
	Stage        Stage
	Status       LogStatus
	ErrorMessage string
	TokensUsed   int
	CostUSD      float64
	Duration     time.Duration
	Timestamp    time.Time
}

// CategoryProgress counts completed documents for one category.
type CategoryProgress struct {
	Category  Category
	Completed int
	Failed    int
	Started   int
	Total     int
}

// Percent returns the completed share as 0..100.
func (p CategoryProgress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) * 100 / float64(p.Total)
}
