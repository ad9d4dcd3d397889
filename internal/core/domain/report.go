package domain

import "time"

// Outcome is the result of processing one (document, category) pair.
type Outcome string

// Category outcomes.
const (
	// OutcomeProcessed means a position was synthesized and persisted.
	OutcomeProcessed Outcome = "processed"

	// OutcomeAlreadyCompleted means the pair was completed by an earlier run.
	OutcomeAlreadyCompleted Outcome = "already_completed"

	// OutcomeNoContent means retrieval found nothing for the category.
	OutcomeNoContent Outcome = "no_content"

	// OutcomeFailed means retrieval, synthesis or persistence failed.
	OutcomeFailed Outcome = "failed"
)

// CategoryResult is the per-category result value of a document run.
type CategoryResult struct {
	Category   Category
	Outcome    Outcome
	Position   *PartyPosition
	Err        error
	ChunksUsed int
	Usage      TokenUsage
	CostUSD    float64
	Duration   time.Duration
}

// ErrorMessage returns the failure text, or "" when the result is not a failure.
func (r CategoryResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// DocumentSummary is the result of processing one document.
type DocumentSummary struct {
	Document Document
	Party    Party

	// Extracted is true when page text was extracted during this run.
	Extracted bool

	// Index reports the embedding pass over the document's pages.
	Index IndexReport

	// Results holds one entry per category, in display order.
	Results []CategoryResult

	// Err is a whole-document failure (missing file, extraction error).
	Err error

	Duration time.Duration
}

// Count returns how many category results have the given outcome.
func (s DocumentSummary) Count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// SynthesisCost returns the cost of all category syntheses.
func (s DocumentSummary) SynthesisCost() float64 {
	var c float64
	for _, r := range s.Results {
		c += r.CostUSD
	}
	return c
}

// TotalCost returns indexing plus synthesis cost.
func (s DocumentSummary) TotalCost() float64 {
	return s.Index.CostUSD + s.SynthesisCost()
}

// Usage returns the generation token usage across categories.
func (s DocumentSummary) Usage() TokenUsage {
	var u TokenUsage
	for _, r := range s.Results {
		u.Add(r.Usage)
	}
	return u
}

// BatchReport is the result of processing several documents in one run.
type BatchReport struct {
	RunID     string
	Documents []DocumentSummary
	Duration  time.Duration
}

// Count returns the number of category results with the given outcome.
func (b BatchReport) Count(o Outcome) int {
	n := 0
	for _, d := range b.Documents {
		n += d.Count(o)
	}
	return n
}

// DocumentsFailed returns how many documents failed as a whole.
func (b BatchReport) DocumentsFailed() int {
	n := 0
	for _, d := range b.Documents {
		if d.Err != nil {
			n++
		}
	}
	return n
}

// TotalCost returns indexing plus synthesis cost for the batch.
func (b BatchReport) TotalCost() float64 {
	var c float64
	for _, d := range b.Documents {
		c += d.TotalCost()
	}
	return c
}

// TotalTokens returns embedding plus generation tokens for the batch.
func (b BatchReport) TotalTokens() int {
	n := 0
	for _, d := range b.Documents {
		n += d.Index.Tokens + d.Usage().Total()
	}
	return n
}

// AlreadyProcessedRatio is the share of category results that were
// completed before this run, in 0..1.
func (b BatchReport) AlreadyProcessedRatio() float64 {
	total := 0
	for _, d := range b.Documents {
		total += len(d.Results)
	}
	if total == 0 {
		return 0
	}
	return float64(b.Count(OutcomeAlreadyCompleted)) / float64(total)
}

// BackfillReport is the result of backfilling one category.
type BackfillReport struct {
	Category Category

	// DocumentsConsidered is the number of documents still pending for the category.
	DocumentsConsidered int

	// Batch covers only documents where the category was not completed.
	Batch BatchReport
}

// ProcessOptions tunes a pipeline run.
type ProcessOptions struct {
	// CategoryKeys restricts the run to these categories. Empty means all active.
	CategoryKeys []string

	// Workers is the number of documents processed concurrently. Zero means one.
	Workers int

	// ForceExtract re-extracts page text even when cached.
	ForceExtract bool

	// RunID labels the run. Empty means a new one is generated.
	RunID string
}

// PlannedPair is one eligible (document, category) pair in a dry run.
type PlannedPair struct {
	DocumentID  int64
	PartyAbbr   string
	CategoryKey string
	State       ProcessingState
}

// ProcessPlan is a dry-run estimate of a pipeline run.
type ProcessPlan struct {
	Documents        int
	Pairs            []PlannedPair
	AlreadyCompleted int
	EstimatedTokens  int
	EstimatedCostUSD float64
}

// PositionView joins a position with its party and category for display.
type PositionView struct {
	Party    Party
	Category Category
	Position PartyPosition
}

// StatusReport is the corpus overview shown by the status command.
type StatusReport struct {
	Parties    int
	Documents  int
	Embeddings int
	Totals     PositionTotals
	Progress   []CategoryProgress
}
