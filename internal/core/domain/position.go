package domain

import "time"

// PartyPosition is the synthesized position of a party on one category,
// unique per (party, document, category). Regeneration replaces the row.
type PartyPosition struct {
	ID         int64
	PartyID    int64
	DocumentID int64
	CategoryID int64

	// Summary is the cited natural-language summary.
	Summary string

	// KeyProposals is the ordered list of cited proposals.
	KeyProposals []string

	// IdeologyPosition is an optional ideology label.
	IdeologyPosition string

	// BudgetMentioned is an optional budget or funding mention.
	BudgetMentioned string

	// ConfidenceScore is an optional model confidence in [0, 1].
	ConfidenceScore *float64

	// Generation metadata.
	ChunksUsed    int
	AvgSimilarity float64
	InputTokens   int
	OutputTokens  int
	CostUSD       float64
	Model         string
	RawResponse   string
	RunID         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokensUsed returns input plus output tokens.
func (p PartyPosition) TokensUsed() int {
	return p.InputTokens + p.OutputTokens
}

// NewPartyPosition builds the position to persist from a synthesis.
func NewPartyPosition(doc Document, cat Category, s *Synthesis, runID string) PartyPosition {
	return PartyPosition{
		PartyID:          doc.PartyID,
		DocumentID:       doc.ID,
		CategoryID:       cat.ID,
		Summary:          s.Result.Summary,
		KeyProposals:     s.Result.KeyProposals,
		IdeologyPosition: s.Result.IdeologyPosition,
		BudgetMentioned:  s.Result.BudgetMentioned,
		ConfidenceScore:  s.Result.ConfidenceScore,
		ChunksUsed:       s.ChunksUsed,
		AvgSimilarity:    s.AvgSimilarity,
		InputTokens:      s.Usage.InputTokens,
		OutputTokens:     s.Usage.OutputTokens,
		CostUSD:          s.CostUSD,
		Model:            s.Model,
		RawResponse:      s.RawResponse,
		RunID:            runID,
	}
}

// PositionTotals aggregates stored positions.
type PositionTotals struct {
	Positions  int
	TokensUsed int
	CostUSD    float64
}
