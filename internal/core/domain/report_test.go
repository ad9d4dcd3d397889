package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchReport_Totals(t *testing.T) {
	report := BatchReport{
		Documents: []DocumentSummary{
			{
				Index: IndexReport{Tokens: 1000, CostUSD: 0.01},
				Results: []CategoryResult{
					{Outcome: OutcomeProcessed, Usage: TokenUsage{InputTokens: 100, OutputTokens: 50}, CostUSD: 0.5},
					{Outcome: OutcomeAlreadyCompleted},
					{Outcome: OutcomeNoContent},
					{Outcome: OutcomeFailed, Err: errors.New("boom")},
				},
			},
			{Err: ErrExtractionFailed},
		},
	}

	assert.Equal(t, 1, report.Count(OutcomeProcessed))
	assert.Equal(t, 1, report.Count(OutcomeFailed))
	assert.Equal(t, 1, report.DocumentsFailed())
	assert.InDelta(t, 0.51, report.TotalCost(), 1e-9)
	assert.Equal(t, 1150, report.TotalTokens())
	assert.InDelta(t, 0.25, report.AlreadyProcessedRatio(), 1e-9)
	assert.Equal(t, "boom", report.Documents[0].Results[3].ErrorMessage())
	assert.Empty(t, report.Documents[0].Results[0].ErrorMessage())
}

func TestBatchReport_Empty(t *testing.T) {
	var report BatchReport
	assert.Zero(t, report.AlreadyProcessedRatio())
	assert.Zero(t, report.TotalCost())
}

func TestIndexReport_Add(t *testing.T) {
	var r IndexReport
	r.Add(PageIndexResult{Skipped: true})
	r.Add(PageIndexResult{ChunksEmbedded: 3, Failures: []ChunkFailure{{ChunkIndex: 1}}, Tokens: 90, CostUSD: 0.1})

	assert.Equal(t, 1, r.PagesSkipped)
	assert.Equal(t, 1, r.PagesIndexed)
	assert.Equal(t, 3, r.ChunksEmbedded)
	assert.Equal(t, 1, r.ChunksFailed)
	assert.Equal(t, 90, r.Tokens)

	var total IndexReport
	total.Merge(r)
	total.Merge(r)
	assert.Equal(t, 6, total.ChunksEmbedded)
}
