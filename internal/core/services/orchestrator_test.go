package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/plataformas/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/plataformas/internal/core/domain"
)

const citedPosition = `{
  "summary": "Propone ampliar la red de hospitales [Página 1].",
  "key_proposals": ["Nuevas clínicas regionales [Página 1]"],
  "ideology_position": null,
  "budget_mentioned": null
}`

type pipelineFixture struct {
	stores      *memory.Stores
	embedder    *mockEmbedder
	llm         *mockLLM
	extractor   *mockExtractor
	orch        *Orchestrator
	salud       domain.Category
	economia    domain.Category
	platformPDF []domain.ExtractedPage
}

func newPipelineFixture(t *testing.T, keepHistory bool) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		stores:   memory.NewStores(),
		embedder: newMockEmbedder(),
		llm: &mockLLM{
			responses: []string{citedPosition},
			usage:     domain.TokenUsage{InputTokens: 1000, OutputTokens: 200},
		},
		platformPDF: []domain.ExtractedPage{
			{PageNumber: 1, Text: "salud hospitales clinicas\n\nmas texto de salud", Method: domain.ExtractionNative},
			{PageNumber: 2, Text: "economia empleo impuestos", Method: domain.ExtractionNative},
		},
	}
	f.extractor = &mockExtractor{pages: f.platformPDF}
	f.salud = seedCategory(t, f.stores, "salud", "Salud", 1)
	f.economia = seedCategory(t, f.stores, "economia", "Economía", 2)
	f.wire(keepHistory)
	return f
}

func (f *pipelineFixture) wire(keepHistory bool) {
	pricing := domain.DefaultPricing()
	corpus := NewCorpusService(f.stores.Parties, f.stores.Documents, f.stores.Pages, f.extractor)
	indexer := NewIndexer(f.stores.Documents, f.stores.Pages, f.stores.Embeddings, f.embedder, mockChunker{}, pricing)
	retriever := NewRetriever(f.stores.Embeddings, f.embedder, 5)
	synth, _ := newTestSynthesizer(f.llm)

	f.orch = NewOrchestrator(
		f.stores.Documents, f.stores.Parties, f.stores.Categories, f.stores.Logs,
		corpus, indexer, retriever, synth,
		NewTracker(f.stores.Status, keepHistory),
		pricing,
		OrchestratorConfig{TopK: 5, Workers: 1, Model: "gpt-4o"},
	)
}

// document registers a platform without page text so the run extracts it.
func (f *pipelineFixture) document(t *testing.T, abbr string) domain.Document {
	t.Helper()
	return seedDocument(t, f.stores, abbr)
}

func (f *pipelineFixture) state(t *testing.T, doc domain.Document, cat domain.Category) domain.ProcessingState {
	t.Helper()
	st, err := f.stores.Status.GetStatus(context.Background(), doc.ID, cat.ID)
	if err != nil {
		require.ErrorIs(t, err, domain.ErrNotFound)
		return domain.StatePending
	}
	return st.State
}

func TestOrchestrator_ProcessDocument_HappyPath(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")
	ctx := context.Background()

	summary := f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{RunID: "run-1"})

	require.NoError(t, summary.Err)
	assert.True(t, summary.Extracted)
	assert.Equal(t, "FA", summary.Party.Abbreviation)
	assert.Equal(t, 2, summary.Index.PagesIndexed)
	assert.Equal(t, 3, summary.Index.ChunksEmbedded)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "salud", summary.Results[0].Category.Key)
	assert.Equal(t, "economia", summary.Results[1].Category.Key)
	for _, r := range summary.Results {
		assert.Equal(t, domain.OutcomeProcessed, r.Outcome)
		require.NotNil(t, r.Position)
		assert.Equal(t, "run-1", r.Position.RunID)
		assert.Equal(t, 3, r.ChunksUsed)
		assert.InDelta(t, 0.008, r.CostUSD, 1e-12)
	}
	assert.InDelta(t, 0.016, summary.TotalCost(), 1e-12)
	assert.Equal(t, 2, f.llm.Calls())

	assert.Equal(t, domain.StateCompleted, f.state(t, doc, f.salud))
	assert.Equal(t, domain.StateCompleted, f.state(t, doc, f.economia))

	pos, err := f.stores.Status.GetPosition(ctx, doc.PartyID, doc.ID, f.salud.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nuevas clínicas regionales [Página 1]"}, pos.KeyProposals)
	assert.Equal(t, 1000, pos.InputTokens)
	assert.Equal(t, "gpt-4o", pos.Model)

	// Word count is filled in after extraction
	stored, err := f.stores.Documents.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.WordCount)
}

func TestOrchestrator_ProcessDocument_WritesProcessingLog(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")

	f.orch.ProcessDocument(context.Background(), doc.ID, domain.ProcessOptions{RunID: "run-1"})

	entries := f.stores.Logs.Entries()
	require.NotEmpty(t, entries)
	stages := make(map[domain.Stage]int)
	for _, e := range entries {
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, doc.ID, e.DocumentID)
		stages[e.Stage]++
	}
	assert.Equal(t, 1, stages[domain.StageExtraction])
	assert.Equal(t, 1, stages[domain.StageIndexing])
	assert.Equal(t, 2, stages[domain.StageRetrieval])
	assert.Equal(t, 2, stages[domain.StageSynthesis])

	last := entries[len(entries)-1]
	assert.Equal(t, domain.StageDocument, last.Stage)
	assert.Equal(t, domain.LogSuccess, last.Status)
	assert.InDelta(t, 0.016, last.CostUSD, 1e-12)
}

func TestOrchestrator_ForceExtractClearsEmbeddings(t *testing.T) {
	f := newPipelineFixture(t, false)
	// Page rows that do not take their embeddings with them, as in pgvector.
	f.stores.Pages = memory.NewPageTextStore(nil)
	f.wire(false)
	doc := f.document(t, "FA")
	ctx := context.Background()
	scope := domain.SearchScope{DocumentID: doc.ID}

	first := f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{RunID: "run-1"})
	require.NoError(t, first.Err)
	n, err := f.stores.Embeddings.CountEmbeddings(ctx, scope, "")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	again := f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{RunID: "run-2", ForceExtract: true})

	require.NoError(t, again.Err)
	assert.True(t, again.Extracted)
	assert.Equal(t, 3, again.Index.ChunksEmbedded)
	n, err = f.stores.Embeddings.CountEmbeddings(ctx, scope, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOrchestrator_ProcessMultipleDocuments_RerunIsFree(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")
	ctx := context.Background()

	first := f.orch.ProcessMultipleDocuments(ctx, []int64{doc.ID}, domain.ProcessOptions{})
	require.Equal(t, 2, first.Count(domain.OutcomeProcessed))
	llmCalls, embedCalls := f.llm.Calls(), f.embedder.Calls()

	second := f.orch.ProcessMultipleDocuments(ctx, []int64{doc.ID}, domain.ProcessOptions{})

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 2, second.Count(domain.OutcomeAlreadyCompleted))
	assert.InDelta(t, 1.0, second.AlreadyProcessedRatio(), 1e-9)
	assert.Zero(t, second.TotalCost())
	assert.Zero(t, second.TotalTokens())
	assert.Equal(t, llmCalls, f.llm.Calls())
	assert.Equal(t, embedCalls, f.embedder.Calls())
	assert.Equal(t, 1, f.extractor.Calls())
	assert.False(t, second.Documents[0].Extracted)
	assert.Equal(t, 2, second.Documents[0].Index.PagesSkipped)
}

func TestOrchestrator_FailedCategoryIsIsolated(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.llm.errs = []error{domain.NewBackendError("openai", 400, "context too long")}
	doc := f.document(t, "FA")
	ctx := context.Background()

	summary := f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{})

	require.NoError(t, summary.Err)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, domain.OutcomeFailed, summary.Results[0].Outcome)
	assert.Contains(t, summary.Results[0].ErrorMessage(), "context too long")
	assert.Equal(t, domain.OutcomeProcessed, summary.Results[1].Outcome)

	st, err := f.stores.Status.GetStatus(ctx, doc.ID, f.salud.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, st.State)
	assert.Contains(t, st.ErrorMessage, "context too long")

	// A later run retries only the failed pair
	summary = f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{})
	assert.Equal(t, domain.OutcomeProcessed, summary.Results[0].Outcome)
	assert.Equal(t, domain.OutcomeAlreadyCompleted, summary.Results[1].Outcome)
	assert.Equal(t, 3, f.llm.Calls())
}

func TestOrchestrator_MalformedResponseFailsButCosts(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.llm.responses = []string{"no es json"}
	doc := f.document(t, "FA")

	summary := f.orch.ProcessDocument(context.Background(), doc.ID, domain.ProcessOptions{CategoryKeys: []string{"salud"}})

	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrMalformedResponse)
	assert.InDelta(t, 0.008, res.CostUSD, 1e-12)
	assert.Equal(t, domain.StateFailed, f.state(t, doc, f.salud))
}

func TestOrchestrator_NoContent(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.extractor.pages = []domain.ExtractedPage{
		{PageNumber: 1, Text: "   ", Method: domain.ExtractionOCR},
		{PageNumber: 2, Text: "\n\n", Method: domain.ExtractionOCR},
	}
	doc := f.document(t, "FA")

	summary := f.orch.ProcessDocument(context.Background(), doc.ID, domain.ProcessOptions{})

	require.NoError(t, summary.Err)
	require.Len(t, summary.Results, 2)
	for _, r := range summary.Results {
		assert.Equal(t, domain.OutcomeNoContent, r.Outcome)
		assert.NoError(t, r.Err)
	}
	assert.Zero(t, f.llm.Calls())
	assert.Equal(t, domain.StatePending, f.state(t, doc, f.salud))
	assert.Equal(t, domain.StatePending, f.state(t, doc, f.economia))
}

func TestOrchestrator_EmbeddingFailuresFailCategories(t *testing.T) {
	f := newPipelineFixture(t, false)
	// Every chunk contains a space
	f.embedder.failOn = " "
	doc := f.document(t, "FA")

	summary := f.orch.ProcessDocument(context.Background(), doc.ID, domain.ProcessOptions{})

	require.NoError(t, summary.Err)
	assert.Equal(t, 3, summary.Index.ChunksFailed)
	for _, r := range summary.Results {
		assert.Equal(t, domain.OutcomeFailed, r.Outcome)
		assert.ErrorIs(t, r.Err, domain.ErrNoEmbeddings)
	}
	assert.Equal(t, domain.StateFailed, f.state(t, doc, f.salud))
	assert.Zero(t, f.llm.Calls())
}

func TestOrchestrator_ExtractionFailureEndsDocument(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.extractor.err = domain.ErrExtractionFailed
	doc := f.document(t, "FA")

	summary := f.orch.ProcessDocument(context.Background(), doc.ID, domain.ProcessOptions{})

	assert.ErrorIs(t, summary.Err, domain.ErrExtractionFailed)
	assert.Empty(t, summary.Results)

	entries := f.stores.Logs.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.StageExtraction, entries[0].Stage)
	assert.Equal(t, domain.LogFailed, entries[0].Status)
	assert.Equal(t, domain.LogFailed, entries[1].Status)
}

func TestOrchestrator_MissingDocumentDoesNotAbortBatch(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")

	report := f.orch.ProcessMultipleDocuments(context.Background(), []int64{999, doc.ID, doc.ID}, domain.ProcessOptions{})

	require.Len(t, report.Documents, 2, "duplicate IDs are processed once")
	assert.ErrorIs(t, report.Documents[0].Err, domain.ErrNotFound)
	assert.NoError(t, report.Documents[1].Err)
	assert.Equal(t, 1, report.DocumentsFailed())
	assert.Equal(t, 2, report.Count(domain.OutcomeProcessed))
}

func TestOrchestrator_CategoryKeys(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")

	summary := f.orch.ProcessDocument(context.Background(), doc.ID, domain.ProcessOptions{
		CategoryKeys: []string{"economia", "salud", "economia"},
	})

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "salud", summary.Results[0].Category.Key)
	assert.Equal(t, "economia", summary.Results[1].Category.Key)
}

func TestOrchestrator_UnknownCategoryKey(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")

	summary := f.orch.ProcessDocument(context.Background(), doc.ID, domain.ProcessOptions{
		CategoryKeys: []string{"deportes"},
	})

	assert.ErrorIs(t, summary.Err, domain.ErrNotFound)
	assert.Zero(t, f.llm.Calls())
}

func TestOrchestrator_InactiveCategoriesSkipped(t *testing.T) {
	f := newPipelineFixture(t, false)
	require.NoError(t, f.stores.Categories.SetCategoryActive(context.Background(), "economia", false))
	doc := f.document(t, "FA")

	summary := f.orch.ProcessDocument(context.Background(), doc.ID, domain.ProcessOptions{})

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "salud", summary.Results[0].Category.Key)
}

func TestOrchestrator_StaleClaimFromCrashedRunIsTaken(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")
	ctx := context.Background()
	require.NoError(t, f.stores.Status.Claim(ctx, "crashed-run", doc.ID, f.salud.ID))
	f.stores.Status.SetStaleClaimAfter(0)

	summary := f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{RunID: "run-2"})

	assert.Equal(t, domain.OutcomeProcessed, summary.Results[0].Outcome)
	st, err := f.stores.Status.GetStatus(ctx, doc.ID, f.salud.ID)
	require.NoError(t, err)
	assert.Equal(t, "run-2", st.RunID)
}

func TestOrchestrator_LiveClaimFromOtherRunIsLeftAlone(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")
	ctx := context.Background()
	require.NoError(t, f.stores.Status.Claim(ctx, "other-process", doc.ID, f.salud.ID))

	summary := f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{RunID: "run-2"})

	require.Len(t, summary.Results, 2)
	assert.Equal(t, domain.OutcomeFailed, summary.Results[0].Outcome)
	assert.ErrorIs(t, summary.Results[0].Err, domain.ErrAlreadyClaimed)
	assert.Equal(t, domain.OutcomeProcessed, summary.Results[1].Outcome)
	st, err := f.stores.Status.GetStatus(ctx, doc.ID, f.salud.ID)
	require.NoError(t, err)
	assert.Equal(t, "other-process", st.RunID)
	assert.Equal(t, domain.StateStarted, st.State)
}

func TestOrchestrator_ParallelWorkers(t *testing.T) {
	f := newPipelineFixture(t, false)
	ids := []int64{
		f.document(t, "FA").ID,
		f.document(t, "PLN").ID,
		f.document(t, "PUSC").ID,
	}

	report := f.orch.ProcessMultipleDocuments(context.Background(), ids, domain.ProcessOptions{Workers: 3})

	require.Len(t, report.Documents, 3)
	for i, d := range report.Documents {
		assert.Equal(t, ids[i], d.Document.ID, "results keep input order")
		assert.NoError(t, d.Err)
	}
	assert.Equal(t, 6, report.Count(domain.OutcomeProcessed))
	assert.Equal(t, 6, f.llm.Calls())
	assert.Equal(t, 3, f.extractor.Calls())
}

func TestOrchestrator_BackfillCategory(t *testing.T) {
	f := newPipelineFixture(t, false)
	fa := f.document(t, "FA")
	pln := f.document(t, "PLN")
	ctx := context.Background()

	f.orch.ProcessDocument(ctx, fa.ID, domain.ProcessOptions{CategoryKeys: []string{"salud"}})
	calls := f.llm.Calls()

	report, err := f.orch.BackfillCategory(ctx, "salud", domain.ProcessOptions{})

	require.NoError(t, err)
	assert.Equal(t, "salud", report.Category.Key)
	assert.Equal(t, 1, report.DocumentsConsidered)
	require.Len(t, report.Batch.Documents, 1)
	assert.Equal(t, pln.ID, report.Batch.Documents[0].Document.ID)
	require.Len(t, report.Batch.Documents[0].Results, 1)
	assert.Equal(t, domain.OutcomeProcessed, report.Batch.Documents[0].Results[0].Outcome)
	assert.Equal(t, calls+1, f.llm.Calls())

	// economia was never touched by the backfill
	assert.Equal(t, domain.StatePending, f.state(t, fa, f.economia))
	assert.Equal(t, domain.StatePending, f.state(t, pln, f.economia))
}

func TestOrchestrator_BackfillUnknownCategory(t *testing.T) {
	f := newPipelineFixture(t, false)

	_, err := f.orch.BackfillCategory(context.Background(), "deportes", domain.ProcessOptions{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrchestrator_Plan(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")
	ctx := context.Background()

	plan, err := f.orch.Plan(ctx, []int64{doc.ID}, domain.ProcessOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, plan.Documents)
	require.Len(t, plan.Pairs, 2)
	assert.Equal(t, "FA", plan.Pairs[0].PartyAbbr)
	assert.Equal(t, domain.StatePending, plan.Pairs[0].State)
	assert.Equal(t, 4000, plan.EstimatedTokens)
	assert.InDelta(t, 0.02, plan.EstimatedCostUSD, 1e-12)
	assert.Zero(t, f.llm.Calls())
	assert.Zero(t, f.embedder.Calls())
	assert.Zero(t, f.extractor.Calls())

	f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{CategoryKeys: []string{"salud"}})
	plan, err = f.orch.Plan(ctx, []int64{doc.ID}, domain.ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.AlreadyCompleted)
	assert.Equal(t, 2000, plan.EstimatedTokens)
}

func TestOrchestrator_Plan_UnknownDocument(t *testing.T) {
	f := newPipelineFixture(t, false)

	_, err := f.orch.Plan(context.Background(), []int64{999}, domain.ProcessOptions{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrchestrator_ResetRegeneratesWithHistory(t *testing.T) {
	f := newPipelineFixture(t, true)
	doc := f.document(t, "FA")
	ctx := context.Background()

	f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{})

	n, err := f.orch.Reset(ctx, []int64{doc.ID}, domain.ProcessOptions{CategoryKeys: []string{"salud"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.StatePending, f.state(t, doc, f.salud))
	assert.Equal(t, domain.StateCompleted, f.state(t, doc, f.economia))

	summary := f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{})
	assert.Equal(t, domain.OutcomeProcessed, summary.Results[0].Outcome)
	assert.Equal(t, domain.OutcomeAlreadyCompleted, summary.Results[1].Outcome)

	history, err := f.stores.Status.ListHistory(ctx, doc.PartyID, f.salud.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	f := newPipelineFixture(t, false)
	doc := f.document(t, "FA")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := f.orch.ProcessDocument(ctx, doc.ID, domain.ProcessOptions{})

	assert.ErrorIs(t, summary.Err, context.Canceled)
	assert.Zero(t, f.llm.Calls())
}
