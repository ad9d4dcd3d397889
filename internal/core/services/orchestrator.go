package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.PipelineService = (*Orchestrator)(nil)

// TextSource provides a document's page text, extracting it once.
type TextSource interface {
	EnsureText(ctx context.Context, documentID int64, force bool) ([]domain.PageText, bool, error)
}

// PositionSynthesizer generates a position from retrieved chunks.
type PositionSynthesizer interface {
	Synthesize(ctx context.Context, req domain.SynthesisRequest) (*domain.Synthesis, error)
}

// OrchestratorConfig holds pipeline parameters.
type OrchestratorConfig struct {
	// TopK is the number of chunks retrieved per category.
	TopK int

	// Workers is the default number of documents processed concurrently.
	Workers int

	// Model is the generation model used for dry-run cost estimates.
	Model string
}

// Orchestrator runs extraction, indexing, retrieval and synthesis for
// documents across categories.
type Orchestrator struct {
	documents   driven.DocumentStore
	parties     driven.PartyStore
	categories  driven.CategoryStore
	logs        driven.ProcessingLogStore
	text        TextSource
	indexer     driving.IndexService
	retriever   driving.RetrievalService
	synthesizer PositionSynthesizer
	tracker     *Tracker
	pricing     domain.Pricing
	cfg         OrchestratorConfig
	metrics     driven.PipelineMetrics
}

// NewOrchestrator creates a new pipeline orchestrator.
// The log store may be nil, in which case stage rows are not recorded.
func NewOrchestrator(
	documents driven.DocumentStore,
	parties driven.PartyStore,
	categories driven.CategoryStore,
	logs driven.ProcessingLogStore,
	text TextSource,
	indexer driving.IndexService,
	retriever driving.RetrievalService,
	synthesizer PositionSynthesizer,
	tracker *Tracker,
	pricing domain.Pricing,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		documents:   documents,
		parties:     parties,
		categories:  categories,
		logs:        logs,
		text:        text,
		indexer:     indexer,
		retriever:   retriever,
		synthesizer: synthesizer,
		tracker:     tracker,
		pricing:     pricing,
		cfg:         cfg,
	}
}

// SetMetrics attaches an optional metrics recorder.
func (o *Orchestrator) SetMetrics(m driven.PipelineMetrics) {
	o.metrics = m
}

// ProcessDocument runs the pipeline for one document. Failures are reported
// in the summary, never returned.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *Orchestrator) ProcessDocument(
	ctx context.Context,
	documentID int64,
	opts domain.ProcessOptions,
) domain.DocumentSummary {
	start := time.Now()
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	runID := opts.RunID
	// Bookkeeping writes must land even when ctx is cancelled mid-category.
	bg := context.WithoutCancel(ctx)

	summary := domain.DocumentSummary{}
	finish := func() domain.DocumentSummary {
		summary.Duration = time.Since(start)
		entry := domain.ProcessingLogEntry{
			RunID:      runID,
			DocumentID: documentID,
			Stage:      domain.StageDocument,
			Status:     domain.LogSuccess,
			TokensUsed: summary.Index.Tokens + summary.Usage().Total(),
			CostUSD:    summary.TotalCost(),
			Duration:   summary.Duration,
		}
		if summary.Err != nil {
			entry.Status = domain.LogFailed
			entry.ErrorMessage = summary.Err.Error()
			logger.Error("Document %d failed: %v", documentID, summary.Err)
		}
		o.appendLog(bg, entry)
		if o.metrics != nil {
			o.metrics.RecordDocument(bg, summary.Party.Abbreviation, summary.Err != nil, summary.Duration)
		}
		logger.Info("Document %d done in %s: %d processed, %d skipped, %d no content, %d failed, $%.4f",
			documentID, summary.Duration.Round(time.Millisecond),
			summary.Count(domain.OutcomeProcessed), summary.Count(domain.OutcomeAlreadyCompleted),
			summary.Count(domain.OutcomeNoContent), summary.Count(domain.OutcomeFailed), summary.TotalCost())
		return summary
	}

	doc, err := o.documents.GetDocument(ctx, documentID)
	if err != nil {
		summary.Err = fmt.Errorf("get document: %w", err)
		return finish()
	}
	summary.Document = *doc

	party, err := o.parties.GetParty(ctx, doc.PartyID)
	if err != nil {
		summary.Err = fmt.Errorf("get party: %w", err)
		return finish()
	}
	summary.Party = *party
	logger.Section(fmt.Sprintf("%s (%s)", party.Name, party.Abbreviation))

	// 1. Ensure page text exists
	stageStart := time.Now()
	if opts.ForceExtract {
		// Re-extracted pages get new IDs; not every vector store cascades.
		if _, err := o.indexer.ClearDocument(ctx, doc.ID); err != nil {
			summary.Err = fmt.Errorf("clear embeddings: %w", err)
			o.logStage(bg, runID, doc.ID, 0, domain.StageExtraction, stageStart, err, 0, 0)
			return finish()
		}
	}
	pages, extracted, err := o.text.EnsureText(ctx, doc.ID, opts.ForceExtract)
	if err != nil {
		summary.Err = fmt.Errorf("extract text: %w", err)
		o.logStage(bg, runID, doc.ID, 0, domain.StageExtraction, stageStart, err, 0, 0)
		return finish()
	}
	summary.Extracted = extracted
	if extracted {
		logger.Info("Extracted %d pages", len(pages))
		o.logStage(bg, runID, doc.ID, 0, domain.StageExtraction, stageStart, nil, 0, 0)
	} else {
		o.logSkipped(bg, runID, doc.ID, 0, domain.StageExtraction, "page text cached")
	}

	// 1b. Index pages not yet embedded
	stageStart = time.Now()
	idx, err := o.indexer.IndexDocument(ctx, doc.ID)
	summary.Index = idx
	o.logStage(bg, runID, doc.ID, 0, domain.StageIndexing, stageStart, err, idx.Tokens, idx.CostUSD)
	if err != nil {
		summary.Err = fmt.Errorf("index document: %w", err)
		return finish()
	}

	// 2. Resolve categories
	cats, err := o.resolveCategories(ctx, opts.CategoryKeys)
	if err != nil {
		summary.Err = err
		return finish()
	}

	// 3. Categories run sequentially in display order
	for _, cat := range cats {
		if err := ctx.Err(); err != nil {
			summary.Err = err
			break
		}
		res := o.processCategory(ctx, runID, *doc, *party, cat, idx)
		summary.Results = append(summary.Results, res)
		if o.metrics != nil {
			o.metrics.RecordCategory(bg, res)
		}
	}

	return finish()
}

// processCategory runs claim, retrieve, synthesize and complete for one pair.
func (o *Orchestrator) processCategory(
	ctx context.Context,
	runID string,
	doc domain.Document,
	party domain.Party,
	cat domain.Category,
	idx domain.IndexReport,
) domain.CategoryResult {
	start := time.Now()
	bg := context.WithoutCancel(ctx)
	res := domain.CategoryResult{Category: cat}

	// Claim
	if err := o.tracker.Start(ctx, runID, doc.ID, cat.ID); err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			logger.Info("  %s: already completed", cat.Name)
			o.logSkipped(bg, runID, doc.ID, cat.ID, domain.StageSynthesis, "already completed")
			res.Outcome = domain.OutcomeAlreadyCompleted
			res.Duration = time.Since(start)
			return res
		}
		res.Outcome = domain.OutcomeFailed
		res.Err = fmt.Errorf("claim: %w", err)
		logger.Error("  %s: %v", cat.Name, res.Err)
		res.Duration = time.Since(start)
		return res
	}

	// Retrieve within this document
	stageStart := time.Now()
	chunks, err := o.retriever.Retrieve(ctx, cat.Query(), domain.SearchScope{DocumentID: doc.ID}, o.cfg.TopK)
	if errors.Is(err, domain.ErrNoEmbeddings) && idx.ChunksFailed == 0 {
		chunks, err = nil, nil
	}
	if err != nil {
		o.logStage(bg, runID, doc.ID, cat.ID, domain.StageRetrieval, stageStart, err, 0, 0)
		return o.fail(bg, runID, doc, res, fmt.Errorf("retrieve: %w", err), start)
	}
	if len(chunks) == 0 {
		if err := o.tracker.Release(bg, runID, doc.ID, cat.ID); err != nil {
			logger.Warn("Release %s for document %d: %v", cat.Key, doc.ID, err)
		}
		logger.Info("  %s: no relevant content", cat.Name)
		o.logSkipped(bg, runID, doc.ID, cat.ID, domain.StageRetrieval, "no relevant content")
		res.Outcome = domain.OutcomeNoContent
		res.Duration = time.Since(start)
		return res
	}
	o.logStage(bg, runID, doc.ID, cat.ID, domain.StageRetrieval, stageStart, nil, 0, 0)
	res.ChunksUsed = len(chunks)

	// Synthesize
	stageStart = time.Now()
	syn, err := o.synthesizer.Synthesize(ctx, domain.SynthesisRequest{
		Party:    party,
		Category: cat,
		Chunks:   chunks,
	})
	if syn != nil {
		res.Usage = syn.Usage
		res.CostUSD = syn.CostUSD
	}
	if err != nil {
		o.logStage(bg, runID, doc.ID, cat.ID, domain.StageSynthesis, stageStart, err, res.Usage.Total(), res.CostUSD)
		return o.fail(bg, runID, doc, res, fmt.Errorf("synthesize: %w", err), start)
	}

	// Persist position and status together
	pos := domain.NewPartyPosition(doc, cat, syn, runID)
	if err := o.tracker.Complete(bg, runID, &pos); err != nil {
		o.logStage(bg, runID, doc.ID, cat.ID, domain.StageSynthesis, stageStart, err, res.Usage.Total(), res.CostUSD)
		return o.fail(bg, runID, doc, res, fmt.Errorf("save position: %w", err), start)
	}
	o.logStage(bg, runID, doc.ID, cat.ID, domain.StageSynthesis, stageStart, nil, res.Usage.Total(), res.CostUSD)

	logger.Info("  %s: %d proposals from %d chunks, $%.4f",
		cat.Name, len(pos.KeyProposals), len(chunks), res.CostUSD)
	res.Outcome = domain.OutcomeProcessed
	res.Position = &pos
	res.Duration = time.Since(start)
	return res
}

// fail records a failed pair and returns the result.
func (o *Orchestrator) fail(
	ctx context.Context,
	runID string,
	doc domain.Document,
	res domain.CategoryResult,
	cause error,
	start time.Time,
) domain.CategoryResult {
	res.Outcome = domain.OutcomeFailed
	res.Err = cause
	res.Duration = time.Since(start)
	if err := o.tracker.Fail(ctx, runID, doc.ID, res.Category.ID, cause); err != nil {
		logger.Warn("Mark %s failed for document %d: %v", res.Category.Key, doc.ID, err)
	}
	logger.Error("  %s: %v", res.Category.Name, cause)
	return res
}

// ProcessMultipleDocuments runs the pipeline over several documents under
// one run ID. Duplicate IDs are processed once.
func (o *Orchestrator) ProcessMultipleDocuments(
	ctx context.Context,
	documentIDs []int64,
	opts domain.ProcessOptions,
) domain.BatchReport {
	start := time.Now()
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	ids := dedupeIDs(documentIDs)
	report := domain.BatchReport{
		RunID:     opts.RunID,
		Documents: make([]domain.DocumentSummary, len(ids)),
	}

	workers := opts.Workers
	if workers < 1 {
		workers = o.cfg.Workers
	}
	if workers > len(ids) {
		workers = len(ids)
	}
	logger.Debug("Run %s: %d documents, %d workers", opts.RunID, len(ids), workers)

	if workers <= 1 {
		for i, id := range ids {
			report.Documents[i] = o.ProcessDocument(ctx, id, opts)
		}
		report.Duration = time.Since(start)
		return report
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Documents[i] = o.ProcessDocument(ctx, ids[i], opts)
			}
		}()
	}
	for i := range ids {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(start)
	return report
}

// BackfillCategory processes one category for every document that has not
// completed it.
func (o *Orchestrator) BackfillCategory(
	ctx context.Context,
	categoryKey string,
	opts domain.ProcessOptions,
) (domain.BackfillReport, error) {
	cat, err := o.categories.GetCategoryByKey(ctx, categoryKey)
	if err != nil {
		return domain.BackfillReport{}, fmt.Errorf("get category %q: %w", categoryKey, err)
	}

	ids, err := o.tracker.PendingDocuments(ctx, cat.ID)
	if err != nil {
		return domain.BackfillReport{}, fmt.Errorf("list pending documents: %w", err)
	}
	logger.Info("Backfill %s: %d documents pending", cat.Key, len(ids))

	opts.CategoryKeys = []string{cat.Key}
	return domain.BackfillReport{
		Category:            *cat,
		DocumentsConsidered: len(ids),
		Batch:               o.ProcessMultipleDocuments(ctx, ids, opts),
	}, nil
}

// Plan reports the pairs a run would touch and an estimated cost, without
// calling any backend.
func (o *Orchestrator) Plan(
	ctx context.Context,
	documentIDs []int64,
	opts domain.ProcessOptions,
) (domain.ProcessPlan, error) {
	cats, err := o.resolveCategories(ctx, opts.CategoryKeys)
	if err != nil {
		return domain.ProcessPlan{}, err
	}

	ids := dedupeIDs(documentIDs)
	plan := domain.ProcessPlan{Documents: len(ids)}
	for _, id := range ids {
		doc, err := o.documents.GetDocument(ctx, id)
		if err != nil {
			return plan, fmt.Errorf("get document %d: %w", id, err)
		}
		party, err := o.parties.GetParty(ctx, doc.PartyID)
		if err != nil {
			return plan, fmt.Errorf("get party %d: %w", doc.PartyID, err)
		}
		for _, cat := range cats {
			state, err := o.tracker.State(ctx, doc.ID, cat.ID)
			if err != nil {
				return plan, err
			}
			if !state.Eligible() {
				plan.AlreadyCompleted++
			}
			plan.Pairs = append(plan.Pairs, domain.PlannedPair{
				DocumentID:  doc.ID,
				PartyAbbr:   party.Abbreviation,
				CategoryKey: cat.Key,
				State:       state,
			})
		}
	}

	eligible := len(plan.Pairs) - plan.AlreadyCompleted
	plan.EstimatedTokens = eligible * domain.EstimatedTokensPerPair
	plan.EstimatedCostUSD = o.pricing.Cost(o.cfg.Model, domain.TokenUsage{InputTokens: plan.EstimatedTokens})
	return plan, nil
}

// Reset returns the completed pairs of the given documents to pending.
// It runs outside any processing run; with keep_history on, the next run
// archives the positions it replaces.
func (o *Orchestrator) Reset(ctx context.Context, documentIDs []int64, opts domain.ProcessOptions) (int, error) {
	cats, err := o.resolveCategories(ctx, opts.CategoryKeys)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, id := range dedupeIDs(documentIDs) {
		for _, cat := range cats {
			state, err := o.tracker.State(ctx, id, cat.ID)
			if err != nil {
				return n, err
			}
			if state != domain.StateCompleted {
				continue
			}
			if err := o.tracker.Reset(ctx, id, cat.ID); err != nil {
				return n, fmt.Errorf("reset document %d category %s: %w", id, cat.Key, err)
			}
			n++
		}
	}
	logger.Info("Reset %d completed pairs", n)
	return n, nil
}

// resolveCategories returns the active categories, or the named ones,
// in display order.
func (o *Orchestrator) resolveCategories(ctx context.Context, keys []string) ([]domain.Category, error) {
	if len(keys) == 0 {
		cats, err := o.categories.ListCategories(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		return cats, nil
	}

	cats := make([]domain.Category, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		cat, err := o.categories.GetCategoryByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get category %q: %w", key, err)
		}
		cats = append(cats, *cat)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].DisplayOrder < cats[j].DisplayOrder
	})
	return cats, nil
}

func (o *Orchestrator) logStage(
	ctx context.Context,
	runID string,
	documentID, categoryID int64,
	stage domain.Stage,
	start time.Time,
	err error,
	tokens int,
	cost float64,
) {
	entry := domain.ProcessingLogEntry{
		RunID:      runID,
		DocumentID: documentID,
		CategoryID: categoryID,
		Stage:      stage,
		Status:     domain.LogSuccess,
		TokensUsed: tokens,
		CostUSD:    cost,
		Duration:   time.Since(start),
	}
	if err != nil {
		entry.Status = domain.LogFailed
		entry.ErrorMessage = err.Error()
	}
	o.appendLog(ctx, entry)
}

func (o *Orchestrator) logSkipped(ctx context.Context, runID string, documentID, categoryID int64, stage domain.Stage, reason string) {
	o.appendLog(ctx, domain.ProcessingLogEntry{
		RunID:        runID,
		DocumentID:   documentID,
		CategoryID:   categoryID,
		Stage:        stage,
		Status:       domain.LogSkipped,
		ErrorMessage: reason,
	})
}

func (o *Orchestrator) appendLog(ctx context.Context, entry domain.ProcessingLogEntry) {
	if o.logs == nil {
		return
	}
	entry.Timestamp = time.Now()
	if err := o.logs.AppendLog(ctx, &entry); err != nil {
		logger.Warn("Append processing log: %v", err)
	}
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
