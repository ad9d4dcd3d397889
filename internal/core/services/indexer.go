package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexService = (*Indexer)(nil)

// Indexer chunks page text and stores one embedding per chunk.
type Indexer struct {
	documents  driven.DocumentStore
	pages      driven.PageTextStore
	embeddings driven.EmbeddingStore
	embedder   driven.EmbeddingService
	chunker    driven.Chunker
	pricing    domain.Pricing
	metrics    driven.PipelineMetrics
}

// NewIndexer creates a new indexer.
// The embedder may be nil, in which case every indexing call returns
// domain.ErrEmbeddingUnavailable.
func NewIndexer(
	documents driven.DocumentStore,
	pages driven.PageTextStore,
	embeddings driven.EmbeddingStore,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
	pricing domain.Pricing,
) *Indexer {
	return &Indexer{
		documents:  documents,
		pages:      pages,
		embeddings: embeddings,
		embedder:   embedder,
		chunker:    chunker,
		pricing:    pricing,
	}
}

// SetMetrics attaches an optional metrics recorder.
func (i *Indexer) SetMetrics(m driven.PipelineMetrics) {
	i.metrics = m
}

// IndexDocument indexes every extracted page of a document.
// Pages that already have embeddings are skipped.
func (i *Indexer) IndexDocument(ctx context.Context, documentID int64) (domain.IndexReport, error) {
	var report domain.IndexReport
	if i.embedder == nil {
		return report, domain.ErrEmbeddingUnavailable
	}

	doc, err := i.documents.GetDocument(ctx, documentID)
	if err != nil {
		return report, fmt.Errorf("get document: %w", err)
	}

	pages, err := i.pages.GetPages(ctx, documentID)
	if err != nil {
		return report, fmt.Errorf("get pages: %w", err)
	}

	for _, page := range pages {
		res, err := i.indexPage(ctx, doc, page)
		if err != nil {
			return report, err
		}
		report.Add(res)
	}

	logger.Info("Indexed document %d: %d pages, %d skipped, %d chunks, %d failed, $%.4f",
		documentID, report.PagesIndexed, report.PagesSkipped, report.ChunksEmbedded, report.ChunksFailed, report.CostUSD)

	if i.metrics != nil {
		i.metrics.RecordIndex(ctx, report)
	}
	return report, nil
}

// IndexPage indexes a single page.
func (i *Indexer) IndexPage(ctx context.Context, page domain.PageText) (domain.PageIndexResult, error) {
	if i.embedder == nil {
		return domain.PageIndexResult{}, domain.ErrEmbeddingUnavailable
	}
	doc, err := i.documents.GetDocument(ctx, page.DocumentID)
	if err != nil {
		return domain.PageIndexResult{}, fmt.Errorf("get document: %w", err)
	}
	return i.indexPage(ctx, doc, page)
}

// ClearDocument deletes a document's embeddings so the next run rebuilds them.
func (i *Indexer) ClearDocument(ctx context.Context, documentID int64) (int64, error) {
	n, err := i.embeddings.DeleteForDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete embeddings: %w", err)
	}
	logger.Info("Cleared %d embeddings for document %d", n, documentID)
	return n, nil
}

func (i *Indexer) indexPage(ctx context.Context, doc *domain.Document, page domain.PageText) (domain.PageIndexResult, error) {
	result := domain.PageIndexResult{PageTextID: page.ID, PageNumber: page.PageNumber}

	// 1. A page with any embedding counts as indexed
	has, err := i.embeddings.HasEmbeddings(ctx, page.ID)
	if err != nil {
		return result, fmt.Errorf("check embeddings for page %d: %w", page.PageNumber, err)
	}
	if has {
		result.Skipped = true
		return result, nil
	}

	// 2. Chunk and embed
	model := i.embedder.ModelName()
	for _, chunk := range i.chunker.Split(page.Text) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		vector, tokens, err := i.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			logger.Warn("Embedding failed for page %d chunk %d: %v", page.PageNumber, chunk.Index, err)
			result.Failures = append(result.Failures, domain.ChunkFailure{
				ChunkIndex: chunk.Index,
				Error:      err.Error(),
			})
			continue
		}
		result.Tokens += tokens

		// 3. Persist
		emb := &domain.Embedding{
			PageTextID: page.ID,
			DocumentID: doc.ID,
			PartyID:    doc.PartyID,
			PageNumber: page.PageNumber,
			ChunkIndex: chunk.Index,
			ChunkText:  chunk.Text,
			Vector:     vector,
			Model:      model,
			TokenCount: tokens,
		}
		if err := i.embeddings.SaveEmbedding(ctx, emb); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				logger.Debug("Chunk %d of page %d already stored", chunk.Index, page.PageNumber)
				continue
			}
			result.Failures = append(result.Failures, domain.ChunkFailure{
				ChunkIndex: chunk.Index,
				Error:      fmt.Sprintf("save embedding: %v", err),
			})
			continue
		}
		result.ChunksEmbedded++
	}

	result.CostUSD = i.pricing.Cost(model, domain.TokenUsage{InputTokens: result.Tokens})
	logger.Debug("Page %d: %d chunks embedded, %d failed", page.PageNumber, result.ChunksEmbedded, len(result.Failures))
	return result, nil
}
