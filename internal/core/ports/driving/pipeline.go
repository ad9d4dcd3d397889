package driving

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// PipelineService runs position synthesis over documents.
type PipelineService interface {
	// ProcessDocument runs every eligible category for one document.
	// Failures are reported in the summary, never returned.
	ProcessDocument(ctx context.Context, documentID int64, opts domain.ProcessOptions) domain.DocumentSummary

	// ProcessMultipleDocuments processes each document independently.
	ProcessMultipleDocuments(ctx context.Context, documentIDs []int64, opts domain.ProcessOptions) domain.BatchReport

	// BackfillCategory processes one category for every document where it is not completed.
	BackfillCategory(ctx context.Context, categoryKey string, opts domain.ProcessOptions) (domain.BackfillReport, error)

	// Plan estimates a run without calling any backend.
	Plan(ctx context.Context, documentIDs []int64, opts domain.ProcessOptions) (domain.ProcessPlan, error)

	// Reset returns completed pairs to pending so the next run regenerates
	// them. It reports how many pairs were reset.
	Reset(ctx context.Context, documentIDs []int64, opts domain.ProcessOptions) (int, error)
}

// IndexService builds and clears chunk embeddings.
type IndexService interface {
	// IndexDocument embeds every page of a document not yet indexed.
	IndexDocument(ctx context.Context, documentID int64) (domain.IndexReport, error)

	// ClearDocument deletes a document's embeddings so the next run rebuilds them.
	ClearDocument(ctx context.Context, documentID int64) (int64, error)
}

// RetrievalService runs semantic search over indexed chunks.
type RetrievalService interface {
	// Retrieve returns the k chunks nearest to query within scope.
	Retrieve(ctx context.Context, query string, scope domain.SearchScope, k int) ([]domain.RetrievedChunk, error)
}
