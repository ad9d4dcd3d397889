package driven

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// EmbeddingStore stores chunk embeddings and answers nearest-neighbour queries.
// Uniqueness on (page_text_id, chunk_index, model) is enforced by the store.
type EmbeddingStore interface {
	// HasEmbeddings reports whether a page has at least one embedding.
	HasEmbeddings(ctx context.Context, pageTextID int64) (bool, error)

	// SaveEmbedding inserts an embedding and sets its ID.
	// Returns domain.ErrAlreadyExists on a uniqueness conflict.
	SaveEmbedding(ctx context.Context, e *domain.Embedding) error

	// DeleteForDocument removes every embedding of a document's pages.
	DeleteForDocument(ctx context.Context, documentID int64) (int64, error)

	// Search returns the k chunks closest to the query vector under cosine
	// distance, restricted to scope and model, ordered by ascending distance.
	Search(ctx context.Context, query []float32, model string, scope domain.SearchScope, k int) ([]domain.RetrievedChunk, error)

	// CountEmbeddings counts embeddings in scope for a model.
	// An empty model counts every model.
	CountEmbeddings(ctx context.Context, scope domain.SearchScope, model string) (int, error)

	// Close releases resources.
	Close() error
}
