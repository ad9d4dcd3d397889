package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Retriever finds the chunks nearest to a free-text query.
type Retriever struct {
	embeddings driven.EmbeddingStore
	embedder   driven.EmbeddingService
	cache      driven.QueryEmbeddingCache
	defaultK   int
}

// NewRetriever creates a new retriever. defaultK applies when a caller
// passes k <= 0; a non-positive defaultK falls back to domain.DefaultTopK.
func NewRetriever(embeddings driven.EmbeddingStore, embedder driven.EmbeddingService, defaultK int) *Retriever {
	if defaultK <= 0 {
		defaultK = domain.DefaultTopK
	}
	return &Retriever{
		embeddings: embeddings,
		embedder:   embedder,
		defaultK:   defaultK,
	}
}

// SetCache attaches an optional query-embedding cache.
func (r *Retriever) SetCache(cache driven.QueryEmbeddingCache) {
	r.cache = cache
}

// Retrieve returns up to k chunks in scope, closest first.
//
// domain.ErrNoEmbeddings means nothing in scope has been indexed under the
// current model. An indexed scope with no hits returns an empty slice.
func (r *Retriever) Retrieve(
	ctx context.Context,
	query string,
	scope domain.SearchScope,
	k int,
) ([]domain.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if k <= 0 {
		k = r.defaultK
	}
	model := r.embedder.ModelName()

	count, err := r.embeddings.CountEmbeddings(ctx, scope, model)
	if err != nil {
		return nil, fmt.Errorf("count embeddings: %w", err)
	}
	if count == 0 {
		return nil, domain.ErrNoEmbeddings
	}

	vector, err := r.queryVector(ctx, model, query)
	if err != nil {
		return nil, err
	}

	chunks, err := r.embeddings.Search(ctx, vector, model, scope, k)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}
	if chunks == nil {
		chunks = []domain.RetrievedChunk{}
	}
	logger.Debug("Retrieved %d chunks for %q", len(chunks), query)
	return chunks, nil
}

func (r *Retriever) queryVector(ctx context.Context, model, query string) ([]float32, error) {
	if r.cache != nil {
		vector, ok, err := r.cache.Get(ctx, model, query)
		if err != nil {
			logger.Warn("Query cache read failed: %v", err)
		} else if ok {
			return vector, nil
		}
	}

	vector, _, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, model, query, vector); err != nil {
			logger.Warn("Query cache write failed: %v", err)
		}
	}
	return vector, nil
}
