package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/plataformas/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore.
// Embeddings are kept in insertion order, which is the tie-break order for search.
type EmbeddingStore struct {
	mu         sync.RWMutex
	nextID     int64
	embeddings []domain.Embedding
}

// NewEmbeddingStore creates a new in-memory embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{}
}

// HasEmbeddings reports whether a page has at least one embedding.
func (s *EmbeddingStore) HasEmbeddings(_ context.Context, pageTextID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.embeddings {
		if e.PageTextID == pageTextID {
			return true, nil
		}
	}
	return false, nil
}

// SaveEmbedding inserts an embedding.
func (s *EmbeddingStore) SaveEmbedding(_ context.Context, e *domain.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.embeddings {
		if existing.PageTextID == e.PageTextID && existing.ChunkIndex == e.ChunkIndex && existing.Model == e.Model {
			return domain.ErrAlreadyExists
		}
	}
	s.nextID++
	e.ID = s.nextID
	e.CreatedAt = time.Now()
	s.embeddings = append(s.embeddings, *e)
	return nil
}

// DeleteForDocument removes a document's embeddings.
func (s *EmbeddingStore) DeleteForDocument(_ context.Context, documentID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.embeddings[:0]
	var removed int64
	for _, e := range s.embeddings {
		if e.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.embeddings = kept
	return removed, nil
}

// Search ranks embeddings in scope by cosine distance.
func (s *EmbeddingStore) Search(_ context.Context, query []float32, model string, scope domain.SearchScope, k int) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		candidates []domain.Embedding
		vecs       [][]float32
	)
	for _, e := range s.embeddings {
		if inScope(e, model, scope) {
			candidates = append(candidates, e)
			vecs = append(vecs, e.Vector)
		}
	}

	ranked := vectors.Nearest(query, vecs, k)
	out := make([]domain.RetrievedChunk, 0, len(ranked))
	for _, r := range ranked {
		e := candidates[r.Index]
		out = append(out, domain.RetrievedChunk{
			EmbeddingID: e.ID,
			DocumentID:  e.DocumentID,
			PageNumber:  e.PageNumber,
			ChunkIndex:  e.ChunkIndex,
			Text:        e.ChunkText,
			Distance:    r.Distance,
			Similarity:  1 - r.Distance,
		})
	}
	return out, nil
}

// CountEmbeddings counts embeddings in scope.
func (s *EmbeddingStore) CountEmbeddings(_ context.Context, scope domain.SearchScope, model string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.embeddings {
		if inScope(e, model, scope) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *EmbeddingStore) Close() error {
	return nil
}

func inScope(e domain.Embedding, model string, scope domain.SearchScope) bool {
	if model != "" && e.Model != model {
		return false
	}
	switch {
	case scope.DocumentID != 0:
		return e.DocumentID == scope.DocumentID
	case scope.PartyID != 0:
		return e.PartyID == scope.PartyID
	default:
		return true
	}
}
