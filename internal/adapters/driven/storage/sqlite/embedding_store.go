package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/plataformas/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// ==================== Embedding Store ====================

// embeddingStore implements driven.EmbeddingStore with brute-force cosine
// ranking over the vectors in scope.
type embeddingStore struct {
	store *Store
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

// HasEmbeddings reports whether a page has at least one embedding.
func (s *embeddingStore) HasEmbeddings(ctx context.Context, pageTextID int64) (bool, error) {
	var exists int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM embeddings WHERE page_text_id = ?)", pageTextID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking embeddings: %w", err)
	}
	return exists == 1, nil
}

// SaveEmbedding inserts an embedding and sets its ID.
func (s *embeddingStore) SaveEmbedding(ctx context.Context, e *domain.Embedding) error {
	if e == nil || len(e.Vector) == 0 || e.Model == "" {
		return domain.ErrInvalidInput
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (page_text_id, document_id, party_id, page_number, chunk_index,
			chunk_text, vector, dimensions, model, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.PageTextID, e.DocumentID, e.PartyID, e.PageNumber, e.ChunkIndex,
		e.ChunkText, vectors.Encode(e.Vector), len(e.Vector), e.Model, e.TokenCount,
		formatTime(e.CreatedAt))
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading embedding id: %w", err)
	}
	e.ID = id
	return nil
}

// DeleteForDocument removes every embedding of a document's pages.
func (s *embeddingStore) DeleteForDocument(ctx context.Context, documentID int64) (int64, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting embeddings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted embeddings: %w", err)
	}
	return n, nil
}

// Search returns the k chunks closest to query. Equal distances keep
// insertion order.
func (s *embeddingStore) Search(
	ctx context.Context, query []float32, model string, scope domain.SearchScope, k int,
) ([]domain.RetrievedChunk, error) {
	where, args := scopeFilter(scope, model)
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, page_number, chunk_index, chunk_text, vector
		FROM embeddings`+where+`
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var (
		candidates []domain.RetrievedChunk
		vecs       [][]float32
	)
	for rows.Next() {
		var c domain.RetrievedChunk
		var blob []byte
		if err := rows.Scan(&c.EmbeddingID, &c.DocumentID, &c.PageNumber, &c.ChunkIndex, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		v, err := vectors.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding %d: %w", c.EmbeddingID, err)
		}
		candidates = append(candidates, c)
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	ranked := vectors.Nearest(query, vecs, k)
	out := make([]domain.RetrievedChunk, 0, len(ranked))
	for _, r := range ranked {
		c := candidates[r.Index]
		c.Distance = r.Distance
		c.Similarity = 1 - r.Distance
		out = append(out, c)
	}
	return out, nil
}

// CountEmbeddings counts embeddings in scope for a model.
func (s *embeddingStore) CountEmbeddings(ctx context.Context, scope domain.SearchScope, model string) (int, error) {
	where, args := scopeFilter(scope, model)
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (s *embeddingStore) Close() error {
	return nil
}

// scopeFilter builds the WHERE clause for a scope and optional model.
func scopeFilter(scope domain.SearchScope, model string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	switch {
	case scope.DocumentID != 0:
		clauses = append(clauses, "document_id = ?")
		args = append(args, scope.DocumentID)
	case scope.PartyID != 0:
		clauses = append(clauses, "party_id = ?")
		args = append(args, scope.PartyID)
	}
	if model != "" {
		clauses = append(clauses, "model = ?")
		args = append(args, model)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
