// Package pgvector stores chunk embeddings in PostgreSQL with the pgvector
// extension and ranks them server-side with the cosine distance operator.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.EmbeddingStore = (*Store)(nil)

// Connection retry defaults.
const (
	DefaultConnectAttempts = 5
	DefaultRetryDelay      = 2 * time.Second
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunk_embeddings (
    id BIGSERIAL PRIMARY KEY,
    page_text_id BIGINT NOT NULL,
    document_id BIGINT NOT NULL,
    party_id BIGINT NOT NULL,
    page_number INTEGER NOT NULL,
    chunk_index INTEGER NOT NULL,
    chunk_text TEXT NOT NULL,
    embedding vector NOT NULL,
    model TEXT NOT NULL,
    token_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (page_text_id, chunk_index, model)
);

CREATE INDEX IF NOT EXISTS idx_chunk_embeddings_document ON chunk_embeddings (document_id, model);
CREATE INDEX IF NOT EXISTS idx_chunk_embeddings_party ON chunk_embeddings (party_id, model);
`

// Options configures the connection.
type Options struct {
	// Attempts is how many times to try connecting. Zero means DefaultConnectAttempts.
	Attempts int
	// RetryDelay is the wait between attempts. Zero means DefaultRetryDelay.
	RetryDelay time.Duration
}

// Store implements driven.EmbeddingStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to databaseURL, retrying while the server comes up,
// and creates the embeddings table if needed.
func NewStore(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: postgres URL is required", domain.ErrInvalidInput)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultConnectAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres URL: %w", err)
	}

	var pool *pgxpool.Pool
	for attempt := 1; ; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		if attempt >= opts.Attempts {
			return nil, fmt.Errorf("connecting to postgres after %d attempts: %w", attempt, err)
		}
		logger.Warn("postgres not reachable (attempt %d/%d): %v", attempt, opts.Attempts, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating embeddings schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// HasEmbeddings reports whether a page has at least one embedding.
func (s *Store) HasEmbeddings(ctx context.Context, pageTextID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM chunk_embeddings WHERE page_text_id = $1)", pageTextID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking embeddings: %w", err)
	}
	return exists, nil
}

// SaveEmbedding inserts an embedding and sets its ID.
func (s *Store) SaveEmbedding(ctx context.Context, e *domain.Embedding) error {
	if e == nil || len(e.Vector) == 0 || e.Model == "" {
		return domain.ErrInvalidInput
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO chunk_embeddings (page_text_id, document_id, party_id, page_number, chunk_index,
			chunk_text, embedding, model, token_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (page_text_id, chunk_index, model) DO NOTHING
		RETURNING id, created_at
	`, e.PageTextID, e.DocumentID, e.PartyID, e.PageNumber, e.ChunkIndex,
		e.ChunkText, pgv.NewVector(e.Vector), e.Model, e.TokenCount).Scan(&e.ID, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// DeleteForDocument removes every embedding of a document's pages.
func (s *Store) DeleteForDocument(ctx context.Context, documentID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM chunk_embeddings WHERE document_id = $1", documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting embeddings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Search returns the k chunks closest to query under cosine distance.
// Equal distances are broken by insertion order.
func (s *Store) Search(
	ctx context.Context, query []float32, model string, scope domain.SearchScope, k int,
) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = domain.DefaultTopK
	}
	where, args := scopeFilter(scope, model, 2)
	args = append([]any{pgv.NewVector(query)}, args...)
	args = append(args, k)

	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, page_number, chunk_index, chunk_text, embedding <=> $1 AS distance
		FROM chunk_embeddings`+where+`
		ORDER BY distance, id
		LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("searching embeddings: %w", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	for rows.Next() {
		var c domain.RetrievedChunk
		if err := rows.Scan(&c.EmbeddingID, &c.DocumentID, &c.PageNumber, &c.ChunkIndex, &c.Text, &c.Distance); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		c.Similarity = 1 - c.Distance
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return out, nil
}

// CountEmbeddings counts embeddings in scope for a model.
func (s *Store) CountEmbeddings(ctx context.Context, scope domain.SearchScope, model string) (int, error) {
	where, args := scopeFilter(scope, model, 1)
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunk_embeddings"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scopeFilter builds a WHERE clause whose placeholders start at $first.
func scopeFilter(scope domain.SearchScope, model string, first int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		clauses = append(clauses, column+" = $"+strconv.Itoa(first+len(args)-1))
	}
	switch {
	case scope.DocumentID != 0:
		add("document_id", scope.DocumentID)
	case scope.PartyID != 0:
		add("party_id", scope.PartyID)
	}
	if model != "" {
		add("model", model)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
