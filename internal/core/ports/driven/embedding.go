// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Indexing and retrieval must use the same model; mixing models is not supported.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text and returns
	// the token count the backend reported for it.
	// Remote failures are *domain.BackendError values.
	Embed(ctx context.Context, text string) ([]float32, int, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// QueryEmbeddingCache stores query vectors so repeated category queries
// do not hit the embedding backend. It is optional.
type QueryEmbeddingCache interface {
	// Get returns the cached vector for (model, query), if any.
	Get(ctx context.Context, model, query string) ([]float32, bool, error)

	// Set stores the vector for (model, query).
	Set(ctx context.Context, model, query string, vector []float32) error

	// Close releases resources.
	Close() error
}
