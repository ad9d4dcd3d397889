package driven

import "github.com/custodia-labs/plataformas/internal/core/domain"

// Chunker splits page text into overlapping, sentence-aligned chunks.
// Implementations must be deterministic: the same text and parameters
// always yield the same boundaries.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Split returns the chunks of text with dense zero-based indices.
	Split(text string) []domain.Chunk
}
