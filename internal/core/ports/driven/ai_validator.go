package driven

import "github.com/custodia-labs/plataformas/internal/core/domain"

// AIConfigValidator checks provider settings before they are saved.
// A provider that needs no setup validates as nil.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedding client and pings it.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM builds the generation client and pings it.
	ValidateLLM(config *domain.LLMSettings) error
}
