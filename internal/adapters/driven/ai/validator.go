package ai

import (
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator adapts the package-level validators to the settings
// service's port.
type ConfigValidator struct{}

// NewConfigValidator returns a validator that pings real providers.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the configured embedding provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

// ValidateLLM pings the configured generation provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}
