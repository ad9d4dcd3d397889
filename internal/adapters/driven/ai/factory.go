// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/plataformas/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/plataformas/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/plataformas/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/plataformas/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/plataformas/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/plataformas/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/plataformas/internal/adapters/driven/llm/resilient"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

const fixHint = "Run 'plataformas settings set' to fix"

// InitResult contains the AI services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues; the affected service is nil.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds both services from application settings. A service that cannot
// be created or reached is left nil and reported as a warning, so commands
// that do not need it still run. When validate is false no ping is made.
func Init(settings *domain.AppSettings, validate bool) *InitResult {
	result := &InitResult{}

	createEmbedding, createLLM := CreateEmbeddingService, CreateLLMService
	if validate {
		createEmbedding, createLLM = CreateAndValidateEmbeddingService, CreateAndValidateLLMService
	}

	embedder, err := createEmbedding(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.EmbeddingService = embedder

	llm, err := createLLM(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	if llm != nil {
		result.LLMService = resilient.Wrap(llm, resilient.Config{
			Provider:          settings.LLM.Provider.String(),
			RequestsPerMinute: settings.Synthesis.RequestsPerMinute,
		})
	}
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates an embedding service and pings it.
// Unconfigured settings are valid.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates an LLM service and pings it.
// Unconfigured settings are valid.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		dimensions := domain.EmbeddingDimensions()[settings.Model]
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic, domain.AIProviderGemini:
		return nil, fmt.Errorf("%s does not support embeddings, use ollama or openai", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderGemini:
		svc, err := geminillm.NewLLMService(context.Background(), geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
