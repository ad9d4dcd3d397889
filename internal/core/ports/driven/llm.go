package driven

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// LLMService generates text from a prompt.
// Remote failures are *domain.BackendError values so callers can tell
// transient failures from fatal ones.
//
// Implementations may include:
//   - OpenAI (GPT-4o)
//   - Anthropic (Claude)
//   - Google Gemini
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a completion for the request.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateRequest configures a single generation call.
type GenerateRequest struct {
	// System is the system prompt. May be empty.
	System string

	// Prompt is the user prompt.
	Prompt string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON asks the backend to return a single JSON object.
	JSON bool
}

// GenerateResponse is the result of a generation call.
type GenerateResponse struct {
	// Content is the generated text.
	Content string

	// Usage is the token accounting reported by the backend.
	Usage domain.TokenUsage

	// Model is the model that served the request.
	Model string
}
