package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic/Gemini).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkerSettings controls page splitting.
type ChunkerSettings struct {
	// TargetSize is the window size in characters.
	TargetSize int

	// Overlap is shared between neighbouring chunks (100..200).
	Overlap int
}

// RetrievalSettings controls semantic search.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per category.
	TopK int
}

// SynthesisSettings controls position generation.
type SynthesisSettings struct {
	Temperature       float64
	MaxTokens         int
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RequestsPerMinute int
}

// PipelineSettings controls orchestration.
type PipelineSettings struct {
	// Workers is the number of documents processed concurrently.
	Workers int

	// KeepHistory copies replaced positions into the history table.
	KeepHistory bool
}

// VectorBackend selects where embeddings are stored and searched.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite stores float32 blobs next to the corpus and scans them.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendPgvector stores vectors in PostgreSQL with the pgvector extension.
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendSQLite || b == VectorBackendPgvector
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendSQLite:
		return "SQLite (embedded, exact scan)"
	case VectorBackendPgvector:
		return "PostgreSQL + pgvector"
	default:
		return unknownDescription
	}
}

// VectorSettings holds vector backend configuration.
type VectorSettings struct {
	Backend     VectorBackend
	PostgresURL string
}

// CacheSettings holds the query-embedding cache configuration.
// An empty RedisURL disables the cache.
type CacheSettings struct {
	RedisURL string
	TTL      time.Duration
}

// TelemetrySettings holds OpenTelemetry configuration.
// An empty OTLPEndpoint disables tracing export.
type TelemetrySettings struct {
	OTLPEndpoint string
	SampleRatio  float64
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	Chunker   ChunkerSettings
	Retrieval RetrievalSettings
	Synthesis SynthesisSettings
	Pipeline  PipelineSettings
	Vector    VectorSettings
	Cache     CacheSettings
	Telemetry TelemetrySettings

	// Pricing holds per-model rate overrides merged over DefaultPricing.
	Pricing Pricing
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty; they come from the config file or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o",
		},
		Chunker: ChunkerSettings{
			TargetSize: 1500,
			Overlap:    100,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
		Synthesis: SynthesisSettings{
			Temperature:       0.3,
			MaxTokens:         2000,
			MaxAttempts:       3,
			InitialBackoff:    4 * time.Second,
			MaxBackoff:        10 * time.Second,
			RequestsPerMinute: 60,
		},
		Pipeline: PipelineSettings{
			Workers: 1,
		},
		Vector: VectorSettings{
			Backend: VectorBackendSQLite,
		},
		Cache: CacheSettings{
			TTL: 24 * time.Hour,
		},
		Telemetry: TelemetrySettings{
			SampleRatio: 1.0,
		},
	}
}

// Validate rejects out-of-range values.
func (s AppSettings) Validate() error {
	switch {
	case s.Chunker.TargetSize < 500:
		return fmt.Errorf("%w: chunker.target_size must be at least 500", ErrInvalidInput)
	case s.Chunker.Overlap < 100 || s.Chunker.Overlap > 200:
		return fmt.Errorf("%w: chunker.overlap must be between 100 and 200", ErrInvalidInput)
	case s.Retrieval.TopK < 1:
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalidInput)
	case s.Synthesis.Temperature < 0 || s.Synthesis.Temperature > 2:
		return fmt.Errorf("%w: synthesis.temperature must be between 0 and 2", ErrInvalidInput)
	case s.Synthesis.MaxTokens < 1:
		return fmt.Errorf("%w: synthesis.max_tokens must be positive", ErrInvalidInput)
	case s.Synthesis.MaxAttempts < 1:
		return fmt.Errorf("%w: synthesis.max_attempts must be positive", ErrInvalidInput)
	case s.Synthesis.InitialBackoff < 0 || s.Synthesis.MaxBackoff < s.Synthesis.InitialBackoff:
		return fmt.Errorf("%w: synthesis backoff must satisfy 0 <= initial <= max", ErrInvalidInput)
	case s.Synthesis.RequestsPerMinute < 0:
		return fmt.Errorf("%w: synthesis.requests_per_minute must not be negative", ErrInvalidInput)
	case s.Pipeline.Workers < 1:
		return fmt.Errorf("%w: pipeline.workers must be positive", ErrInvalidInput)
	case !s.Vector.Backend.IsValid():
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidInput, s.Vector.Backend)
	case s.Vector.Backend == VectorBackendPgvector && s.Vector.PostgresURL == "":
		return fmt.Errorf("%w: vector.postgres_url is required for pgvector", ErrInvalidInput)
	case s.Telemetry.SampleRatio < 0 || s.Telemetry.SampleRatio > 1:
		return fmt.Errorf("%w: telemetry.sample_ratio must be between 0 and 1", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o",
		AIProviderAnthropic: "claude-sonnet-4-20250514",
		AIProviderGemini:    "gemini-1.5-pro",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
