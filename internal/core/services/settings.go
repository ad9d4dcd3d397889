package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyChunkTarget    = "chunker.target_size"
	keyChunkOverlap   = "chunker.overlap"
	keyTopK           = "retrieval.top_k"
	keyTemperature    = "synthesis.temperature"
	keyMaxTokens      = "synthesis.max_tokens"
	keyMaxAttempts    = "synthesis.max_attempts"
	keyInitialBackoff = "synthesis.initial_backoff"
	keyMaxBackoff     = "synthesis.max_backoff"
	keyRequestsPerMin = "synthesis.requests_per_minute"
	keyWorkers        = "pipeline.workers"
	keyKeepHistory    = "pipeline.keep_history"
	keyVectorBackend  = "vector.backend"
	keyPostgresURL    = "vector.postgres_url"
	keyRedisURL       = "cache.redis_url"
	keyCacheTTL       = "cache.ttl"
	keyOTLPEndpoint   = "telemetry.otlp_endpoint"
	keySampleRatio    = "telemetry.sample_ratio"
	keyPriceEmbedding = "pricing.embedding_per_million"
	keyPriceLLMInput  = "pricing.llm_input_per_million"
	keyPriceLLMOutput = "pricing.llm_output_per_million"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

// settingKinds lists every key Set accepts and how its value is parsed.
var settingKinds = map[string]settingKind{
	keyEmbedProvider:  kindString,
	keyEmbedModel:     kindString,
	keyEmbedBaseURL:   kindString,
	keyEmbedAPIKey:    kindString,
	keyLLMProvider:    kindString,
	keyLLMModel:       kindString,
	keyLLMBaseURL:     kindString,
	keyLLMAPIKey:      kindString,
	keyChunkTarget:    kindInt,
	keyChunkOverlap:   kindInt,
	keyTopK:           kindInt,
	keyTemperature:    kindFloat,
	keyMaxTokens:      kindInt,
	keyMaxAttempts:    kindInt,
	keyInitialBackoff: kindDuration,
	keyMaxBackoff:     kindDuration,
	keyRequestsPerMin: kindInt,
	keyWorkers:        kindInt,
	keyKeepHistory:    kindBool,
	keyVectorBackend:  kindString,
	keyPostgresURL:    kindString,
	keyRedisURL:       kindString,
	keyCacheTTL:       kindDuration,
	keyOTLPEndpoint:   kindString,
	keySampleRatio:    kindFloat,
	keyPriceEmbedding: kindFloat,
	keyPriceLLMInput:  kindFloat,
	keyPriceLLMOutput: kindFloat,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings, filling unset keys with
// defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Chunker: domain.ChunkerSettings{
			TargetSize: s.getInt(keyChunkTarget, d.Chunker.TargetSize),
			Overlap:    s.getInt(keyChunkOverlap, d.Chunker.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyTopK, d.Retrieval.TopK),
		},
		Synthesis: domain.SynthesisSettings{
			Temperature:       s.getFloat(keyTemperature, d.Synthesis.Temperature),
			MaxTokens:         s.getInt(keyMaxTokens, d.Synthesis.MaxTokens),
			MaxAttempts:       s.getInt(keyMaxAttempts, d.Synthesis.MaxAttempts),
			InitialBackoff:    s.getDuration(keyInitialBackoff, d.Synthesis.InitialBackoff),
			MaxBackoff:        s.getDuration(keyMaxBackoff, d.Synthesis.MaxBackoff),
			RequestsPerMinute: s.getInt(keyRequestsPerMin, d.Synthesis.RequestsPerMinute),
		},
		Pipeline: domain.PipelineSettings{
			Workers:     s.getInt(keyWorkers, d.Pipeline.Workers),
			KeepHistory: s.getBool(keyKeepHistory, d.Pipeline.KeepHistory),
		},
		Vector: domain.VectorSettings{
			Backend:     s.getBackend(d.Vector.Backend),
			PostgresURL: s.configStore.GetString(keyPostgresURL),
		},
		Cache: domain.CacheSettings{
			RedisURL: s.configStore.GetString(keyRedisURL),
			TTL:      s.getDuration(keyCacheTTL, d.Cache.TTL),
		},
		Telemetry: domain.TelemetrySettings{
			OTLPEndpoint: s.configStore.GetString(keyOTLPEndpoint),
			SampleRatio:  s.getFloat(keySampleRatio, d.Telemetry.SampleRatio),
		},
	}
	settings.Pricing = domain.DefaultPricing().Merge(s.pricingOverrides(settings))

	return settings, nil
}

// pricingOverrides builds rate overrides for the configured models.
func (s *SettingsService) pricingOverrides(settings *domain.AppSettings) domain.Pricing {
	overrides := domain.Pricing{}
	base := domain.DefaultPricing()

	if _, ok := s.configStore.Get(keyPriceEmbedding); ok {
		overrides[settings.Embedding.Model] = domain.ModelPricing{
			InputPerMillion: s.configStore.GetFloat(keyPriceEmbedding),
		}
	}

	_, hasIn := s.configStore.Get(keyPriceLLMInput)
	_, hasOut := s.configStore.Get(keyPriceLLMOutput)
	if hasIn || hasOut {
		p := base.For(settings.LLM.Model)
		if hasIn {
			p.InputPerMillion = s.configStore.GetFloat(keyPriceLLMInput)
		}
		if hasOut {
			p.OutputPerMillion = s.configStore.GetFloat(keyPriceLLMOutput)
		}
		overrides[settings.LLM.Model] = p
	}
	return overrides
}

// Save validates and persists application settings.
// Pricing overrides are managed through Set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyChunkTarget, settings.Chunker.TargetSize},
		{keyChunkOverlap, settings.Chunker.Overlap},
		{keyTopK, settings.Retrieval.TopK},
		{keyTemperature, settings.Synthesis.Temperature},
		{keyMaxTokens, settings.Synthesis.MaxTokens},
		{keyMaxAttempts, settings.Synthesis.MaxAttempts},
		{keyInitialBackoff, settings.Synthesis.InitialBackoff.String()},
		{keyMaxBackoff, settings.Synthesis.MaxBackoff.String()},
		{keyRequestsPerMin, settings.Synthesis.RequestsPerMinute},
		{keyWorkers, settings.Pipeline.Workers},
		{keyKeepHistory, settings.Pipeline.KeepHistory},
		{keyVectorBackend, settings.Vector.Backend.String()},
		{keyPostgresURL, settings.Vector.PostgresURL},
		{keyRedisURL, settings.Cache.RedisURL},
		{keyCacheTTL, settings.Cache.TTL.String()},
		{keyOTLPEndpoint, settings.Telemetry.OTLPEndpoint},
		{keySampleRatio, settings.Telemetry.SampleRatio},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when present so an env-supplied key is
	// never persisted as empty.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return s.configStore.Save()
}

// Set parses and stores a single key. The resulting settings must validate.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value = strings.TrimSpace(value)
	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	switch key {
	case keyEmbedProvider, keyLLMProvider:
		if p := domain.AIProvider(value); !p.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
	case keyVectorBackend:
		if b := domain.VectorBackend(value); !b.IsValid() {
			return fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, value)
		}
	}

	// Validate against the would-be settings before storing anything.
	candidate := &SettingsService{configStore: pendingStore{ConfigStore: s.configStore, key: key, val: parsed}}
	settings, err := candidate.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return s.configStore.Save()
}

// Keys returns every settable key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	d := domain.DefaultAppSettings()
	d.Pricing = domain.DefaultPricing()
	return d
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func parseSetting(kind settingKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	default:
		return value, nil
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(keyVectorBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// pendingStore overlays one unsaved value on a ConfigStore.
type pendingStore struct {
	driven.ConfigStore
	key string
	val any
}

func (p pendingStore) Get(key string) (any, bool) {
	if key == p.key {
		return p.val, true
	}
	return p.ConfigStore.Get(key)
}

func (p pendingStore) GetString(key string) string {
	if key == p.key {
		v, _ := p.val.(string)
		return v
	}
	return p.ConfigStore.GetString(key)
}

func (p pendingStore) GetInt(key string) int {
	if key == p.key {
		v, _ := p.val.(int)
		return v
	}
	return p.ConfigStore.GetInt(key)
}

func (p pendingStore) GetFloat(key string) float64 {
	if key == p.key {
		v, _ := p.val.(float64)
		return v
	}
	return p.ConfigStore.GetFloat(key)
}

func (p pendingStore) GetBool(key string) bool {
	if key == p.key {
		v, _ := p.val.(bool)
		return v
	}
	return p.ConfigStore.GetBool(key)
}
