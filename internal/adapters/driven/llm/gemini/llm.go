// Package gemini provides an LLM service adapter using the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-pro"

const provider = "gemini"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the model to use (default: gemini-1.5-pro).
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string
}

// contentGenerator is the part of *genai.GenerativeModel Generate needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// LLMService provides LLM operations using Gemini.
type LLMService struct {
	client   *genai.Client
	model    string
	newModel func(r driven.GenerateRequest) contentGenerator
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	s := &LLMService{client: client, model: cfg.Model}
	s.newModel = s.configure
	return s, nil
}

func (s *LLMService) configure(r driven.GenerateRequest) contentGenerator {
	m := s.client.GenerativeModel(s.model)
	m.SetTemperature(float32(r.Temperature))
	if r.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(r.MaxTokens))
	}
	if r.System != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(r.System))
	}
	if r.JSON {
		m.ResponseMIMEType = "application/json"
	}
	return m
}

// Generate runs one GenerateContent call.
func (s *LLMService) Generate(ctx context.Context, r driven.GenerateRequest) (*driven.GenerateResponse, error) {
	resp, err := s.newModel(r).GenerateContent(ctx, genai.Text(r.Prompt))
	if err != nil {
		return nil, classify(err)
	}
	return toResponse(resp, s.model)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists one model to check the key and endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.client.ListModels(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return classify(err)
	}
	return nil
}

// Close releases the underlying client.
func (s *LLMService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// classify turns Google API errors into backend errors.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return domain.NewBackendError(provider, apiErr.Code, msg)
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return domain.NewBackendError(provider, 0, blocked.Error())
	}
	return domain.NewNetworkError(provider, err)
}

func toResponse(resp *genai.GenerateContentResponse, model string) (*driven.GenerateResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, domain.NewBackendError(provider, 0, "no response candidates returned")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := &driven.GenerateResponse{Content: text.String(), Model: model}
	if resp.UsageMetadata != nil {
		out.Usage = domain.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}
