package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

const validSynthesis = `{
  "summary": "El partido propone fortalecer la CCSS [Página 3].",
  "key_proposals": ["Construir hospitales regionales [Página 3]", "Reducir listas de espera [Página 7]"],
  "ideology_position": "progresista",
  "budget_mentioned": null,
  "confidence_score": 0.8
}`

func synthesisRequest() domain.SynthesisRequest {
	return domain.SynthesisRequest{
		Party: domain.Party{Name: "Frente Amplio", Abbreviation: "FA"},
		Category: domain.Category{
			Key:           "salud",
			Name:          "Salud",
			PromptContext: "Atención primaria y CCSS",
		},
		Chunks: []domain.RetrievedChunk{
			{PageNumber: 3, Text: "Hospitales regionales en cada provincia.", Similarity: 0.9},
			{PageNumber: 7, Text: "Reducir las listas de espera.", Similarity: 0.7},
		},
	}
}

func newTestSynthesizer(llm driven.LLMService) (*Synthesizer, *noSleep) {
	s := NewSynthesizer(llm, domain.DefaultPricing(), SynthesizerConfig{
		Temperature:    0.3,
		MaxTokens:      2000,
		MaxAttempts:    3,
		InitialBackoff: 4 * time.Second,
		MaxBackoff:     10 * time.Second,
	})
	ns := &noSleep{}
	s.sleep = ns.sleep
	return s, ns
}

func unavailable() error {
	return domain.NewBackendError("openai", 503, "overloaded")
}

func TestSynthesizer_Synthesize_Success(t *testing.T) {
	llm := &mockLLM{
		responses: []string{validSynthesis},
		usage:     domain.TokenUsage{InputTokens: 1000, OutputTokens: 200},
	}
	s, ns := newTestSynthesizer(llm)

	out, err := s.Synthesize(context.Background(), synthesisRequest())

	require.NoError(t, err)
	assert.Equal(t, "El partido propone fortalecer la CCSS [Página 3].", out.Result.Summary)
	assert.Len(t, out.Result.KeyProposals, 2)
	assert.Equal(t, "progresista", out.Result.IdeologyPosition)
	assert.Empty(t, out.Result.BudgetMentioned)
	require.NotNil(t, out.Result.ConfidenceScore)
	assert.InDelta(t, 0.8, *out.Result.ConfidenceScore, 1e-9)

	assert.Equal(t, "gpt-4o", out.Model)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 2, out.ChunksUsed)
	assert.InDelta(t, 0.8, out.AvgSimilarity, 1e-9)
	assert.InDelta(t, 0.008, out.CostUSD, 1e-12)
	assert.Equal(t, 1200, out.Usage.Total())
	assert.Empty(t, ns.waits)
}

func TestSynthesizer_Synthesize_PricesConfiguredModel(t *testing.T) {
	llm := &mockLLM{
		responses: []string{validSynthesis},
		usage:     domain.TokenUsage{InputTokens: 100_000, OutputTokens: 10_000},
		echoModel: "gpt-4o-2024-08-06",
	}
	s := NewSynthesizer(llm, domain.Pricing{
		"gpt-4o": {InputPerMillion: 2.5, OutputPerMillion: 40},
	}, SynthesizerConfig{MaxAttempts: 1})

	out, err := s.Synthesize(context.Background(), synthesisRequest())

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-2024-08-06", out.Model)
	assert.InDelta(t, 0.65, out.CostUSD, 1e-9)
}

func TestSynthesizer_Synthesize_RequestShape(t *testing.T) {
	llm := &mockLLM{responses: []string{validSynthesis}}
	s, _ := newTestSynthesizer(llm)

	_, err := s.Synthesize(context.Background(), synthesisRequest())
	require.NoError(t, err)

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	assert.Equal(t, DefaultSystemPrompt, req.System)
	assert.True(t, req.JSON)
	assert.Equal(t, 2000, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)

	assert.Contains(t, req.Prompt, "Salud de la plataforma electoral de Frente Amplio")
	assert.Contains(t, req.Prompt, "Enfoque del análisis: Atención primaria y CCSS")
	assert.Contains(t, req.Prompt, "Información relevante sobre Salud de la plataforma de Frente Amplio:")

	// Chunks appear labelled and in retriever order
	first := strings.Index(req.Prompt, "[Página 3, relevancia: 0.90]\nHospitales regionales en cada provincia.")
	second := strings.Index(req.Prompt, "[Página 7, relevancia: 0.70]\nReducir las listas de espera.")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
}

func TestSynthesizer_Synthesize_NoPromptContext(t *testing.T) {
	llm := &mockLLM{responses: []string{validSynthesis}}
	s, _ := newTestSynthesizer(llm)
	req := synthesisRequest()
	req.Category.PromptContext = ""

	_, err := s.Synthesize(context.Background(), req)

	require.NoError(t, err)
	assert.NotContains(t, llm.requests[0].Prompt, "Enfoque del análisis")
}

func TestSynthesizer_Synthesize_RetriesTransientErrors(t *testing.T) {
	llm := &mockLLM{
		responses: []string{validSynthesis},
		errs:      []error{unavailable(), unavailable()},
	}
	s, ns := newTestSynthesizer(llm)

	out, err := s.Synthesize(context.Background(), synthesisRequest())

	require.NoError(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second}, ns.waits)
}

func TestSynthesizer_Synthesize_BackoffIsCapped(t *testing.T) {
	llm := &mockLLM{
		responses: []string{validSynthesis},
		errs:      []error{unavailable(), unavailable(), unavailable()},
	}
	s, ns := newTestSynthesizer(llm)
	s.cfg.MaxAttempts = 4

	out, err := s.Synthesize(context.Background(), synthesisRequest())

	require.NoError(t, err)
	assert.Equal(t, 4, out.Attempts)
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second}, ns.waits)
}

func TestSynthesizer_Synthesize_RetriesExhausted(t *testing.T) {
	rateLimited := domain.NewBackendError("openai", 429, "slow down")
	llm := &mockLLM{errs: []error{rateLimited, rateLimited, rateLimited}}
	s, ns := newTestSynthesizer(llm)

	out, err := s.Synthesize(context.Background(), synthesisRequest())

	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, llm.Calls())
	assert.Len(t, ns.waits, 2)
}

func TestSynthesizer_Synthesize_FatalErrorNotRetried(t *testing.T) {
	llm := &mockLLM{errs: []error{domain.NewBackendError("openai", 401, "bad key")}}
	s, ns := newTestSynthesizer(llm)

	_, err := s.Synthesize(context.Background(), synthesisRequest())

	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
	assert.Equal(t, 1, llm.Calls())
	assert.Empty(t, ns.waits)
}

func TestSynthesizer_Synthesize_CancelledDuringBackoff(t *testing.T) {
	llm := &mockLLM{errs: []error{unavailable(), unavailable()}}
	s, _ := newTestSynthesizer(llm)
	s.cfg.InitialBackoff = time.Hour
	s.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Synthesize(ctx, synthesisRequest())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, llm.Calls())
}

func TestSynthesizer_Synthesize_MalformedResponseKeepsUsage(t *testing.T) {
	llm := &mockLLM{
		responses: []string{"Lo siento, no puedo ayudar con eso."},
		usage:     domain.TokenUsage{InputTokens: 1000, OutputTokens: 200},
	}
	s, _ := newTestSynthesizer(llm)

	out, err := s.Synthesize(context.Background(), synthesisRequest())

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	require.NotNil(t, out)
	assert.InDelta(t, 0.008, out.CostUSD, 1e-12)
	assert.Equal(t, "Lo siento, no puedo ayudar con eso.", out.RawResponse)
}

func TestSynthesizer_Synthesize_CodeFencedResponse(t *testing.T) {
	llm := &mockLLM{responses: []string{"```json\n" + validSynthesis + "\n```"}}
	s, _ := newTestSynthesizer(llm)

	out, err := s.Synthesize(context.Background(), synthesisRequest())

	require.NoError(t, err)
	assert.Len(t, out.Result.KeyProposals, 2)
}

func TestSynthesizer_Synthesize_Citations(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  error
	}{
		{
			name:     "proposal without citation",
			response: `{"summary": "Resumen [Página 3].", "key_proposals": ["Construir hospitales"]}`,
			wantErr:  domain.ErrMissingCitation,
		},
		{
			name:     "citation outside retrieved pages",
			response: `{"summary": "Resumen [Página 3].", "key_proposals": ["Construir hospitales [Página 12]"]}`,
			wantErr:  domain.ErrMissingCitation,
		},
		{
			name:     "summary without citation",
			response: `{"summary": "Resumen.", "key_proposals": ["Construir hospitales [Página 3]"]}`,
			wantErr:  domain.ErrMissingCitation,
		},
		{
			name:     "no proposals needs no citation",
			response: `{"summary": "La plataforma no aborda el tema.", "key_proposals": []}`,
		},
		{
			name:     "page list citation",
			response: `{"summary": "Resumen [Páginas 3, 7].", "key_proposals": ["Hospitales [Página 3]"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSynthesizer(&mockLLM{responses: []string{tt.response}})

			out, err := s.Synthesize(context.Background(), synthesisRequest())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				require.NotNil(t, out)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, out.Result.Summary)
		})
	}
}

func TestSynthesizer_Synthesize_NoChunks(t *testing.T) {
	llm := &mockLLM{responses: []string{validSynthesis}}
	s, _ := newTestSynthesizer(llm)
	req := synthesisRequest()
	req.Chunks = nil

	_, err := s.Synthesize(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, llm.Calls())
}

func TestSynthesizer_Synthesize_NoLLM(t *testing.T) {
	s := NewSynthesizer(nil, domain.DefaultPricing(), SynthesizerConfig{})

	_, err := s.Synthesize(context.Background(), synthesisRequest())

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestSynthesizer_NewSynthesizer_AtLeastOneAttempt(t *testing.T) {
	s := NewSynthesizer(&mockLLM{}, domain.DefaultPricing(), SynthesizerConfig{MaxAttempts: 0})
	assert.Equal(t, 1, s.cfg.MaxAttempts)
}

func TestSynthesizer_PromptStoreOverrides(t *testing.T) {
	llm := &mockLLM{responses: []string{validSynthesis}}
	s, _ := newTestSynthesizer(llm)
	s.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptPositionSystem:    "Sistema personalizado",
		driven.PromptPositionSynthesis: "Partido={{.Party}} Tema={{.Category}}\n{{.Context}}",
	}})

	_, err := s.Synthesize(context.Background(), synthesisRequest())

	require.NoError(t, err)
	req := llm.requests[0]
	assert.Equal(t, "Sistema personalizado", req.System)
	assert.True(t, strings.HasPrefix(req.Prompt, "Partido=Frente Amplio Tema=Salud\n"))
}

func TestSynthesizer_PromptStoreFallsBack(t *testing.T) {
	llm := &mockLLM{responses: []string{validSynthesis}}
	s, _ := newTestSynthesizer(llm)
	s.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptPositionSystem: "   ",
	}})

	_, err := s.Synthesize(context.Background(), synthesisRequest())

	require.NoError(t, err)
	assert.Equal(t, DefaultSystemPrompt, llm.requests[0].System)
	assert.Contains(t, llm.requests[0].Prompt, "Genera un análisis estructurado")
}

func TestSynthesizer_BadTemplate(t *testing.T) {
	llm := &mockLLM{responses: []string{validSynthesis}}
	s, _ := newTestSynthesizer(llm)
	s.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptPositionSynthesis: "{{.Party",
	}})

	_, err := s.Synthesize(context.Background(), synthesisRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse prompt template")
	assert.Zero(t, llm.Calls())
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(sleepContext(ctx, time.Hour), context.Canceled))
}
