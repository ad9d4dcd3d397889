package services

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// Ensure Synthesizer accepts a prompt store.
var _ driven.PromptStoreAware = (*Synthesizer)(nil)

// DefaultSystemPrompt is the built-in position_system prompt.
const DefaultSystemPrompt = "Eres un analista político experto en Costa Rica. Respondes únicamente con JSON válido."

// DefaultSynthesisPrompt is the built-in position_synthesis template.
// It receives .Party, .Category, .PromptContext and .Context.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const DefaultSynthesisPrompt = `Analiza la siguiente información sobre {{.Category}} de la plataforma electoral de {{.Party}}.
{{if .PromptContext}}
Enfoque del análisis: {{.PromptContext}}
{{end}}
{{.Context}}

Genera un análisis estructurado en formato JSON con los siguientes campos:

1. "summary": Un resumen general (2-3 párrafos) de la posición del partido en este tema
2. "key_proposals": Un array de 3-5 propuestas clave específicas (strings)
3. "ideology_position": La posición ideológica general (progresista/conservadora/centrista/etc.) si es evidente, o null si no está claro
4. "budget_mentioned": Cualquier mención de presupuesto o recursos financieros, o null si no se menciona
5. "confidence_score": Un número entre 0 y 1 que indique qué tan completa es la evidencia, o null

IMPORTANTE:
- Sé preciso y cita propuestas específicas con el formato [Página X]
- Cada propuesta en key_proposals debe terminar con su cita [Página X]
- Solo cita páginas que aparecen en el contexto
- No inventes información que no esté en el contexto
- Si el contexto no trata el tema, devuelve key_proposals como un array vacío
- Si no hay información suficiente sobre un campo, usa null
- key_proposals debe ser un array de strings, no objetos
- Responde SOLO con el JSON, sin markdown ni texto adicional`

// DefaultPrompts returns the built-in prompts keyed by prompt name.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptPositionSystem:    DefaultSystemPrompt,
		driven.PromptPositionSynthesis: DefaultSynthesisPrompt,
	}
}

// SynthesizerConfig holds generation and retry parameters.
type SynthesizerConfig struct {
	Temperature    float64
	MaxTokens      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// SynthesizerConfigFrom builds a config from application settings.
func SynthesizerConfigFrom(s domain.SynthesisSettings) SynthesizerConfig {
	return SynthesizerConfig{
		Temperature:    s.Temperature,
		MaxTokens:      s.MaxTokens,
		MaxAttempts:    s.MaxAttempts,
		InitialBackoff: s.InitialBackoff,
		MaxBackoff:     s.MaxBackoff,
	}
}

// Synthesizer turns retrieved chunks into a cited position summary.
type Synthesizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	pricing domain.Pricing
	cfg     SynthesizerConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewSynthesizer creates a new synthesizer. The LLM may be nil, in which
// case Synthesize returns domain.ErrLLMUnavailable.
func NewSynthesizer(llm driven.LLMService, pricing domain.Pricing, cfg SynthesizerConfig) *Synthesizer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Synthesizer{
		llm:     llm,
		pricing: pricing,
		cfg:     cfg,
		sleep:   sleepContext,
	}
}

// SetPromptStore sets the prompt store for user-editable templates.
func (s *Synthesizer) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Synthesize generates a position for one party and category.
//
// A response that fails to parse or lacks citations returns both the error
// and a Synthesis carrying the usage and raw response, so callers can still
// account for its cost.
func (s *Synthesizer) Synthesize(ctx context.Context, req domain.SynthesisRequest) (*domain.Synthesis, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if len(req.Chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to synthesize", domain.ErrInvalidInput)
	}

	prompt, err := s.buildPrompt(req)
	if err != nil {
		return nil, err
	}

	genReq := driven.GenerateRequest{
		System:      s.loadPrompt(driven.PromptPositionSystem, DefaultSystemPrompt),
		Prompt:      prompt,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		JSON:        true,
	}

	resp, attempts, err := s.generate(ctx, genReq)
	if err != nil {
		return nil, fmt.Errorf("generate after %d attempts: %w", attempts, err)
	}

	// Backends echo resolved snapshot names; rates follow the configured model.
	priced := s.llm.ModelName()
	model := resp.Model
	if model == "" {
		model = priced
	}
	if priced == "" {
		priced = model
	}
	out := &domain.Synthesis{
		Usage:         resp.Usage,
		CostUSD:       s.pricing.Cost(priced, resp.Usage),
		Model:         model,
		RawResponse:   resp.Content,
		Attempts:      attempts,
		ChunksUsed:    len(req.Chunks),
		AvgSimilarity: domain.AverageSimilarity(req.Chunks),
	}

	result, err := domain.ParseSynthesisResult(resp.Content)
	if err != nil {
		return out, err
	}
	if err := result.CheckCitations(domain.Pages(req.Chunks)); err != nil {
		return out, err
	}
	out.Result = result
	return out, nil
}

// generate calls the LLM, retrying transient failures with capped
// exponential backoff.
func (s *Synthesizer) generate(
	ctx context.Context,
	req driven.GenerateRequest,
) (*driven.GenerateResponse, int, error) {
	backoff := s.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		resp, err := s.llm.Generate(ctx, req)
		if err == nil {
			return resp, attempt, nil
		}
		lastErr = err
		if !domain.IsTransient(err) || attempt == s.cfg.MaxAttempts {
			return nil, attempt, err
		}

		logger.Warn("Generation attempt %d failed, retrying in %s: %v", attempt, backoff, err)
		if err := s.sleep(ctx, backoff); err != nil {
			return nil, attempt, err
		}
		backoff *= 2
		if s.cfg.MaxBackoff > 0 && backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
	return nil, s.cfg.MaxAttempts, lastErr
}

// buildPrompt renders the synthesis template with the chunk context.
func (s *Synthesizer) buildPrompt(req domain.SynthesisRequest) (string, error) {
	var ctxText strings.Builder
	fmt.Fprintf(&ctxText, "Información relevante sobre %s de la plataforma de %s:\n\n", req.Category.Name, req.Party.Name)
	for _, c := range req.Chunks {
		fmt.Fprintf(&ctxText, "[Página %d, relevancia: %.2f]\n%s\n\n", c.PageNumber, c.Similarity, c.Text)
	}

	raw := s.loadPrompt(driven.PromptPositionSynthesis, DefaultSynthesisPrompt)
	tmpl, err := template.New(driven.PromptPositionSynthesis).Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	data := struct {
		Party         string
		Category      string
		PromptContext string
		Context       string
	}{
		Party:         req.Party.Name,
		Category:      req.Category.Name,
		PromptContext: req.Category.PromptContext,
		Context:       strings.TrimRight(ctxText.String(), "\n"),
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}
	return b.String(), nil
}

// loadPrompt loads a prompt from the store, falling back to the default.
func (s *Synthesizer) loadPrompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	prompt, err := s.prompts.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return fallback
	}
	return prompt
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
