// Package resilient wraps an LLM service with a request rate limit,
// a circuit breaker and tracing spans.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Breaker defaults.
const (
	DefaultMinRequests  = 3
	DefaultFailureRatio = 0.6
	DefaultOpenTimeout  = 60 * time.Second
	DefaultInterval     = 10 * time.Second
)

// Config configures the wrapper.
type Config struct {
	// Provider names the wrapped backend in errors and spans.
	Provider string

	// RequestsPerMinute caps call rate. Zero disables the limiter.
	RequestsPerMinute int

	// MinRequests is how many calls the breaker sees before it may trip.
	MinRequests uint32

	// FailureRatio of transient failures that opens the breaker.
	FailureRatio float64

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// LLMService decorates another LLMService.
type LLMService struct {
	next     driven.LLMService
	provider string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	tracer   trace.Tracer
}

// Wrap returns next guarded by the configured limiter and breaker.
func Wrap(next driven.LLMService, cfg Config) *LLMService {
	if cfg.MinRequests == 0 {
		cfg.MinRequests = DefaultMinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = DefaultFailureRatio
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.Provider == "" {
		cfg.Provider = "llm"
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	s := &LLMService{
		next:     next,
		provider: cfg.Provider,
		tracer:   tp.Tracer("github.com/custodia-labs/plataformas/llm"),
	}

	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	minRequests, ratio := cfg.MinRequests, cfg.FailureRatio
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Provider,
		MaxRequests: 1,
		Interval:    DefaultInterval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
		// Only transient failures count against the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return s
}

// Generate waits for the limiter, then calls the wrapped service through the breaker.
func (s *LLMService) Generate(ctx context.Context, r driven.GenerateRequest) (*driven.GenerateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", s.provider),
		attribute.String("llm.model", s.next.ModelName()),
		attribute.Int("llm.prompt_chars", len(r.Prompt)),
		attribute.Bool("llm.json", r.JSON),
	)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			span.SetAttributes(attribute.Bool("llm.rate_limited", true))
			return nil, s.fail(span, fmt.Errorf("waiting for rate limiter: %w", err))
		}
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.next.Generate(ctx, r)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("llm.circuit_open", true))
			err = &domain.BackendError{
				Provider:  s.provider,
				Message:   "circuit breaker open",
				Transient: true,
				Err:       err,
			}
		}
		return nil, s.fail(span, err)
	}

	resp := result.(*driven.GenerateResponse)
	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
		attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
	)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// State reports the breaker state.
func (s *LLMService) State() gobreaker.State {
	return s.breaker.State()
}

// ModelName returns the wrapped model name.
func (s *LLMService) ModelName() string {
	return s.next.ModelName()
}

// Ping bypasses the limiter and breaker.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *LLMService) Close() error {
	return s.next.Close()
}

func (s *LLMService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
