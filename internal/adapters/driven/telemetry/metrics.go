package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.PipelineMetrics = (*Metrics)(nil)

// MeterName scopes every instrument.
const MeterName = "github.com/custodia-labs/plataformas"

// Metrics holds the pipeline instruments.
type Metrics struct {
	chunks           metric.Int64Counter
	embeddingTokens  metric.Int64Counter
	categoryOutcomes metric.Int64Counter
	llmTokens        metric.Int64Counter
	cost             metric.Float64Counter
	categoryDuration metric.Float64Histogram
	documentDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(MeterName))
}

// NewMetricsWithMeter creates the instruments on meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.chunks, err = meter.Int64Counter("plataformas.index.chunks",
		metric.WithDescription("Chunks embedded or failed while indexing")); err != nil {
		return nil, err
	}
	if m.embeddingTokens, err = meter.Int64Counter("plataformas.embedding.tokens",
		metric.WithDescription("Tokens sent to the embedding backend")); err != nil {
		return nil, err
	}
	if m.categoryOutcomes, err = meter.Int64Counter("plataformas.category.outcomes",
		metric.WithDescription("Category results by outcome")); err != nil {
		return nil, err
	}
	if m.llmTokens, err = meter.Int64Counter("plataformas.llm.tokens",
		metric.WithDescription("Generation tokens by direction")); err != nil {
		return nil, err
	}
	if m.cost, err = meter.Float64Counter("plataformas.cost",
		metric.WithDescription("Estimated spend"),
		metric.WithUnit("USD")); err != nil {
		return nil, err
	}
	if m.categoryDuration, err = meter.Float64Histogram("plataformas.category.duration",
		metric.WithDescription("Time spent on one document category"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.documentDuration, err = meter.Float64Histogram("plataformas.document.duration",
		metric.WithDescription("Time spent on one document"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordIndex records one document's indexing pass.
func (m *Metrics) RecordIndex(ctx context.Context, r domain.IndexReport) {
	if r.ChunksEmbedded > 0 {
		m.chunks.Add(ctx, int64(r.ChunksEmbedded), metric.WithAttributes(attribute.String("status", "embedded")))
	}
	if r.ChunksFailed > 0 {
		m.chunks.Add(ctx, int64(r.ChunksFailed), metric.WithAttributes(attribute.String("status", "failed")))
	}
	if r.Tokens > 0 {
		m.embeddingTokens.Add(ctx, int64(r.Tokens))
	}
	if r.CostUSD > 0 {
		m.cost.Add(ctx, r.CostUSD, metric.WithAttributes(attribute.String("stage", "index")))
	}
}

// RecordCategory records one (document, category) outcome.
func (m *Metrics) RecordCategory(ctx context.Context, r domain.CategoryResult) {
	attrs := metric.WithAttributes(
		attribute.String("category", r.Category.Key),
		attribute.String("outcome", string(r.Outcome)),
	)
	m.categoryOutcomes.Add(ctx, 1, attrs)
	m.categoryDuration.Record(ctx, r.Duration.Seconds(), attrs)

	if r.Usage.InputTokens > 0 {
		m.llmTokens.Add(ctx, int64(r.Usage.InputTokens), metric.WithAttributes(attribute.String("direction", "input")))
	}
	if r.Usage.OutputTokens > 0 {
		m.llmTokens.Add(ctx, int64(r.Usage.OutputTokens), metric.WithAttributes(attribute.String("direction", "output")))
	}
	if r.CostUSD > 0 {
		m.cost.Add(ctx, r.CostUSD, metric.WithAttributes(attribute.String("stage", "synthesis")))
	}
}

// RecordDocument records one document's wall time.
func (m *Metrics) RecordDocument(ctx context.Context, party string, failed bool, d time.Duration) {
	m.documentDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("party", party),
		attribute.Bool("failed", failed),
	))
}
