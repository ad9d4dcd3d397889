package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// PipelineMetrics records pipeline outcomes for an external metrics backend.
// Services treat a nil PipelineMetrics as "record nothing".
type PipelineMetrics interface {
	// RecordIndex records the result of indexing one document.
	RecordIndex(ctx context.Context, report domain.IndexReport)

	// RecordCategory records one (document, category) outcome.
	RecordCategory(ctx context.Context, result domain.CategoryResult)

	// RecordDocument records the wall time of one document.
	RecordDocument(ctx context.Context, party string, failed bool, d time.Duration)
}
