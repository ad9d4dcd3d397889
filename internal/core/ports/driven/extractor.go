package driven

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// TextExtractor reads per-page text from a platform PDF.
// The choice between the native text layer and OCR is internal to the
// implementation and reported through ExtractionResult.NeedsFallback.
type TextExtractor interface {
	// Extract returns the text of every page of the PDF at path.
	// Unreadable or corrupt files return domain.ErrExtractionFailed.
	Extract(ctx context.Context, path string) (*domain.ExtractionResult, error)

	// PageCount returns the number of pages without extracting text.
	PageCount(path string) (int, error)

	// Close releases resources held by lazily started engines.
	Close() error
}
