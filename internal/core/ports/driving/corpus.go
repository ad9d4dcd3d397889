package driving

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// CorpusService registers parties and documents and extracts their text.
type CorpusService interface {
	// Discover scans a platforms directory and registers new documents.
	Discover(ctx context.Context, dir string) (*domain.DiscoveryReport, error)

	// ListParties returns all registered parties.
	ListParties(ctx context.Context) ([]domain.Party, error)

	// GetParty returns a party by abbreviation.
	GetParty(ctx context.Context, abbr string) (*domain.Party, error)

	// ListDocuments returns documents, restricted to a party when abbr is set.
	ListDocuments(ctx context.Context, abbr string) ([]domain.Document, error)

	// EnsureText extracts and caches page text unless already cached.
	// With force the cache and its embeddings are dropped first.
	// The boolean reports whether extraction ran.
	EnsureText(ctx context.Context, documentID int64, force bool) ([]domain.PageText, bool, error)
}

// CategoryService manages analysis categories.
type CategoryService interface {
	// List returns categories in display order.
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)

	// Seed upserts the default categories.
	Seed(ctx context.Context) (int, error)

	// Load upserts categories read from a catalog file.
	Load(ctx context.Context, categories []domain.Category) (int, error)

	// SetActive toggles a category.
	SetActive(ctx context.Context, key string, active bool) error
}

// ReportService reads results for presentation.
type ReportService interface {
	// Positions returns a party's positions, optionally for one category.
	Positions(ctx context.Context, abbr, categoryKey string) ([]domain.PositionView, error)

	// History returns replaced positions for a party and category.
	History(ctx context.Context, abbr, categoryKey string) ([]domain.PositionView, error)

	// Status returns corpus counts, totals and per-category progress.
	Status(ctx context.Context) (*domain.StatusReport, error)

	// RecentLogs returns the newest processing log entries.
	RecentLogs(ctx context.Context, limit int) ([]domain.ProcessingLogEntry, error)
}
