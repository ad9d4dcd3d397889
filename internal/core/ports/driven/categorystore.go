package driven

import (
	"context"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

// CategoryStore persists analysis categories.
type CategoryStore interface {
	// UpsertCategory inserts or updates a category keyed by Key and sets its ID.
	UpsertCategory(ctx context.Context, c *domain.Category) error

	// GetCategoryByKey retrieves a category by key.
	GetCategoryByKey(ctx context.Context, key string) (*domain.Category, error)

	// ListCategories returns categories in display order.
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error)

	// SetCategoryActive toggles whether a category takes part in new runs.
	SetCategoryActive(ctx context.Context, key string, active bool) error
}
