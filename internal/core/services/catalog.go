package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
)

// Ensure CategoryService implements the interface.
var _ driving.CategoryService = (*CategoryService)(nil)

// CategoryService manages the analysis category catalog.
type CategoryService struct {
	store driven.CategoryStore
}

// NewCategoryService creates a new category service.
func NewCategoryService(store driven.CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// List returns categories in display order.
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	return s.store.ListCategories(ctx, activeOnly)
}

// Seed inserts the default categories that are missing and returns how
// many were added. Existing categories are left untouched.
func (s *CategoryService) Seed(ctx context.Context) (int, error) {
	added := 0
	for _, c := range domain.DefaultCategories() {
		_, err := s.store.GetCategoryByKey(ctx, c.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return added, fmt.Errorf("get category %s: %w", c.Key, err)
		}
		if err := s.store.UpsertCategory(ctx, &c); err != nil {
			return added, fmt.Errorf("seed category %s: %w", c.Key, err)
		}
		added++
	}
	return added, nil
}

// Load validates and upserts categories by key. A zero display order keeps
// an existing category's position and appends new ones at the end.
func (s *CategoryService) Load(ctx context.Context, categories []domain.Category) (int, error) {
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if err := c.Validate(); err != nil {
			return 0, err
		}
		if seen[c.Key] {
			return 0, fmt.Errorf("%w: duplicate category key %q", domain.ErrInvalidInput, c.Key)
		}
		seen[c.Key] = true
	}

	existing, err := s.store.ListCategories(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	nextOrder := 1
	byKey := make(map[string]domain.Category, len(existing))
	for _, c := range existing {
		byKey[c.Key] = c
		if c.DisplayOrder >= nextOrder {
			nextOrder = c.DisplayOrder + 1
		}
	}

	for i := range categories {
		c := categories[i]
		if c.DisplayOrder == 0 {
			if old, ok := byKey[c.Key]; ok {
				c.DisplayOrder = old.DisplayOrder
			} else {
				c.DisplayOrder = nextOrder
				nextOrder++
			}
		}
		if err := s.store.UpsertCategory(ctx, &c); err != nil {
			return i, fmt.Errorf("save category %s: %w", c.Key, err)
		}
	}
	return len(categories), nil
}

// SetActive activates or deactivates a category.
func (s *CategoryService) SetActive(ctx context.Context, key string, active bool) error {
	return s.store.SetCategoryActive(ctx, key, active)
}
