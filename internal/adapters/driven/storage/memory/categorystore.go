package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Ensure CategoryStore implements the interface.
var _ driven.CategoryStore = (*CategoryStore)(nil)

// CategoryStore is an in-memory implementation of driven.CategoryStore.
type CategoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	categories map[string]domain.Category
}

// NewCategoryStore creates a new in-memory category store.
func NewCategoryStore() *CategoryStore {
	return &CategoryStore{categories: make(map[string]domain.Category)}
}

// UpsertCategory inserts or updates a category keyed by Key.
func (s *CategoryStore) UpsertCategory(_ context.Context, c *domain.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.categories[c.Key]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		c.ID = s.nextID
		c.CreatedAt = time.Now()
	}
	s.categories[c.Key] = *c
	return nil
}

// GetCategoryByKey retrieves a category by key.
func (s *CategoryStore) GetCategoryByKey(_ context.Context, key string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// ListCategories returns categories in display order.
func (s *CategoryStore) ListCategories(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SetCategoryActive toggles a category.
func (s *CategoryStore) SetCategoryActive(_ context.Context, key string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[key]
	if !ok {
		return domain.ErrNotFound
	}
	c.Active = active
	s.categories[key] = c
	return nil
}

// categoryByID is used by the status store for progress and ordering.
func (s *CategoryStore) categoryByID(id int64) (domain.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Category{}, false
}
