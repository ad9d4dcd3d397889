package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// ==================== Category Store ====================

// categoryStore implements driven.CategoryStore.
type categoryStore struct {
	store *Store
}

var _ driven.CategoryStore = (*categoryStore)(nil)

const categoryColumns = `id, key, name, description, prompt_context, search_query, display_order, active, created_at`

// UpsertCategory inserts or updates a category keyed by Key and sets its ID.
func (s *categoryStore) UpsertCategory(ctx context.Context, c *domain.Category) error {
	if c == nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(); err != nil {
		return err
	}

	var createdAt string
	err := s.store.db.QueryRowContext(ctx, `
		INSERT INTO categories (key, name, description, prompt_context, search_query, display_order, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			prompt_context = excluded.prompt_context,
			search_query = excluded.search_query,
			display_order = excluded.display_order,
			active = excluded.active
		RETURNING id, created_at
	`, c.Key, c.Name, c.Description, c.PromptContext, c.SearchQuery, c.DisplayOrder,
		boolToInt(c.Active), formatTime(time.Now())).Scan(&c.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("saving category: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return nil
}

// GetCategoryByKey retrieves a category by key.
func (s *categoryStore) GetCategoryByKey(ctx context.Context, key string) (*domain.Category, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE key = ?`, key)
	return scanCategory(row)
}

// ListCategories returns categories in display order.
func (s *categoryStore) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY display_order, id`

	rows, err := s.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var cats []domain.Category //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return cats, nil
}

// SetCategoryActive toggles whether a category takes part in new runs.
func (s *categoryStore) SetCategoryActive(ctx context.Context, key string, active bool) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE categories SET active = ? WHERE key = ?", boolToInt(active), key)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanCategory scans a category row.
func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	var active int
	var createdAt string

	if err := row.Scan(&c.ID, &c.Key, &c.Name, &c.Description, &c.PromptContext,
		&c.SearchQuery, &c.DisplayOrder, &active, &createdAt); err != nil {
		return nil, scanError(err, "category")
	}
	c.Active = active == 1
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}
