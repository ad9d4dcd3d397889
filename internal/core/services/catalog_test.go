package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/plataformas/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/plataformas/internal/core/domain"
)

func TestCategoryService_Seed(t *testing.T) {
	svc := NewCategoryService(memory.NewCategoryStore())
	ctx := context.Background()

	added, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(domain.DefaultCategories()), added)

	cats, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, cats, added)
	assert.Equal(t, "educacion", cats[0].Key)
	assert.Equal(t, "salud", cats[1].Key)

	// Seeding twice adds nothing
	added, err = svc.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestCategoryService_Seed_KeepsEdits(t *testing.T) {
	store := memory.NewCategoryStore()
	svc := NewCategoryService(store)
	ctx := context.Background()
	custom := &domain.Category{Key: "salud", Name: "Salud Pública", DisplayOrder: 99, Active: false}
	require.NoError(t, store.UpsertCategory(ctx, custom))

	_, err := svc.Seed(ctx)
	require.NoError(t, err)

	got, err := store.GetCategoryByKey(ctx, "salud")
	require.NoError(t, err)
	assert.Equal(t, "Salud Pública", got.Name)
	assert.False(t, got.Active)
}

func TestCategoryService_Load(t *testing.T) {
	svc := NewCategoryService(memory.NewCategoryStore())
	ctx := context.Background()
	_, err := svc.Load(ctx, []domain.Category{
		{Key: "salud", Name: "Salud", DisplayOrder: 1, Active: true},
		{Key: "economia", Name: "Economía", DisplayOrder: 2, Active: true},
	})
	require.NoError(t, err)

	n, err := svc.Load(ctx, []domain.Category{
		{Key: "salud", Name: "Salud y CCSS", Active: true},
		{Key: "deportes", Name: "Deportes", Active: true},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	cats, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "salud", cats[0].Key)
	assert.Equal(t, "Salud y CCSS", cats[0].Name)
	assert.Equal(t, 1, cats[0].DisplayOrder, "zero order keeps the existing position")
	assert.Equal(t, "deportes", cats[2].Key)
	assert.Equal(t, 3, cats[2].DisplayOrder, "new categories are appended")
}

func TestCategoryService_Load_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cats []domain.Category
	}{
		{"missing name", []domain.Category{{Key: "salud"}}},
		{"missing key", []domain.Category{{Name: "Salud"}}},
		{"duplicate key", []domain.Category{{Key: "salud", Name: "A"}, {Key: "salud", Name: "B"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewCategoryStore()
			svc := NewCategoryService(store)

			_, err := svc.Load(context.Background(), tt.cats)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			cats, _ := store.ListCategories(context.Background(), false)
			assert.Empty(t, cats, "nothing is written when validation fails")
		})
	}
}

func TestCategoryService_SetActive(t *testing.T) {
	svc := NewCategoryService(memory.NewCategoryStore())
	ctx := context.Background()
	_, err := svc.Seed(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, "cultura", false))

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	for _, c := range active {
		assert.NotEqual(t, "cultura", c.Key)
	}
	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, len(active)+1)

	assert.ErrorIs(t, svc.SetActive(ctx, "deportes", true), domain.ErrNotFound)
}
