package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

func TestIndexCmd_ExtractsThenIndexes(t *testing.T) {
	ts, restore := setupTestServices()
	defer restore()

	out, err := execute(t, "index", "--party", "PLN")

	require.NoError(t, err)
	assert.Equal(t, []int64{10}, ts.corpus.ensured)
	assert.Equal(t, []int64{10}, ts.index.indexed)
	assert.Contains(t, out, "Plan PLN: 2 pages indexed, 0 skipped, 5 chunks")
	assert.Contains(t, out, "Indexed 2 pages (0 skipped), 5 chunks, 0 failed, 100 tokens")
}

func TestIndexCmd_ClearNeedsSelection(t *testing.T) {
	ts, restore := setupTestServices()
	defer restore()

	_, err := execute(t, "index", "--clear")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, ts.index.cleared)
}

func TestIndexCmd_Clear(t *testing.T) {
	ts, restore := setupTestServices()
	defer restore()

	out, err := execute(t, "index", "--clear", "10", "20")

	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, ts.index.cleared)
	assert.Empty(t, ts.index.indexed)
	assert.Contains(t, out, "Deleted 10 embeddings from 2 documents")
}
