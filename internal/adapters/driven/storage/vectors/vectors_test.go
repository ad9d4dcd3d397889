package vectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	v := []float32{0.25, -1.5, 3}

	blob := Encode(v)
	assert.Len(t, blob, 12)

	got, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrBadBlob)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{1, 0, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-9)
}

func TestNearest(t *testing.T) {
	query := []float32{1, 0}
	vecs := [][]float32{
		{0, 1},
		{1, 0},
		{1, 1},
		{2, 0},
	}

	got := Nearest(query, vecs, 3)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 3, got[1].Index, "equal distances keep input order")
	assert.Equal(t, 2, got[2].Index)

	assert.Len(t, Nearest(query, vecs, 0), 4)
	assert.Empty(t, Nearest(query, nil, 5))
}
