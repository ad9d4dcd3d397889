// Package vectors holds the float32 blob encoding and cosine ranking shared
// by the embedded vector stores.
package vectors

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"
)

// ErrBadBlob indicates a blob whose length is not a multiple of four bytes.
var ErrBadBlob = errors.New("vector blob length is not a multiple of 4")

// Encode serialises a vector as little-endian float32 values.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode parses a little-endian float32 blob.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, ErrBadBlob
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// CosineDistance returns 1 - cosine similarity. Vectors of different
// length or zero norm are at distance 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Candidate is a stored vector considered for ranking.
type Candidate struct {
	Index    int
	Distance float64
}

// Nearest ranks vectors by ascending cosine distance to query and returns
// at most k candidates. Equal distances keep input order.
func Nearest(query []float32, vecs [][]float32, k int) []Candidate {
	cands := make([]Candidate, len(vecs))
	for i, v := range vecs {
		cands[i] = Candidate{Index: i, Distance: CosineDistance(query, v)}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Distance < cands[j].Distance
	})
	if k > 0 && len(cands) > k {
		cands = cands[:k]
	}
	return cands
}
