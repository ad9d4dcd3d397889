package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.targetSize != DefaultTargetSize {
			t.Errorf("expected targetSize %d, got %d", DefaultTargetSize, p.targetSize)
		}
		if p.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, p.overlap)
		}
		if p.minChunkLength != DefaultMinChunkLength {
			t.Errorf("expected minChunkLength %d, got %d", DefaultMinChunkLength, p.minChunkLength)
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := New(WithOverlap(150))
		if p.Overlap() != 150 {
			t.Errorf("expected overlap 150, got %d", p.Overlap())
		}
	})

	t.Run("overlap outside range ignored", func(t *testing.T) {
		for _, v := range []int{0, 99, 201, -1} {
			p := New(WithOverlap(v))
			if p.overlap != DefaultOverlap {
				t.Errorf("overlap %d: expected default, got %d", v, p.overlap)
			}
		}
	})

	t.Run("tiny target size ignored", func(t *testing.T) {
		p := New(WithTargetSize(100))
		if p.TargetSize() != DefaultTargetSize {
			t.Errorf("expected default target size, got %d", p.TargetSize())
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestSplit_Empty(t *testing.T) {
	if chunks := New().Split(""); chunks != nil {
		t.Errorf("expected nil chunks, got %d", len(chunks))
	}
}

func TestSplit_SmallPageIsVerbatim(t *testing.T) {
	text := strings.Repeat("Propuesta de salud publica. ", 43)[:1200]

	chunks := New().Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].Text != text {
		t.Error("expected the single chunk to equal the page text")
	}
	if chunks[0].Start != 0 || chunks[0].End != len(text) {
		t.Errorf("unexpected offsets %d..%d", chunks[0].Start, chunks[0].End)
	}
}

func TestSplit_ShortPageDropped(t *testing.T) {
	if chunks := New().Split("   Página 3   \n"); len(chunks) != 0 {
		t.Errorf("expected no chunks for near-empty page, got %d", len(chunks))
	}
}

func TestSplit_MediumPageSnapsToSentence(t *testing.T) {
	// One boundary at 1280..1282, 18 characters before the midpoint.
	text := strings.Repeat("a", 1280) + ". " + strings.Repeat("b", 2600-1282)

	chunks := New(WithOverlap(200)).Split(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != text[:1282+200] {
		t.Errorf("chunk 0 ends at %d, expected %d", chunks[0].End, 1482)
	}
	if chunks[1].Text != text[1282-200:] {
		t.Errorf("chunk 1 starts at %d, expected %d", chunks[1].Start, 1082)
	}
	if chunks[1].Index != 1 {
		t.Errorf("expected index 1, got %d", chunks[1].Index)
	}
}

func TestSplit_MediumPageWithoutBoundary(t *testing.T) {
	text := strings.Repeat("a", 2600)

	chunks := New().Split(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].End != 1400 || chunks[1].Start != 1200 {
		t.Errorf("expected raw midpoint cut, got %d and %d", chunks[0].End, chunks[1].Start)
	}
}

func TestSnap(t *testing.T) {
	tests := []struct {
		name     string
		marks    []int
		expected int
	}{
		{"nearest wins", []int{1248, 1318}, 1320},
		{"tie goes to earlier", []int{1288, 1308}, 1290},
		{"newline variant", []int{1295}, 1297},
		{"outside window", []int{1150}, 1300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runes := []rune(strings.Repeat("a", 2600))
			for _, m := range tt.marks {
				runes[m] = '.'
				runes[m+1] = ' '
			}
			if tt.name == "newline variant" {
				runes[tt.marks[0]] = '?'
				runes[tt.marks[0]+1] = '\n'
			}
			if got := snap(runes, 1300); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestSplit_LongPageWindows(t *testing.T) {
	text := strings.Repeat("a", 5000)

	chunks := New().Split(text)
	expected := [][2]int{{0, 1500}, {1400, 2900}, {2800, 4300}, {4200, 5000}}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %d chunks, got %d", len(expected), len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Start != expected[i][0] || c.End != expected[i][1] {
			t.Errorf("chunk %d: expected %v, got %d..%d", i, expected[i], c.Start, c.End)
		}
	}
}

func TestSplit_LongPageCoverageAndDeterminism(t *testing.T) {
	text := strings.Repeat("Esta es una oración de prueba sobre educación. ", 150)
	p := New(WithOverlap(150))

	first := p.Split(text)
	second := p.Split(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical chunks on repeated split")
	}
	if len(first) < 3 {
		t.Fatalf("expected several chunks, got %d", len(first))
	}

	covered := 0
	for i, c := range first {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Text != text[c.Start:c.End] {
			t.Errorf("chunk %d text does not match offsets", i)
		}
		if c.Start > covered {
			t.Fatalf("gap before chunk %d: covered to %d, starts at %d", i, covered, c.Start)
		}
		if i > 0 && c.Start >= first[i-1].End {
			t.Errorf("chunk %d does not overlap its predecessor", i)
		}
		covered = max(covered, c.End)
	}
	if covered != len(text) {
		t.Errorf("expected coverage to %d, got %d", len(text), covered)
	}
}

func TestSplit_MultibyteOffsets(t *testing.T) {
	text := strings.Repeat("ñandú. ", 400)

	chunks := New().Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected a split page, got %d chunks", len(chunks))
	}
	for _, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d splits a rune", c.Index)
		}
		if c.Text != text[c.Start:c.End] {
			t.Errorf("chunk %d text does not match offsets", c.Index)
		}
	}
}
