// Package chunker provides an adaptive, sentence-aligned text chunker.
//
// Pages are split by size class: short pages stay whole, medium pages are
// cut once near the middle, long pages are cut into overlapping windows.
// Every cut is moved to the nearest sentence boundary when one is close.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// DefaultTargetSize is the default window size in characters for long pages.
const DefaultTargetSize = 1500

// DefaultOverlap is the default number of characters shared by neighbouring chunks.
const DefaultOverlap = 100

// MinOverlap and MaxOverlap bound the configurable overlap.
const (
	MinOverlap = 100
	MaxOverlap = 200
)

// DefaultMinChunkLength is the trimmed length below which a chunk is dropped.
const DefaultMinChunkLength = 50

// Page size classes in characters.
const (
	// SmallPageLimit is the length below which a page is a single chunk.
	SmallPageLimit = 1500

	// MediumPageLimit is the length below which a page is split in two.
	MediumPageLimit = 3500
)

// SnapWindow is how far, in characters, a cut may move to reach a sentence boundary.
const SnapWindow = 100

// Processor splits page text into chunks.
// It implements the driven.Chunker interface.
type Processor struct {
	targetSize     int
	overlap        int
	minChunkLength int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithTargetSize sets the window size in characters for long pages.
func WithTargetSize(size int) Option {
	return func(p *Processor) {
		if size > 2*SnapWindow {
			p.targetSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
// Values outside [MinOverlap, MaxOverlap] are ignored.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= MinOverlap && overlap <= MaxOverlap {
			p.overlap = overlap
		}
	}
}

// WithMinChunkLength sets the trimmed length below which chunks are dropped.
func WithMinChunkLength(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minChunkLength = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		targetSize:     DefaultTargetSize,
		overlap:        DefaultOverlap,
		minChunkLength: DefaultMinChunkLength,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// TargetSize returns the configured window size.
func (p *Processor) TargetSize() int {
	return p.targetSize
}

// span is a chunk range in rune offsets.
type span struct{ start, end int }

// Split returns the chunks of text. Offsets are counted in characters when
// choosing cuts and reported as byte offsets, so Text == text[Start:End].
func (p *Processor) Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)

	var spans []span
	switch {
	case n < SmallPageLimit:
		spans = []span{{0, n}}
	case n < MediumPageLimit:
		cut := snap(runes, n/2)
		spans = []span{
			{0, min(n, cut+p.overlap)},
			{max(0, cut-p.overlap), n},
		}
	default:
		spans = p.windows(runes)
	}

	return p.materialise(text, runes, spans)
}

// windows cuts a long page into target-sized windows, each starting
// overlap characters before the previous cut.
func (p *Processor) windows(runes []rune) []span {
	n := len(runes)
	spans := make([]span, 0, n/(p.targetSize-p.overlap)+1)

	start := 0
	for {
		end := start + p.targetSize
		if end >= n {
			spans = append(spans, span{start, n})
			return spans
		}
		end = snap(runes, end)
		if end-p.overlap <= start {
			end = start + p.targetSize
		}
		spans = append(spans, span{start, end})
		if end >= n {
			return spans
		}
		start = end - p.overlap
	}
}

// materialise converts rune spans into chunks, drops short ones and
// renumbers the survivors densely.
func (p *Processor) materialise(text string, runes []rune, spans []span) []domain.Chunk {
	offsets := byteOffsets(text, len(runes))

	chunks := make([]domain.Chunk, 0, len(spans))
	for _, s := range spans {
		start, end := offsets[s.start], offsets[s.end]
		body := text[start:end]
		if utf8.RuneCountInString(strings.TrimSpace(body)) < p.minChunkLength {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Text:  body,
			Start: start,
			End:   end,
		})
	}
	return chunks
}

// snap moves target to the nearest sentence boundary within SnapWindow.
// A boundary is the position just after ". ", "! ", "? " or their newline
// variants. Ties go to the earlier boundary; with none, target is kept.
func snap(runes []rune, target int) int {
	lo := max(0, target-SnapWindow)
	hi := min(len(runes), target+SnapWindow)

	best, bestDist := -1, 0
	for i := lo; i+2 <= hi; i++ {
		if !isSentenceEnd(runes[i], runes[i+1]) {
			continue
		}
		cut := i + 2
		dist := abs(cut - target)
		if best < 0 || dist < bestDist {
			best, bestDist = cut, dist
		}
	}

	if best < 0 {
		return target
	}
	return best
}

func isSentenceEnd(r, next rune) bool {
	return (r == '.' || r == '!' || r == '?') && (next == ' ' || next == '\n')
}

// byteOffsets maps rune index i to its byte offset, with entry n = len(text).
func byteOffsets(text string, n int) []int {
	offsets := make([]int, 0, n+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
