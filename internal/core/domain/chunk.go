package domain

import "time"

// Chunk is a contiguous, possibly overlapping substring of a page's text.
// Index is dense and zero-based within the page.
type Chunk struct {
	// Index is the position of the chunk within its page.
	Index int

	// Text is the page text between Start and End, untrimmed.
	Text string

	// Start is the byte offset of the chunk in the page text.
	Start int

	// End is the exclusive byte offset of the chunk in the page text.
	End int
}

// Embedding is the vector for one chunk under one model.
// Embeddings are inserted, never updated.
type Embedding struct {
	// ID is the store-assigned identifier.
	ID int64

	// PageTextID links to the PageText the chunk was cut from.
	PageTextID int64

	// DocumentID, PartyID and PageNumber locate the chunk for backends
	// that cannot join against the page text table.
	DocumentID int64
	PartyID    int64
	PageNumber int

	// ChunkIndex is the chunk's index within the page.
	ChunkIndex int

	// ChunkText is the chunk content.
	ChunkText string

	// Vector is the embedding. Its length is the model dimension.
	Vector []float32

	// Model is the embedding model name.
	Model string

	// TokenCount is the usage the backend reported for this chunk.
	TokenCount int

	// CreatedAt is when the embedding was stored.
	CreatedAt time.Time
}

// ChunkFailure records a chunk that could not be embedded.
type ChunkFailure struct {
	ChunkIndex int
	Error      string
}

// PageIndexResult reports indexing of a single page.
type PageIndexResult struct {
	PageTextID     int64
	PageNumber     int
	Skipped        bool
	ChunksEmbedded int
	Failures       []ChunkFailure
	Tokens         int
	CostUSD        float64
}

// IndexReport aggregates page results for a document or a batch.
type IndexReport struct {
	PagesIndexed   int
	PagesSkipped   int
	ChunksEmbedded int
	ChunksFailed   int
	Tokens         int
	CostUSD        float64
}

// Add folds a page result into the report.
func (r *IndexReport) Add(p PageIndexResult) {
	if p.Skipped {
		r.PagesSkipped++
		return
	}
	r.PagesIndexed++
	r.ChunksEmbedded += p.ChunksEmbedded
	r.ChunksFailed += len(p.Failures)
	r.Tokens += p.Tokens
	r.CostUSD += p.CostUSD
}

// Merge folds another report into this one.
func (r *IndexReport) Merge(o IndexReport) {
	r.PagesIndexed += o.PagesIndexed
	r.PagesSkipped += o.PagesSkipped
	r.ChunksEmbedded += o.ChunksEmbedded
	r.ChunksFailed += o.ChunksFailed
	r.Tokens += o.Tokens
	r.CostUSD += o.CostUSD
}
