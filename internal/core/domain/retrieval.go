package domain

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 15

// SearchScope restricts retrieval to one document or one party.
// DocumentID takes precedence when both are set.
type SearchScope struct {
	PartyID    int64
	DocumentID int64
}

// IsZero reports whether the scope is unrestricted.
func (s SearchScope) IsZero() bool {
	return s.PartyID == 0 && s.DocumentID == 0
}

// RetrievedChunk is a chunk returned by semantic search.
type RetrievedChunk struct {
	// EmbeddingID identifies the stored embedding.
	EmbeddingID int64

	// DocumentID is the document the chunk came from.
	DocumentID int64

	// PageNumber is the page the chunk was cut from.
	PageNumber int

	// ChunkIndex is the chunk's index within that page.
	ChunkIndex int

	// Text is the chunk content.
	Text string

	// Distance is the cosine distance to the query (smaller is closer).
	Distance float64

	// Similarity is 1 - Distance.
	Similarity float64
}

// Pages returns the distinct page numbers of the chunks in order of first appearance.
func Pages(chunks []RetrievedChunk) []int {
	seen := make(map[int]bool, len(chunks))
	pages := make([]int, 0, len(chunks))
	for _, c := range chunks {
		if seen[c.PageNumber] {
			continue
		}
		seen[c.PageNumber] = true
		pages = append(pages, c.PageNumber)
	}
	return pages
}

// AverageSimilarity returns the mean similarity, or 0 for no chunks.
func AverageSimilarity(chunks []RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Similarity
	}
	return sum / float64(len(chunks))
}
