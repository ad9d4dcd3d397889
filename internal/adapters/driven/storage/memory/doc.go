// Package memory provides in-memory implementations of the driven store
// ports. They back service and CLI tests and hold nothing across runs.
package memory

// Stores bundles one of each memory store, wired to each other the way the
// SQLite store's tables are related.
type Stores struct {
	Parties    *PartyStore
	Documents  *DocumentStore
	Pages      *PageTextStore
	Embeddings *EmbeddingStore
	Categories *CategoryStore
	Status     *StatusStore
	Logs       *LogStore
	Config     *ConfigStore
}

// NewStores creates an empty, wired set of memory stores.
func NewStores() *Stores {
	embeddings := NewEmbeddingStore()
	documents := NewDocumentStore()
	categories := NewCategoryStore()
	return &Stores{
		Parties:    NewPartyStore(),
		Documents:  documents,
		Pages:      NewPageTextStore(embeddings),
		Embeddings: embeddings,
		Categories: categories,
		Status:     NewStatusStore(documents, categories),
		Logs:       NewLogStore(),
		Config:     NewConfigStore(),
	}
}
