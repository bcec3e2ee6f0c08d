package vectordb

import "context"

// VectorStore stores document chunks and searches them by embedding similarity.
type VectorStore interface {
	// AddDocuments adds or updates documents in the store.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search performs a semantic search using the query text. Results are
	// ordered by descending similarity.
	Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error)

	// GetBySource retrieves all chunks of one source document.
	GetBySource(ctx context.Context, source string) ([]Document, error)

	// DeleteBySource removes all chunks of one source document.
	DeleteBySource(ctx context.Context, source string) error

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of documents in the store.
	Count() int
}
