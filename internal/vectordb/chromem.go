package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/amtly/amtly/internal/embeddings"
)

// DefaultCollection is the collection official documents are indexed into.
const DefaultCollection = "official_documents"

const exportFile = "chromem.gob.gz"

// ErrNoIndex is returned by Load when nothing was persisted to the directory.
var ErrNoIndex = errors.New("vectordb: no persisted index")

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore. An empty collection
// name selects DefaultCollection.
func NewChromemStore(embedder embeddings.Embedder, collection string) (*ChromemStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collection, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		name:       collection,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit, buildWhereClause(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}

	return searchResults, nil
}

func (s *ChromemStore) GetBySource(ctx context.Context, source string) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	where := map[string]string{"source": source}

	// Query with the source name as text and the full count as limit to
	// collect every matching chunk.
	results, err := s.collection.Query(ctx, source, count, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query by source: %w", err)
	}

	docs := make([]Document, len(results))
	for i, r := range results {
		docs[i] = Document{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: mapToMetadata(r.Metadata),
		}
	}

	return docs, nil
}

func (s *ChromemStore) DeleteBySource(ctx context.Context, source string) error {
	return s.collection.Delete(ctx, map[string]string{"source": source}, nil)
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create vectordb dir: %w", err)
	}
	return s.db.ExportToFile(filepath.Join(dir, exportFile), true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	path := filepath.Join(dir, exportFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w in %s", ErrNoIndex, dir)
	}
	err := s.db.ImportFromFile(path, "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(s.name, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", s.name)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// metadataToMap converts DocumentMetadata to a flat map[string]string for chromem.
func metadataToMap(m DocumentMetadata) map[string]string {
	return map[string]string{
		"source":       m.Source,
		"page":         strconv.Itoa(m.Page),
		"chunk":        strconv.Itoa(m.Chunk),
		"content_hash": m.ContentHash,
		"kind":         string(m.Kind),
		"form_code":    m.FormCode,
		"language":     m.Language,
		"last_updated": m.LastUpdated.Format(time.RFC3339),
	}
}

// mapToMetadata converts a flat map[string]string back to DocumentMetadata.
func mapToMetadata(m map[string]string) DocumentMetadata {
	page, _ := strconv.Atoi(m["page"])
	chunk, _ := strconv.Atoi(m["chunk"])
	lastUpdated, _ := time.Parse(time.RFC3339, m["last_updated"])

	return DocumentMetadata{
		Source:      m["source"],
		Page:        page,
		Chunk:       chunk,
		ContentHash: m["content_hash"],
		Kind:        DocumentKind(m["kind"]),
		FormCode:    m["form_code"],
		Language:    m["language"],
		LastUpdated: lastUpdated,
	}
}

// buildWhereClause converts a SearchFilter to a chromem where clause.
func buildWhereClause(filter *SearchFilter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.Kind != nil {
		where["kind"] = string(*filter.Kind)
	}
	if filter.Source != nil {
		where["source"] = *filter.Source
	}
	if filter.FormCode != nil {
		where["form_code"] = *filter.FormCode
	}
	if filter.Language != nil {
		where["language"] = *filter.Language
	}

	if len(where) == 0 {
		return nil
	}
	return where
}
