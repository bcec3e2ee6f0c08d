package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amtly/amtly/internal/vectordb"
)

// ErrSearchUnavailable means the search index failed or returned nothing.
// Callers treat it as "no fragment" and continue with other context.
var ErrSearchUnavailable = errors.New("knowledge: search unavailable")

// DefaultK is the number of hits requested for a general question.
const DefaultK = 3

// Searcher is the nearest-neighbour search over indexed documents.
// vectordb.VectorStore satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, filter *vectordb.SearchFilter) ([]vectordb.SearchResult, error)
}

// SearchAdapter turns search hits into fragments with cleaned source labels.
type SearchAdapter struct {
	searcher Searcher
	k        int
	timeout  time.Duration
}

// NewSearchAdapter creates a SearchAdapter. k <= 0 uses DefaultK; a zero
// timeout leaves the caller's deadline in charge.
func NewSearchAdapter(s Searcher, k int, timeout time.Duration) *SearchAdapter {
	if k <= 0 {
		k = DefaultK
	}
	return &SearchAdapter{searcher: s, k: k, timeout: timeout}
}

// Search returns up to k fragments for query; k <= 0 uses the adapter
// default. Errors and empty results are both reported as
// ErrSearchUnavailable.
func (a *SearchAdapter) Search(ctx context.Context, query string, k int) ([]Fragment, error) {
	if a == nil || a.searcher == nil {
		return nil, ErrSearchUnavailable
	}
	if k <= 0 {
		k = a.k
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	results, err := a.searcher.Search(ctx, query, k, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}
	if len(results) == 0 {
		return nil, ErrSearchUnavailable
	}

	frags := make([]Fragment, 0, len(results))
	for _, r := range results {
		label, _ := CleanSource(r.Document.Metadata.Source)
		frags = append(frags, Fragment{
			Text:      r.Document.Content,
			Source:    label,
			Relevance: relevanceFor(r.Similarity),
			Score:     r.Similarity,
		})
	}
	return frags, nil
}
