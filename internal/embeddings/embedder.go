// Package embeddings turns text into vectors for the document index.
package embeddings

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int

	// Name identifies the model, e.g. "text-embedding-3-small".
	Name() string
}
