package embeddings

import "fmt"

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHash   = "hash"
)

// Options selects and configures an embedding backend.
type Options struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// New creates an Embedder for the configured provider.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderOpenAI, "":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embeddings")
		}
		return NewOpenAIEmbedder(opts.APIKey, opts.BaseURL, OpenAIModel(opts.Model)), nil
	case ProviderOllama:
		return NewOllamaEmbedder(opts.Model, opts.Dimensions, opts.BaseURL), nil
	case ProviderHash:
		return NewHashEmbedder(opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", opts.Provider)
	}
}
