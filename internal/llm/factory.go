package llm

import "fmt"

// Options selects and configures a completion backend.
type Options struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
}

// NewProvider creates a Provider for opts.Provider ("openai" or "ollama"),
// rate limited when RequestsPerMinute is positive.
func NewProvider(opts Options) (Provider, error) {
	var p Provider
	switch opts.Provider {
	case "openai", "":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		p = NewOpenAIProvider(opts.APIKey, opts.BaseURL, opts.Model)
	case "ollama":
		p = NewOllamaProvider(opts.BaseURL, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Provider)
	}
	return NewRateLimitedProvider(p, opts.RequestsPerMinute), nil
}
