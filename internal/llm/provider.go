// Package llm talks to chat-completion services.
package llm

import "context"

// Provider sends chat completion requests to a language model.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the backend, e.g. "openai".
	Name() string
}
