package llm

import "context"

// Provider defines the interface for LLM providers: given a system prompt
// plus user content, return a completion. Implementations perform network
// I/O and must honor the context deadline.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
