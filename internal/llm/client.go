// Package llm provides the uniform provider-adapter surface over
// heterogeneous AI vendor APIs.
package llm

import (
	"context"
	"fmt"
)

// ImageData is an inline base64-encoded image for vision-capable calls.
type ImageData struct {
	MediaType string `json:"media_type"`
	Base64    string `json:"base64"`
}

// ChatMessage represents one role-tagged turn. Images are only honored on
// the vision call path of adapters that support it.
type ChatMessage struct {
	Role    string      `json:"role"`
	Content string      `json:"content"`
	Images  []ImageData `json:"images,omitempty"`
}

// CompletionRequest represents a completion request. Zero-valued generation
// parameters are filled by the adapter's defaults.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the normalized result every adapter returns.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a text completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteWithVision sends a completion request whose messages may carry
	// inline images. Adapters that do not support vision return an error.
	CompleteWithVision(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Generate is the single-shot path: one system prompt, one user turn.
	Generate(ctx context.Context, system, user string, req *CompletionRequest) (*CompletionResponse, error)

	// SupportsVision reports whether the adapter accepts image content.
	SupportsVision() bool

	// ValidateCredentials checks the adapter is usable before any call.
	ValidateCredentials() error

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// Registry resolves provider ids to constructed clients. It is populated at
// startup from configured credentials.
type Registry struct {
	clients map[string]Client
}

// NewRegistry builds a registry from the given clients, keyed by Name().
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		if c != nil {
			r.clients[c.Name()] = c
		}
	}
	return r
}

// Get returns the client for a provider id, or nil when none is configured.
func (r *Registry) Get(provider string) Client {
	return r.clients[provider]
}

// wrapErr is the single error path every adapter funnels vendor faults
// through, so callers can do fallback without per-vendor error handling.
func wrapErr(provider, op string, err error) error {
	return fmt.Errorf("%s %s: %w", provider, op, err)
}
