package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel     = "claude-3-5-sonnet-20241022"
	defaultAnthropicMaxTokens = 1024
)

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
	apiKey string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &AnthropicClient{
		client: client,
		apiKey: apiKey,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	}
}

// SupportsVision reports vision capability.
func (c *AnthropicClient) SupportsVision() bool {
	return true
}

// ValidateCredentials checks the adapter is usable.
func (c *AnthropicClient) ValidateCredentials() error {
	if c.apiKey == "" {
		return errors.New("Anthropic API key is required")
	}
	return nil
}

func (c *AnthropicClient) defaults(req *CompletionRequest) (string, int64) {
	model := req.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return model, int64(maxTokens)
}

func (c *AnthropicClient) buildMessages(req *CompletionRequest, withImages bool) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		blocks := []anthropic.MessageParamContentUnion{}
		if withImages {
			for _, img := range msg.Images {
				blocks = append(blocks, anthropic.ImageBlockParam{
					Type: anthropic.F(anthropic.ImageBlockParamTypeImage),
					Source: anthropic.F(anthropic.ImageBlockParamSource{
						Type:      anthropic.F(anthropic.ImageBlockParamSourceTypeBase64),
						MediaType: anthropic.F(anthropic.ImageBlockParamSourceMediaType(img.MediaType)),
						Data:      anthropic.F(img.Base64),
					}),
				})
			}
		}
		if msg.Content != "" || len(blocks) == 0 {
			blocks = append(blocks, anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(msg.Content),
			})
		}

		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.F(anthropic.MessageParamRole(msg.Role)),
			Content: anthropic.F(blocks),
		})
	}
	return messages
}

func (c *AnthropicClient) complete(ctx context.Context, req *CompletionRequest, withImages bool) (*CompletionResponse, error) {
	start := time.Now()
	model, maxTokens := c.defaults(req)

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(model),
		MaxTokens: anthropic.F(maxTokens),
		Messages:  anthropic.F(c.buildMessages(req, withImages)),
	}
	if req.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{{
			Type: anthropic.F(anthropic.TextBlockParamTypeText),
			Text: anthropic.F(req.System),
		}})
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.F(req.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapErr(c.Name(), "message create", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Complete sends a completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return c.complete(ctx, req, false)
}

// CompleteWithVision sends a completion request with inline image content.
func (c *AnthropicClient) CompleteWithVision(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return c.complete(ctx, req, true)
}

// Generate sends a single system+user exchange.
func (c *AnthropicClient) Generate(ctx context.Context, system, user string, req *CompletionRequest) (*CompletionResponse, error) {
	single := &CompletionRequest{
		System:   system,
		Messages: []ChatMessage{{Role: "user", Content: user}},
	}
	if req != nil {
		single.Model = req.Model
		single.MaxTokens = req.MaxTokens
		single.Temperature = req.Temperature
	}
	return c.complete(ctx, single, false)
}
