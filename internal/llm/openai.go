package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel     = "gpt-4o"
	defaultOpenAIMaxTokens = 1024
)

// OpenAIClient is the OpenAI LLM client.
type OpenAIClient struct {
	client *openai.Client
	apiKey string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		apiKey: apiKey,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-3.5-turbo",
	}
}

// SupportsVision reports vision capability.
func (c *OpenAIClient) SupportsVision() bool {
	return true
}

// ValidateCredentials checks the adapter is usable.
func (c *OpenAIClient) ValidateCredentials() error {
	if c.apiKey == "" {
		return errors.New("OpenAI API key is required")
	}
	return nil
}

func (c *OpenAIClient) defaults(req *CompletionRequest) (string, int, float32) {
	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultOpenAIMaxTokens
	}
	return model, maxTokens, float32(req.Temperature)
}

func (c *OpenAIClient) buildMessages(req *CompletionRequest, withImages bool) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.Messages {
		if withImages && len(msg.Images) > 0 {
			parts := make([]openai.ChatMessagePart, 0, len(msg.Images)+1)
			if msg.Content != "" {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: msg.Content,
				})
			}
			for _, img := range msg.Images {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    fmt.Sprintf("data:%s;base64,%s", img.MediaType, img.Base64),
						Detail: openai.ImageURLDetailAuto,
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:         msg.Role,
				MultiContent: parts,
			})
			continue
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return messages
}

func (c *OpenAIClient) complete(ctx context.Context, req *CompletionRequest, withImages bool) (*CompletionResponse, error) {
	start := time.Now()
	model, maxTokens, temperature := c.defaults(req)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    c.buildMessages(req, withImages),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, wrapErr(c.Name(), "chat completion", err)
	}

	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return c.complete(ctx, req, false)
}

// CompleteWithVision sends a completion request with inline image content.
func (c *OpenAIClient) CompleteWithVision(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return c.complete(ctx, req, true)
}

// Generate sends a single system+user exchange.
func (c *OpenAIClient) Generate(ctx context.Context, system, user string, req *CompletionRequest) (*CompletionResponse, error) {
	single := &CompletionRequest{
		System:   system,
		Messages: []ChatMessage{{Role: openai.ChatMessageRoleUser, Content: user}},
	}
	if req != nil {
		single.Model = req.Model
		single.MaxTokens = req.MaxTokens
		single.Temperature = req.Temperature
	}
	return c.complete(ctx, single, false)
}
