package ai

import (
	"fmt"
	"strings"

	"github.com/omnireply-ai/messaging-platform/internal/model"
)

const (
	// maxPromptChunks bounds how many retrieved chunks enter the prompt.
	maxPromptChunks = 3
	// maxChunkChars truncates a single chunk inside the prompt.
	maxChunkChars = 2000
	// maxPromptProducts bounds product listings in the prompt.
	maxPromptProducts = 3
	// maxHistoryMessages bounds conversation history in the prompt.
	maxHistoryMessages = 10
)

// PromptPolicy carries the operator-tunable instruction text appended to
// every system prompt. Defaults cover response style and handoff behavior.
type PromptPolicy struct {
	Style   string
	Handoff string
}

// DefaultPromptPolicy returns the stock policy text.
func DefaultPromptPolicy() PromptPolicy {
	return PromptPolicy{
		Style: "Keep answers concise and conversational. Answer in the language " +
			"the customer writes in. Never invent facts that are not in the " +
			"provided business information.",
		Handoff: "If you cannot help with a request, or the customer asks for a " +
			"human, tell them an agent will follow up and do not guess.",
	}
}

// PromptInput is everything the builder needs for one turn.
type PromptInput struct {
	Config        *model.ResolvedAIConfig
	Profile       *model.CompanyProfile
	CustomerID    string
	Chunks        []model.RetrievedChunk
	Products      []model.Product
	History       []model.Message
	MediaText     string
	MediaLanguage string
}

// PromptBuilder assembles the system prompt and chat history for a turn.
// Block order is fixed so prompts stay cache-friendly and diffable.
type PromptBuilder struct {
	policy PromptPolicy
}

// NewPromptBuilder creates a builder with the given policy. Empty policy
// fields fall back to the stock text individually, so operators can override
// one without restating the other.
func NewPromptBuilder(policy PromptPolicy) *PromptBuilder {
	def := DefaultPromptPolicy()
	if policy.Style == "" {
		policy.Style = def.Style
	}
	if policy.Handoff == "" {
		policy.Handoff = def.Handoff
	}
	return &PromptBuilder{policy: policy}
}

// BuildSystem renders the system prompt. Block order: identity framing,
// style policy, handoff policy, personality instructions, customer identity,
// business facts, retrieved knowledge, product listings, booking, media
// context.
func (b *PromptBuilder) BuildSystem(in PromptInput) string {
	var sb strings.Builder

	if in.Config.SystemPrompt != "" {
		sb.WriteString(in.Config.SystemPrompt)
		sb.WriteString("\n\n")
	}

	sb.WriteString(b.policy.Style + "\n" + b.policy.Handoff + "\n\n")

	if in.Config.Tone != "" {
		sb.WriteString("Tone: " + in.Config.Tone + "\n")
	}
	if len(in.Config.ProhibitedTopics) > 0 {
		sb.WriteString("Never discuss: " + strings.Join(in.Config.ProhibitedTopics, ", ") + "\n")
	}
	if in.Config.CustomInstructions != "" {
		sb.WriteString(in.Config.CustomInstructions + "\n")
	}
	sb.WriteString("\n")

	if in.CustomerID != "" {
		sb.WriteString("Customer: " + in.CustomerID + "\n\n")
	}

	if in.Profile != nil {
		sb.WriteString("## Business information\n")
		sb.WriteString("Business name: " + in.Profile.Name + "\n")
		if in.Profile.Contact != "" {
			sb.WriteString("Contact: " + in.Profile.Contact + "\n")
		}
		if in.Profile.BusinessHours != "" {
			sb.WriteString("Business hours: " + in.Profile.BusinessHours + "\n")
		}
		sb.WriteString("\n")
	}

	if len(in.Chunks) > 0 {
		sb.WriteString("## Relevant knowledge\n")
		n := len(in.Chunks)
		if n > maxPromptChunks {
			n = maxPromptChunks
		}
		for i := 0; i < n; i++ {
			content := in.Chunks[i].Text
			if len(content) > maxChunkChars {
				content = content[:maxChunkChars]
			}
			sb.WriteString(content)
			sb.WriteString("\n---\n")
		}
		sb.WriteString("\n")
	}

	if len(in.Products) > 0 {
		sb.WriteString(renderProducts(in.Products))
	}

	if in.Profile != nil && in.Profile.BookingEnabled {
		sb.WriteString("## Booking\n")
		sb.WriteString("The customer can book an appointment. ")
		if in.Profile.BookingSlots != "" {
			sb.WriteString("Available slots: " + in.Profile.BookingSlots + ". ")
		}
		sb.WriteString("Offer to book when it would help.\n\n")
	}

	if in.MediaText != "" {
		sb.WriteString("## Attached media transcript\n")
		sb.WriteString(in.MediaText + "\n")
		if in.MediaLanguage != "" {
			sb.WriteString("Detected language: " + in.MediaLanguage + "\n")
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// renderProducts lists products and teaches the model the image tag grammar.
// The tag budget keeps responses from turning into galleries.
func renderProducts(products []model.Product) string {
	var sb strings.Builder
	sb.WriteString("## Products\n")
	n := len(products)
	if n > maxPromptProducts {
		n = maxPromptProducts
	}
	for i := 0; i < n; i++ {
		p := products[i]
		sb.WriteString(fmt.Sprintf("- %s: %s %.2f", p.Name, p.Currency, p.Price))
		if p.Description != "" {
			sb.WriteString(" - " + p.Description)
		}
		if !p.InStock {
			sb.WriteString(" (out of stock)")
		}
		sb.WriteString("\n")
		for _, url := range p.Images {
			sb.WriteString("  image: " + url + "\n")
		}
	}
	sb.WriteString("\nWhen a product image would help the customer, include the tag " +
		"[PRODUCT_IMAGE: <url>] on its own using an image url listed above. " +
		"Use at most " + fmt.Sprint(maxPromptProducts) + " tags per response.\n\n")
	return sb.String()
}

// BuildHistory converts stored messages into provider chat turns, newest
// last, bounded to the most recent window.
func (b *PromptBuilder) BuildHistory(history []model.Message) []model.Message {
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	return history
}
