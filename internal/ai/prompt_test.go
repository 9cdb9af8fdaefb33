package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnireply-ai/messaging-platform/internal/model"
)

func promptConfig() *model.ResolvedAIConfig {
	return &model.ResolvedAIConfig{
		CompanyID:          "co-1",
		Provider:           "openai",
		Model:              "gpt-4o",
		SystemPrompt:       "You are the Acme support assistant.",
		Tone:               "friendly",
		ProhibitedTopics:   []string{"politics"},
		CustomInstructions: "Always greet returning customers.",
	}
}

func TestBuildSystemBlockOrder(t *testing.T) {
	b := NewPromptBuilder(PromptPolicy{Style: "STYLE-POLICY", Handoff: "HANDOFF-POLICY"})
	sim := 0.9
	out := b.BuildSystem(PromptInput{
		Config:     promptConfig(),
		Profile:    &model.CompanyProfile{CompanyID: "co-1", Name: "Acme", BookingEnabled: true},
		CustomerID: "cust-42",
		Chunks:     []model.RetrievedChunk{{Text: "We ship worldwide.", Similarity: &sim}},
		Products:   []model.Product{{Name: "Trail Shoe", Price: 89, Currency: "USD", InStock: true}},
	})

	markers := []string{
		"You are the Acme support assistant.",
		"STYLE-POLICY",
		"HANDOFF-POLICY",
		"Always greet returning customers.",
		"Customer: cust-42",
		"Business name: Acme",
		"We ship worldwide.",
		"Trail Shoe",
		"## Booking",
	}
	prev := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		require.GreaterOrEqual(t, idx, 0, "missing block %q", m)
		assert.Greater(t, idx, prev, "block %q out of order", m)
		prev = idx
	}
}

func TestBuildSystemPolicyPrecedesPersonalityBlocks(t *testing.T) {
	b := NewPromptBuilder(PromptPolicy{Style: "STYLE-POLICY", Handoff: "HANDOFF-POLICY"})
	out := b.BuildSystem(PromptInput{Config: promptConfig()})

	assert.Less(t, strings.Index(out, "STYLE-POLICY"), strings.Index(out, "Tone: friendly"))
	assert.Less(t, strings.Index(out, "HANDOFF-POLICY"), strings.Index(out, "Never discuss: politics"))
}

func TestBuildSystemMediaTranscriptWithLanguage(t *testing.T) {
	b := NewPromptBuilder(PromptPolicy{})
	out := b.BuildSystem(PromptInput{
		Config:        promptConfig(),
		MediaText:     "quiero dos entradas para el sábado",
		MediaLanguage: "es",
	})

	assert.Contains(t, out, "quiero dos entradas")
	assert.Contains(t, out, "Detected language: es")

	noLang := b.BuildSystem(PromptInput{Config: promptConfig(), MediaText: "hello there"})
	assert.NotContains(t, noLang, "Detected language")
}

func TestBuildSystemOmitsCustomerWhenUnknown(t *testing.T) {
	b := NewPromptBuilder(PromptPolicy{})
	out := b.BuildSystem(PromptInput{Config: promptConfig()})
	assert.NotContains(t, out, "Customer:")
}

func TestNewPromptBuilderDefaultsEachFieldIndependently(t *testing.T) {
	def := DefaultPromptPolicy()

	b := NewPromptBuilder(PromptPolicy{Style: "Answer in haiku."})
	assert.Equal(t, "Answer in haiku.", b.policy.Style)
	assert.Equal(t, def.Handoff, b.policy.Handoff, "unset handoff keeps the stock text")

	b = NewPromptBuilder(PromptPolicy{})
	assert.Equal(t, def.Style, b.policy.Style)
	assert.Equal(t, def.Handoff, b.policy.Handoff)
}

func TestBuildHistoryBoundsWindow(t *testing.T) {
	b := NewPromptBuilder(PromptPolicy{})
	history := make([]model.Message, 15)
	for i := range history {
		history[i] = model.Message{ID: string(rune('a' + i))}
	}
	bounded := b.BuildHistory(history)
	require.Len(t, bounded, maxHistoryMessages)
	assert.Equal(t, history[len(history)-1].ID, bounded[len(bounded)-1].ID)
}
