package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.ResponseCacheTTL)
	assert.Equal(t, 8*time.Second, cfg.ResponseDebounce)
	assert.InDelta(t, 0.5, cfg.SimilarityThreshold, 1e-9)
	assert.Empty(t, cfg.PromptStylePolicy, "stock policy text applies when unset")
	assert.Empty(t, cfg.PromptHandoffPolicy)
}

func TestLoadPromptPolicyFromEnv(t *testing.T) {
	t.Setenv("PROMPT_STYLE_POLICY", "Answer in at most two sentences.")
	t.Setenv("PROMPT_HANDOFF_POLICY", "Escalate billing questions to a human.")

	cfg := Load()
	assert.Equal(t, "Answer in at most two sentences.", cfg.PromptStylePolicy)
	assert.Equal(t, "Escalate billing questions to a human.", cfg.PromptHandoffPolicy)
}

func TestLoadModelTablesFromJSON(t *testing.T) {
	t.Setenv("MODEL_DAILY_LIMITS", `{"openai":{"gpt-4o":500}}`)
	t.Setenv("MODEL_ALTERNATIVES", `{"openai":{"gpt-4o":["gpt-4o-mini"]}}`)

	cfg := Load()
	assert.Equal(t, 500, cfg.ModelDailyLimits["openai"]["gpt-4o"])
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.ModelAlternatives["openai"]["gpt-4o"])
}
