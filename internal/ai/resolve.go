package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

// ConfigRepository is the configuration surface the resolver reads.
type ConfigRepository interface {
	// Personality returns the personality by id, or nil when absent.
	Personality(ctx context.Context, companyID, personalityID string) (*model.Personality, error)

	// ActiveCompanyConfig returns the company's active default AI
	// configuration, or nil when none exists.
	ActiveCompanyConfig(ctx context.Context, companyID string) (*model.CompanyAIConfig, error)

	// CompanyProfile returns the business facts for prompt framing, or nil.
	CompanyProfile(ctx context.Context, companyID string) (*model.CompanyProfile, error)
}

// Resolver merges an explicit personality over the company default into the
// single ResolvedAIConfig shape the rest of the pipeline reasons about.
type Resolver struct {
	repo   ConfigRepository
	logger *logger.Logger
}

// NewResolver creates a resolver.
func NewResolver(repo ConfigRepository, log *logger.Logger) *Resolver {
	return &Resolver{repo: repo, logger: log}
}

// Resolve produces the effective configuration for a turn. A missing or
// inactive personality falls back to the company default with a warning;
// no default at all is NotConfigured; a default with auto-respond off is
// AutoRespondDisabled unless an explicit personality carries the turn.
func (r *Resolver) Resolve(ctx context.Context, companyID, personalityID string) (*model.ResolvedAIConfig, error) {
	var personality *model.Personality
	if personalityID != "" {
		p, err := r.repo.Personality(ctx, companyID, personalityID)
		if err != nil {
			return nil, WrapError(KindNotConfigured, "load personality", err)
		}
		if p == nil || p.CompanyID != companyID || !p.Active {
			r.logger.Warn("personality not usable, falling back to company default",
				zap.String("company_id", companyID),
				zap.String("personality_id", personalityID),
			)
		} else {
			personality = p
		}
	}

	def, err := r.repo.ActiveCompanyConfig(ctx, companyID)
	if err != nil {
		return nil, WrapError(KindNotConfigured, "load company config", err)
	}

	if personality == nil {
		if def == nil {
			return nil, NewError(KindNotConfigured, "no personality and no company default")
		}
		if !def.AutoRespond {
			return nil, NewError(KindAutoRespondDisabled, "company default has auto-respond off")
		}
		return resolveFromDefault(def), nil
	}

	resolved := &model.ResolvedAIConfig{
		CompanyID:           companyID,
		PersonalityID:       personality.ID,
		Provider:            personality.Provider,
		Model:               personality.Model,
		SystemPrompt:        personality.SystemPrompt,
		Tone:                personality.Tone,
		ProhibitedTopics:    personality.ProhibitedTopics,
		CustomInstructions:  personality.CustomInstructions,
		MaxTokens:           personality.MaxTokens,
		Temperature:         personality.Temperature,
		ConfidenceThreshold: personality.ConfidenceThreshold,
		ProductSearch:       personality.ProductSearch,
		RAGTopK:             personality.RAGTopK,
		KnowledgeBaseScope:  personality.KnowledgeBaseScope,
	}

	// The fallback provider is a company-level concern; personalities do
	// not carry one.
	if def != nil {
		resolved.FallbackProvider = def.FallbackProvider
		if resolved.Provider == "" {
			resolved.Provider = def.Provider
		}
		if resolved.Model == "" {
			resolved.Model = def.Model
		}
		if resolved.SystemPrompt == "" {
			resolved.SystemPrompt = def.SystemPrompt
		}
		if resolved.MaxTokens == 0 {
			resolved.MaxTokens = def.MaxTokens
		}
		if resolved.Temperature == 0 {
			resolved.Temperature = def.Temperature
		}
		if resolved.RAGTopK == 0 {
			resolved.RAGTopK = def.RAGTopK
		}
	}

	if resolved.Provider == "" {
		return nil, NewError(KindNotConfigured, "resolved configuration has no provider")
	}
	return resolved, nil
}

func resolveFromDefault(def *model.CompanyAIConfig) *model.ResolvedAIConfig {
	return &model.ResolvedAIConfig{
		CompanyID:           def.CompanyID,
		Provider:            def.Provider,
		Model:               def.Model,
		FallbackProvider:    def.FallbackProvider,
		SystemPrompt:        def.SystemPrompt,
		Tone:                def.Tone,
		ProhibitedTopics:    def.ProhibitedTopics,
		MaxTokens:           def.MaxTokens,
		Temperature:         def.Temperature,
		ConfidenceThreshold: def.ConfidenceThreshold,
		ProductSearch:       def.ProductSearch,
		RAGTopK:             def.RAGTopK,
	}
}
