package ai

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/llm"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
	"github.com/omnireply-ai/messaging-platform/pkg/metrics"
)

const (
	// DefaultSimilarityThreshold drops weakly related vector matches.
	// Unscored fallback chunks are never filtered.
	DefaultSimilarityThreshold = 0.5

	// defaultProviderTimeout bounds a single provider call.
	defaultProviderTimeout = 60 * time.Second

	// recentContextMessages is how many prior customer turns feed short-query
	// expansion for product search.
	recentContextMessages = 3
)

// Retriever is the knowledge-context surface the orchestrator consumes.
type Retriever interface {
	GetContext(ctx context.Context, companyID, query string, topK int, scope []string) ([]model.RetrievedChunk, error)
}

// ProductSearcher is the catalog surface the orchestrator consumes.
type ProductSearcher interface {
	HasPurchaseIntent(texts ...string) bool
	ExpandShortQuery(query, recentContext string) string
	Search(ctx context.Context, companyID, query string, filters model.ProductFilters, limit int) ([]model.Product, error)
}

// FilterExtractor turns free text into structured product filters.
type FilterExtractor func(query string) model.ProductFilters

// HistoryProvider supplies prior conversation turns.
type HistoryProvider interface {
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// Orchestrator runs the full response pipeline for one customer turn:
// resolve config, gather context, check cache and quota, call the provider
// with fallback, post-process, record usage.
type Orchestrator struct {
	resolver  *Resolver
	retriever Retriever
	products  ProductSearcher
	filters   FilterExtractor
	history   HistoryProvider
	providers *llm.Registry
	limiter   *RateLimiter
	cache     *ResponseCache
	prompts   *PromptBuilder
	images    ImageFetcher
	logger    *logger.Logger

	timeout             time.Duration
	similarityThreshold float64
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithProviderTimeout overrides the per-call provider timeout.
func WithProviderTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithSimilarityThreshold overrides the vector relevance cutoff.
func WithSimilarityThreshold(t float64) OrchestratorOption {
	return func(o *Orchestrator) { o.similarityThreshold = t }
}

// NewOrchestrator wires the pipeline. The image fetcher may be nil, which
// disables the vision path.
func NewOrchestrator(
	resolver *Resolver,
	retriever Retriever,
	products ProductSearcher,
	filters FilterExtractor,
	history HistoryProvider,
	providers *llm.Registry,
	limiter *RateLimiter,
	cache *ResponseCache,
	prompts *PromptBuilder,
	images ImageFetcher,
	log *logger.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		resolver:            resolver,
		retriever:           retriever,
		products:            products,
		filters:             filters,
		history:             history,
		providers:           providers,
		limiter:             limiter,
		cache:               cache,
		prompts:             prompts,
		images:              images,
		logger:              log,
		timeout:             defaultProviderTimeout,
		similarityThreshold: DefaultSimilarityThreshold,
	}
	if o.filters == nil {
		o.filters = func(string) model.ProductFilters { return model.ProductFilters{} }
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RespondRequest is one turn to answer.
type RespondRequest struct {
	Conversation  *model.Conversation
	Message       model.Message
	PersonalityID string
}

// hasMediaContext reports whether the turn carries media-derived context.
// Such turns bypass the response cache entirely.
func hasMediaContext(msg model.Message) bool {
	return len(msg.Media) > 0 || msg.Metadata.MediaText != ""
}

// Respond produces an AI answer for the turn or a typed pipeline error.
func (o *Orchestrator) Respond(ctx context.Context, req RespondRequest) (*Answer, error) {
	conv := req.Conversation
	msg := req.Message

	cfg, err := o.resolver.Resolve(ctx, conv.CompanyID, req.PersonalityID)
	if err != nil {
		return nil, err
	}

	profile, err := o.resolver.repo.CompanyProfile(ctx, conv.CompanyID)
	if err != nil {
		o.logger.Warn("company profile unavailable",
			zap.String("company_id", conv.CompanyID), zap.Error(err))
		profile = nil
	}

	history := o.loadHistory(ctx, conv.ID)

	// The image caption is the effective query for product-image lookups;
	// otherwise it only stands in when the message has no text.
	query := msg.Content
	if msg.Metadata.MediaText != "" && (query == "" || msg.Metadata.ProductImageSearch) {
		query = msg.Metadata.MediaText
	}

	chunks := o.retrieveKnowledge(ctx, cfg, query)
	products := o.retrieveProducts(ctx, cfg, query, msg, history)

	media := hasMediaContext(msg)
	var cacheKey string
	if o.cache != nil && !media {
		cacheKey = o.cache.Key(conv.CompanyID, msg.Content, chunkSources(chunks), conv.ID)
		if text, ok := o.cache.Get(ctx, cacheKey); ok {
			cleaned, imgs := ExtractProductImages(text)
			return &Answer{
				Text:         cleaned,
				ImagesToSend: imgs,
				Provider:     cfg.Provider,
				Model:        cfg.Model,
				Cached:       true,
			}, nil
		}
	}

	system := o.prompts.BuildSystem(PromptInput{
		Config:        cfg,
		Profile:       profile,
		CustomerID:    conv.CustomerID,
		Chunks:        chunks,
		Products:      products,
		History:       history,
		MediaText:     msg.Metadata.MediaText,
		MediaLanguage: msg.Metadata.MediaLanguage,
	})

	chatReq := &llm.CompletionRequest{
		Model:       cfg.Model,
		System:      system,
		Messages:    o.buildChat(ctx, history, msg),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	resp, provider, err := o.callWithFallback(ctx, cfg, chatReq)
	if err != nil {
		return nil, err
	}

	cleaned, imgs := ExtractProductImages(resp.Content)
	answer := &Answer{
		Text:         cleaned,
		ImagesToSend: imgs,
		Provider:     provider,
		Model:        resp.Model,
		TokensIn:     resp.TokensIn,
		TokensOut:    resp.TokensOut,
	}

	if cacheKey != "" {
		if err := o.cache.Set(ctx, cacheKey, resp.Content); err != nil {
			o.logger.Warn("response cache write failed", zap.Error(err))
		}
	}
	return answer, nil
}

func (o *Orchestrator) loadHistory(ctx context.Context, conversationID string) []model.Message {
	if o.history == nil {
		return nil
	}
	history, err := o.history.RecentMessages(ctx, conversationID, maxHistoryMessages)
	if err != nil {
		o.logger.Warn("history load failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil
	}
	return history
}

// retrieveKnowledge fetches context and applies the similarity cutoff.
// Retrieval failure degrades to an empty context, never fails the turn.
func (o *Orchestrator) retrieveKnowledge(ctx context.Context, cfg *model.ResolvedAIConfig, query string) []model.RetrievedChunk {
	if o.retriever == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	chunks, err := o.retriever.GetContext(ctx, cfg.CompanyID, query, cfg.RAGTopK, cfg.KnowledgeBaseScope)
	if err != nil {
		o.logger.Warn("knowledge retrieval failed, answering without context",
			zap.String("company_id", cfg.CompanyID), zap.Error(err))
		return nil
	}

	kept := chunks[:0]
	for _, c := range chunks {
		if c.Similarity != nil && *c.Similarity < o.similarityThreshold {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// retrieveProducts runs the catalog search when the config enables it and
// the message shows purchase intent.
func (o *Orchestrator) retrieveProducts(ctx context.Context, cfg *model.ResolvedAIConfig, query string, msg model.Message, history []model.Message) []model.Product {
	if o.products == nil || !cfg.ProductSearch {
		return nil
	}
	if !o.products.HasPurchaseIntent(query, msg.Metadata.MediaText) && !msg.Metadata.ProductImageSearch {
		return nil
	}

	expanded := o.products.ExpandShortQuery(query, recentCustomerText(history))
	products, err := o.products.Search(ctx, cfg.CompanyID, expanded, o.filters(expanded), 0)
	if err != nil {
		o.logger.Warn("product search failed",
			zap.String("company_id", cfg.CompanyID), zap.Error(err))
		return nil
	}
	return products
}

// recentCustomerText joins the last few customer turns for short-query
// expansion.
func recentCustomerText(history []model.Message) string {
	var parts []string
	for i := len(history) - 1; i >= 0 && len(parts) < recentContextMessages; i-- {
		if history[i].Sender == model.SenderCustomer && history[i].Content != "" {
			parts = append([]string{history[i].Content}, parts...)
		}
	}
	return strings.Join(parts, " ")
}

// buildChat converts stored history plus the current turn into provider
// messages, fetching inline images for the vision path.
func (o *Orchestrator) buildChat(ctx context.Context, history []model.Message, msg model.Message) []llm.ChatMessage {
	bounded := o.prompts.BuildHistory(history)
	chat := make([]llm.ChatMessage, 0, len(bounded)+1)
	for _, m := range bounded {
		role := "user"
		if m.Sender == model.SenderAI || m.Sender == model.SenderAgent {
			role = "assistant"
		}
		if m.Content == "" {
			continue
		}
		chat = append(chat, llm.ChatMessage{Role: role, Content: m.Content})
	}

	current := llm.ChatMessage{Role: "user", Content: msg.Content}
	if current.Content == "" && msg.Metadata.MediaText != "" {
		current.Content = msg.Metadata.MediaText
	}
	if o.images != nil {
		for _, media := range msg.Media {
			if media.Type != model.TypeImage {
				continue
			}
			img, err := o.images.Fetch(ctx, media.URL)
			if err != nil {
				o.logger.Warn("image fetch failed, answering without it",
					zap.String("url", media.URL), zap.Error(err))
				continue
			}
			current.Images = append(current.Images, img)
		}
	}
	if current.Content == "" && len(current.Images) == 0 {
		current.Content = "(no text)"
	}
	return append(chat, current)
}

// callWithFallback performs the provider call: quota check with alternative
// model substitution, the call itself, one fallback-provider retry on
// provider error, usage recording on success. It returns the response and
// the provider name actually used.
func (o *Orchestrator) callWithFallback(ctx context.Context, cfg *model.ResolvedAIConfig, req *llm.CompletionRequest) (*llm.CompletionResponse, string, error) {
	resp, err := o.callProvider(ctx, cfg.Provider, req)
	if err == nil {
		return resp, cfg.Provider, nil
	}
	if IsKind(err, KindRateLimited) || cfg.FallbackProvider == "" || cfg.FallbackProvider == cfg.Provider {
		return nil, "", err
	}

	o.logger.Warn("primary provider failed, trying fallback",
		zap.String("provider", cfg.Provider),
		zap.String("fallback", cfg.FallbackProvider),
		zap.Error(err),
	)

	// The fallback provider uses its own default model, not the primary's.
	fbReq := *req
	fbReq.Model = ""
	resp, fbErr := o.callProvider(ctx, cfg.FallbackProvider, &fbReq)
	if fbErr != nil {
		return nil, "", WrapError(KindProviderError, "fallback provider also failed", fbErr)
	}
	return resp, cfg.FallbackProvider, nil
}

// callProvider runs one quota-checked call against a single provider.
func (o *Orchestrator) callProvider(ctx context.Context, provider string, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	client := o.providers.Get(provider)
	if client == nil {
		return nil, NewError(KindNotConfigured, "no client for provider "+provider)
	}

	mdl := req.Model
	can, usage, err := o.limiter.CanMakeRequest(ctx, provider, mdl)
	if err != nil {
		return nil, WrapError(KindProviderError, "rate limit check", err)
	}
	if !can {
		alt, ok, altErr := o.limiter.AlternativeModel(ctx, provider, mdl)
		if altErr != nil {
			return nil, WrapError(KindProviderError, "alternative model lookup", altErr)
		}
		if !ok {
			e := NewError(KindRateLimited, "daily quota exhausted")
			e.Usage = &usage
			return nil, e
		}
		o.logger.Info("model at quota, substituting alternative",
			zap.String("provider", provider),
			zap.String("model", mdl),
			zap.String("alternative", alt),
		)
		mdl = alt
	}

	callReq := *req
	callReq.Model = mdl

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	var resp *llm.CompletionResponse
	if hasImages(callReq.Messages) && client.SupportsVision() {
		resp, err = client.CompleteWithVision(callCtx, &callReq)
	} else {
		resp, err = client.Complete(callCtx, &callReq)
	}
	if err != nil {
		metrics.RecordAIRequest(provider, mdl, "error", time.Since(start).Seconds(), 0, 0)
		return nil, WrapError(KindProviderError, "provider call", err)
	}
	metrics.RecordAIRequest(provider, mdl, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	if recErr := o.limiter.RecordRequest(ctx, provider, modelOrDefault(resp.Model, mdl)); recErr != nil {
		o.logger.Warn("rate limit record failed", zap.Error(recErr))
	}
	return resp, nil
}

func hasImages(messages []llm.ChatMessage) bool {
	for _, m := range messages {
		if len(m.Images) > 0 {
			return true
		}
	}
	return false
}

func modelOrDefault(got, requested string) string {
	if got != "" {
		return got
	}
	return requested
}

func chunkSources(chunks []model.RetrievedChunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.SourceID)
	}
	return out
}
