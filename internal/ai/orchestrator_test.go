package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnireply-ai/messaging-platform/internal/kv"
	"github.com/omnireply-ai/messaging-platform/internal/llm"
	"github.com/omnireply-ai/messaging-platform/internal/model"
)

type fakeClient struct {
	name     string
	vision   bool
	reply    string
	err      error
	calls    int
	lastReq  *llm.CompletionRequest
	visioned bool
}

func (f *fakeClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply, Model: req.Model, TokensIn: 100, TokensOut: 50}, nil
}

func (f *fakeClient) CompleteWithVision(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.visioned = true
	return f.Complete(ctx, req)
}

func (f *fakeClient) Generate(ctx context.Context, system, user string, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f.Complete(ctx, req)
}

func (f *fakeClient) SupportsVision() bool       { return f.vision }
func (f *fakeClient) ValidateCredentials() error { return nil }
func (f *fakeClient) Name() string               { return f.name }
func (f *fakeClient) Models() []string           { return nil }

type fakeRetriever struct {
	chunks []model.RetrievedChunk
	err    error
	query  string
}

func (f *fakeRetriever) GetContext(ctx context.Context, companyID, query string, topK int, scope []string) ([]model.RetrievedChunk, error) {
	f.query = query
	return f.chunks, f.err
}

type fakeProducts struct {
	intent   bool
	products []model.Product
	query    string
}

func (f *fakeProducts) HasPurchaseIntent(texts ...string) bool { return f.intent }

func (f *fakeProducts) ExpandShortQuery(query, recent string) string {
	if len(query) < 30 && recent != "" {
		return recent + " " + query
	}
	return query
}

func (f *fakeProducts) Search(ctx context.Context, companyID, query string, filters model.ProductFilters, limit int) ([]model.Product, error) {
	f.query = query
	return f.products, nil
}

type fakeHistory struct {
	messages []model.Message
}

func (f *fakeHistory) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	return f.messages, nil
}

type orchestratorFixture struct {
	orch      *Orchestrator
	primary   *fakeClient
	fallback  *fakeClient
	retriever *fakeRetriever
	products  *fakeProducts
	store     *kv.MemoryStore
}

func newFixture(t *testing.T, repo *fakeConfigRepo) *orchestratorFixture {
	t.Helper()
	if repo == nil {
		repo = &fakeConfigRepo{config: activeDefault()}
	}

	primary := &fakeClient{name: "openai", reply: "Hello there."}
	fallback := &fakeClient{name: "anthropic", reply: "Fallback answer."}
	retriever := &fakeRetriever{}
	products := &fakeProducts{}
	store := kv.NewMemoryStore()

	log := testLogger(t)
	orch := NewOrchestrator(
		NewResolver(repo, log),
		retriever,
		products,
		nil,
		&fakeHistory{},
		llm.NewRegistry(primary, fallback),
		NewRateLimiter(store, LimitTable{"openai": {"gpt-4o": 2}}, nil),
		NewResponseCache(store, 0),
		NewPromptBuilder(PromptPolicy{}),
		nil,
		log,
	)
	return &orchestratorFixture{
		orch:      orch,
		primary:   primary,
		fallback:  fallback,
		retriever: retriever,
		products:  products,
		store:     store,
	}
}

func turn(content string) RespondRequest {
	return RespondRequest{
		Conversation: &model.Conversation{ID: "conv-1", CompanyID: "co-1"},
		Message:      model.Message{ID: "msg-1", ConversationID: "conv-1", Content: content, Sender: model.SenderCustomer, Type: model.TypeText},
	}
}

func TestRespondHappyPath(t *testing.T) {
	fx := newFixture(t, nil)
	fx.primary.reply = "Sure!\n[PRODUCT_IMAGE: https://cdn.example.com/a.jpg]\nIt ships tomorrow."

	ans, err := fx.orch.Respond(context.Background(), turn("do you ship?"))
	require.NoError(t, err)
	assert.Equal(t, "openai", ans.Provider)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, ans.ImagesToSend)
	assert.NotContains(t, ans.Text, "PRODUCT_IMAGE")
	assert.False(t, ans.Cached)
	assert.Equal(t, 100, ans.TokensIn)
	assert.Equal(t, 1, fx.primary.calls)
}

func TestRespondCacheHitSkipsProvider(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	first, err := fx.orch.Respond(ctx, turn("what are your hours?"))
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := fx.orch.Respond(ctx, turn("What  are your HOURS?"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, fx.primary.calls, "second turn served from cache")
}

func TestRespondMediaBypassesCache(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	req := turn("what is this?")
	req.Message.Media = []model.Media{{Type: model.TypeImage, URL: "https://cdn.example.com/photo.jpg"}}

	_, err := fx.orch.Respond(ctx, req)
	require.NoError(t, err)
	_, err = fx.orch.Respond(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.primary.calls, "media turns never hit the cache")
}

func TestRespondSimilarityFilter(t *testing.T) {
	fx := newFixture(t, nil)
	strong, weak := 0.9, 0.2
	fx.retriever.chunks = []model.RetrievedChunk{
		{Text: "strong match", Similarity: &strong, SourceID: "kb-1"},
		{Text: "weak match", Similarity: &weak, SourceID: "kb-2"},
		{Text: "keyword fallback entry", SourceID: "kb-3"},
	}

	_, err := fx.orch.Respond(context.Background(), turn("shipping policy?"))
	require.NoError(t, err)
	require.NotNil(t, fx.primary.lastReq)
	assert.Contains(t, fx.primary.lastReq.System, "strong match")
	assert.NotContains(t, fx.primary.lastReq.System, "weak match")
	assert.Contains(t, fx.primary.lastReq.System, "keyword fallback entry",
		"unscored fallback chunks survive the similarity filter")
}

func TestRespondProductSearchGatedByIntent(t *testing.T) {
	fx := newFixture(t, nil)
	fx.products.products = []model.Product{{Name: "Trail Shoe", Price: 89, Currency: "USD", InStock: true}}

	_, err := fx.orch.Respond(context.Background(), turn("tell me a joke"))
	require.NoError(t, err)
	assert.NotContains(t, fx.primary.lastReq.System, "Trail Shoe")

	fx.products.intent = true
	_, err = fx.orch.Respond(context.Background(), turn("how much is the trail shoe?"))
	require.NoError(t, err)
	assert.Contains(t, fx.primary.lastReq.System, "Trail Shoe")
	assert.Contains(t, fx.primary.lastReq.System, "[PRODUCT_IMAGE:")
}

func TestRespondProductImageSearchQueriesByCaption(t *testing.T) {
	fx := newFixture(t, nil)

	req := turn("look at this")
	req.Message.Media = []model.Media{{Type: model.TypeImage, URL: "https://cdn.example.com/photo.jpg"}}
	req.Message.Metadata.MediaText = "red running shoes size 42"
	req.Message.Metadata.ProductImageSearch = true

	_, err := fx.orch.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "red running shoes size 42", fx.retriever.query,
		"the image caption is the retrieval query for product-image lookups")
	assert.Equal(t, "red running shoes size 42", fx.products.query)
}

func TestRespondCaptionOnlyWhenTextMissing(t *testing.T) {
	fx := newFixture(t, nil)

	req := turn("do you have this in blue?")
	req.Message.Metadata.MediaText = "voice note transcript"

	_, err := fx.orch.Respond(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "do you have this in blue?", fx.retriever.query,
		"message text stays the query when no product-image search is flagged")
}

func TestRespondRateLimitedUsesAlternative(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	limiter := NewRateLimiter(fx.store,
		LimitTable{"openai": {"gpt-4o": 1, "gpt-4o-mini": 10}},
		AlternativesTable{"openai": {"gpt-4o": {"gpt-4o-mini"}}},
	)
	fx.orch.limiter = limiter
	require.NoError(t, limiter.RecordRequest(ctx, "openai", "gpt-4o"))

	ans, err := fx.orch.Respond(ctx, turn("hello"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", ans.Model)
}

func TestRespondRateLimitedNoAlternative(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, fx.orch.limiter.RecordRequest(ctx, "openai", "gpt-4o"))
	require.NoError(t, fx.orch.limiter.RecordRequest(ctx, "openai", "gpt-4o"))

	_, err := fx.orch.Respond(ctx, turn("hello"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindRateLimited))
	assert.Equal(t, 0, fx.primary.calls)
	assert.Equal(t, 0, fx.fallback.calls, "quota exhaustion does not trigger provider fallback")

	var pipelineErr *Error
	require.ErrorAs(t, err, &pipelineErr)
	require.NotNil(t, pipelineErr.Usage)
	assert.Equal(t, int64(2), pipelineErr.Usage.Used)
}

func TestRespondProviderErrorFallsBack(t *testing.T) {
	fx := newFixture(t, nil)
	fx.primary.err = errors.New("upstream 500")

	ans, err := fx.orch.Respond(context.Background(), turn("hello"))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", ans.Provider)
	assert.Equal(t, "Fallback answer.", ans.Text)
	assert.Equal(t, 1, fx.fallback.calls)
	assert.Empty(t, fx.fallback.lastReq.Model, "fallback uses its own default model")
}

func TestRespondBothProvidersFail(t *testing.T) {
	fx := newFixture(t, nil)
	fx.primary.err = errors.New("upstream 500")
	fx.fallback.err = errors.New("also down")

	_, err := fx.orch.Respond(context.Background(), turn("hello"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindProviderError))
}

func TestRespondNotConfigured(t *testing.T) {
	fx := newFixture(t, &fakeConfigRepo{})

	_, err := fx.orch.Respond(context.Background(), turn("hello"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotConfigured))
	assert.Equal(t, 0, fx.primary.calls)
}

func TestRespondRecordsUsageAfterSuccess(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.orch.Respond(ctx, turn("hello"))
	require.NoError(t, err)

	_, usage, err := fx.orch.limiter.CanMakeRequest(ctx, "openai", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.Used)
}

func TestRespondRetrievalFailureDegrades(t *testing.T) {
	fx := newFixture(t, nil)
	fx.retriever.err = errors.New("index unavailable")

	ans, err := fx.orch.Respond(context.Background(), turn("hello"))
	require.NoError(t, err, "retrieval failure never fails the turn")
	assert.Equal(t, "Hello there.", ans.Text)
}
