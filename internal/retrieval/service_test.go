package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

type fakeKnowledgeRepo struct {
	bases  []model.KnowledgeBase
	chunks []model.KnowledgeChunk
}

func (r *fakeKnowledgeRepo) ActiveBases(ctx context.Context, companyID string, scope []string) ([]model.KnowledgeBase, error) {
	var out []model.KnowledgeBase
	for _, kb := range r.bases {
		if kb.CompanyID != companyID || !kb.Active {
			continue
		}
		if len(scope) > 0 && !inScope(kb.ID, scope) {
			continue
		}
		out = append(out, kb)
	}
	return out, nil
}

func (r *fakeKnowledgeRepo) Chunks(ctx context.Context, companyID string, scope []string) ([]model.KnowledgeChunk, error) {
	var out []model.KnowledgeChunk
	for _, c := range r.chunks {
		if c.CompanyID != companyID {
			continue
		}
		if len(scope) > 0 && !inScope(c.KnowledgeBaseID, scope) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeKnowledgeRepo) ReplaceChunks(ctx context.Context, kbID string, chunks []model.KnowledgeChunk) error {
	kept := r.chunks[:0]
	for _, c := range r.chunks {
		if c.KnowledgeBaseID != kbID {
			kept = append(kept, c)
		}
	}
	r.chunks = append(kept, chunks...)
	return nil
}

func inScope(id string, scope []string) bool {
	for _, s := range scope {
		if s == id {
			return true
		}
	}
	return false
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vec, e.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	return log
}

func TestGetContext_VectorSimilarityOrdering(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		chunks: []model.KnowledgeChunk{
			{CompanyID: "c1", KnowledgeBaseID: "kb1", Text: "orthogonal", Embedding: []float32{0, 1, 0}},
			{CompanyID: "c1", KnowledgeBaseID: "kb1", Text: "aligned", Embedding: []float32{1, 0, 0}},
			{CompanyID: "c1", KnowledgeBaseID: "kb1", Text: "close", Embedding: []float32{0.9, 0.1, 0}},
		},
	}
	svc := NewService(repo, &fakeEmbedder{vec: []float32{1, 0, 0}}, testLogger(t))

	got, err := svc.GetContext(context.Background(), "c1", "shipping", 2, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "aligned", got[0].Text)
	assert.Equal(t, "close", got[1].Text)
	require.NotNil(t, got[0].Similarity)
	assert.InDelta(t, 1.0, *got[0].Similarity, 1e-9)
}

func TestGetContext_EmbeddingFailureFallsBackToKeyword(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		bases: []model.KnowledgeBase{
			{ID: "kb1", CompanyID: "c1", Title: "Shipping policy", Content: "We ship worldwide.", Active: true, Priority: 1},
			{ID: "kb2", CompanyID: "c1", Title: "Returns", Content: "30 day returns.", Active: true, Priority: 2},
		},
		chunks: []model.KnowledgeChunk{
			{CompanyID: "c1", KnowledgeBaseID: "kb1", Text: "We ship worldwide.", Embedding: []float32{1, 0}},
		},
	}
	svc := NewService(repo, &fakeEmbedder{err: errors.New("provider down")}, testLogger(t))

	got, err := svc.GetContext(context.Background(), "c1", "shipping", 5, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Shipping policy", got[0].Title)
	assert.Nil(t, got[0].Similarity, "keyword results carry no score")
}

func TestGetContext_NoChunksReturnsFullContent(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		bases: []model.KnowledgeBase{
			{ID: "kb1", CompanyID: "c1", Title: "About us", Content: "We sell plants.", Active: true},
		},
	}
	svc := NewService(repo, &fakeEmbedder{vec: []float32{1}}, testLogger(t))

	got, err := svc.GetContext(context.Background(), "c1", "anything at all", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, got, "empty index must not yield empty context")
	assert.Equal(t, "We sell plants.", got[0].Text)
	assert.Nil(t, got[0].Similarity)
}

func TestGetContext_ScopeRestriction(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		chunks: []model.KnowledgeChunk{
			{CompanyID: "c1", KnowledgeBaseID: "kb1", Text: "in scope", Embedding: []float32{1, 0}},
			{CompanyID: "c1", KnowledgeBaseID: "kb2", Text: "out of scope", Embedding: []float32{1, 0}},
		},
	}
	svc := NewService(repo, &fakeEmbedder{vec: []float32{1, 0}}, testLogger(t))

	got, err := svc.GetContext(context.Background(), "c1", "q", 5, []string{"kb1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "in scope", got[0].Text)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Degenerate inputs return 0.0 rather than dividing by zero.
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 1}, []float32{1, 1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestIndexer_ReindexReplacesWholesale(t *testing.T) {
	repo := &fakeKnowledgeRepo{
		chunks: []model.KnowledgeChunk{
			{ID: "old", CompanyID: "c1", KnowledgeBaseID: "kb1", Text: "stale"},
		},
	}
	ix := NewIndexer(repo, NewChunker(100), &fakeEmbedder{vec: []float32{1, 0}}, testLogger(t))

	kb := model.KnowledgeBase{ID: "kb1", CompanyID: "c1", Title: "T", Content: "First paragraph.\n\nSecond paragraph."}
	require.NoError(t, ix.Reindex(context.Background(), kb))

	chunks, err := repo.Chunks(context.Background(), "c1", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.NotEqual(t, "old", chunks[0].ID)
	assert.Equal(t, []float32{1, 0}, chunks[0].Embedding)
}
