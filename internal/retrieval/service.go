// Package retrieval implements the semantic knowledge retrieval layer:
// vector similarity over indexed chunks with keyword and full-content
// fallbacks, plus catalog product search.
package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/llm"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
	"github.com/omnireply-ai/messaging-platform/pkg/metrics"
)

// KnowledgeRepository is the persistence surface the retrieval service reads.
type KnowledgeRepository interface {
	// ActiveBases returns the company's active knowledge bases, restricted
	// to the scope ids when scope is non-empty.
	ActiveBases(ctx context.Context, companyID string, scope []string) ([]model.KnowledgeBase, error)

	// Chunks returns all chunks belonging to active knowledge bases in scope.
	Chunks(ctx context.Context, companyID string, scope []string) ([]model.KnowledgeChunk, error)

	// ReplaceChunks deletes a knowledge base's chunks and stores the new set.
	ReplaceChunks(ctx context.Context, knowledgeBaseID string, chunks []model.KnowledgeChunk) error
}

const (
	// fullContentMaxChars bounds the everything-we-have fallback used when
	// nothing has been indexed yet.
	fullContentMaxChars = 6000
)

// Service performs retrieval-augmented context assembly.
type Service struct {
	repo     KnowledgeRepository
	embedder llm.Embedder
	logger   *logger.Logger
}

// NewService creates a retrieval service. The embedder may be nil, which
// forces keyword fallback for every query.
func NewService(repo KnowledgeRepository, embedder llm.Embedder, log *logger.Logger) *Service {
	return &Service{repo: repo, embedder: embedder, logger: log}
}

// GetContext returns up to topK knowledge chunks relevant to the query.
// Degradation order: vector similarity, keyword search, full content. An
// empty knowledge base with at least one active entry never yields an empty
// result; only "nothing relevant" does.
func (s *Service) GetContext(ctx context.Context, companyID, query string, topK int, scope []string) ([]model.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}

	chunks, err := s.repo.Chunks(ctx, companyID, scope)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		// Nothing indexed yet: fall back to raw knowledge-base content so a
		// fresh tenant still gets answers grounded in what they entered.
		metrics.RecordRetrieval("full_content")
		return s.fullContent(ctx, companyID, scope)
	}

	embedded := false
	var queryVec []float32
	if s.embedder != nil {
		queryVec, err = s.embedder.EmbedQuery(ctx, query)
		if err != nil {
			s.logger.Warn("query embedding failed, using keyword search",
				zap.String("company_id", companyID),
				zap.Error(err),
			)
		} else {
			embedded = true
		}
	}

	if !embedded {
		metrics.RecordRetrieval("keyword")
		return s.keywordSearch(ctx, companyID, query, topK, scope)
	}

	type scored struct {
		chunk model.KnowledgeChunk
		score float64
	}

	results := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		results = append(results, scored{
			chunk: chunk,
			score: CosineSimilarity(queryVec, chunk.Embedding),
		})
	}

	if len(results) == 0 {
		// Chunks exist but none carry embeddings.
		metrics.RecordRetrieval("keyword")
		return s.keywordSearch(ctx, companyID, query, topK, scope)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	metrics.RecordRetrieval("vector")
	out := make([]model.RetrievedChunk, 0, len(results))
	for _, r := range results {
		score := r.score
		out = append(out, model.RetrievedChunk{
			Text:       r.chunk.Text,
			Title:      r.chunk.Title,
			Category:   r.chunk.Category,
			Similarity: &score,
			SourceID:   r.chunk.KnowledgeBaseID,
		})
	}
	return out, nil
}

// keywordSearch is the scoreless substring fallback over raw knowledge
// content, ranked by each entry's static priority.
func (s *Service) keywordSearch(ctx context.Context, companyID, query string, limit int, scope []string) ([]model.RetrievedChunk, error) {
	bases, err := s.repo.ActiveBases(ctx, companyID, scope)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	var matched []model.KnowledgeBase
	for _, kb := range bases {
		if needle == "" {
			continue
		}
		if strings.Contains(strings.ToLower(kb.Title), needle) ||
			strings.Contains(strings.ToLower(kb.Content), needle) {
			matched = append(matched, kb)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]model.RetrievedChunk, 0, len(matched))
	for _, kb := range matched {
		out = append(out, model.RetrievedChunk{
			Text:     kb.Content,
			Title:    kb.Title,
			Category: kb.Category,
			SourceID: kb.ID,
		})
	}
	return out, nil
}

// fullContent returns every active entry verbatim, bounded, for companies
// with nothing indexed yet.
func (s *Service) fullContent(ctx context.Context, companyID string, scope []string) ([]model.RetrievedChunk, error) {
	bases, err := s.repo.ActiveBases(ctx, companyID, scope)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(bases, func(i, j int) bool {
		return bases[i].Priority > bases[j].Priority
	})

	var out []model.RetrievedChunk
	total := 0
	for _, kb := range bases {
		content := kb.Content
		if total+len(content) > fullContentMaxChars {
			remaining := fullContentMaxChars - total
			if remaining <= 0 {
				break
			}
			content = content[:remaining]
		}
		total += len(content)
		out = append(out, model.RetrievedChunk{
			Text:     content,
			Title:    kb.Title,
			Category: kb.Category,
			SourceID: kb.ID,
		})
	}
	return out, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors. It
// returns 0.0 on dimension mismatch or when either norm is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
