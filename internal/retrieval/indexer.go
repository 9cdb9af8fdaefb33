package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/llm"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

// Indexer regenerates a knowledge base's chunks. Old chunks are replaced
// wholesale; a failed embedding leaves the chunk unembedded rather than
// aborting the reindex, so retrieval degrades instead of losing content.
type Indexer struct {
	repo     KnowledgeRepository
	chunker  *Chunker
	embedder llm.Embedder
	logger   *logger.Logger
}

// NewIndexer creates an indexer.
func NewIndexer(repo KnowledgeRepository, chunker *Chunker, embedder llm.Embedder, log *logger.Logger) *Indexer {
	return &Indexer{repo: repo, chunker: chunker, embedder: embedder, logger: log}
}

// Reindex chunks and embeds one knowledge base.
func (ix *Indexer) Reindex(ctx context.Context, kb model.KnowledgeBase) error {
	pieces := ix.chunker.Split(kb.Content)

	chunks := make([]model.KnowledgeChunk, 0, len(pieces))
	for i, text := range pieces {
		chunk := model.KnowledgeChunk{
			ID:              uuid.Must(uuid.NewV7()).String(),
			KnowledgeBaseID: kb.ID,
			CompanyID:       kb.CompanyID,
			Index:           i,
			Text:            text,
			Title:           kb.Title,
			Category:        kb.Category,
		}

		if ix.embedder != nil {
			vec, err := ix.embedder.EmbedQuery(ctx, text)
			if err != nil {
				ix.logger.Warn("chunk embedding failed",
					zap.String("knowledge_base_id", kb.ID),
					zap.Int("chunk_index", i),
					zap.Error(err),
				)
			} else {
				chunk.Embedding = vec
			}
		}
		chunks = append(chunks, chunk)
	}

	if err := ix.repo.ReplaceChunks(ctx, kb.ID, chunks); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}

	ix.logger.Info("knowledge base reindexed",
		zap.String("knowledge_base_id", kb.ID),
		zap.String("company_id", kb.CompanyID),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}
