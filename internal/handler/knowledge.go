package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/middleware"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/internal/retrieval"
	"github.com/omnireply-ai/messaging-platform/internal/service"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

// KnowledgeHandler manages knowledge base content and indexing.
type KnowledgeHandler struct {
	store   *service.KnowledgeStore
	indexer *retrieval.Indexer
	logger  *logger.Logger
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(store *service.KnowledgeStore, indexer *retrieval.Indexer, log *logger.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{store: store, indexer: indexer, logger: log}
}

// Upsert handles PUT /api/v1/knowledge. The entry is stored and reindexed
// synchronously so the next retrieval sees fresh chunks.
func (h *KnowledgeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := middleware.GetCompanyID(ctx)

	var kb model.KnowledgeBase
	if err := json.NewDecoder(r.Body).Decode(&kb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTitle(kb.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if kb.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	kb.CompanyID = companyID

	stored := h.store.Put(&kb)
	if err := h.indexer.Reindex(ctx, *stored); err != nil {
		h.logger.Error("reindex failed",
			zap.String("knowledge_base_id", stored.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to index knowledge base")
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// Reindex handles POST /api/v1/knowledge/{id}/reindex
func (h *KnowledgeHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := middleware.GetCompanyID(ctx)
	knowledgeBaseID := chi.URLParam(r, "id")

	kb, ok := h.store.Get(companyID, knowledgeBaseID)
	if !ok {
		writeError(w, http.StatusNotFound, "knowledge base not found")
		return
	}

	if err := h.indexer.Reindex(ctx, *kb); err != nil {
		h.logger.Error("reindex failed",
			zap.String("knowledge_base_id", kb.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to index knowledge base")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "indexed"})
}

// List handles GET /api/v1/knowledge
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := middleware.GetCompanyID(ctx)

	bases, err := h.store.ActiveBases(ctx, companyID, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list knowledge bases")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"knowledge_bases": bases})
}
