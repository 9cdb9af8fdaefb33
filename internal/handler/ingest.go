package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/omnireply-ai/messaging-platform/internal/middleware"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/internal/service"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

// IngestHandler receives normalized inbound messages from the platform
// webhook adapters.
type IngestHandler struct {
	ingest *service.IngestService
	logger *logger.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(ingest *service.IngestService, log *logger.Logger) *IngestHandler {
	return &IngestHandler{ingest: ingest, logger: log}
}

// Receive handles POST /api/v1/ingest/{connectionID}
func (h *IngestHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	connectionID := chi.URLParam(r, "connectionID")

	if err := middleware.ValidateConnectionID(connectionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in model.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.ConnectionID = connectionID

	if in.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	if in.Text == "" && len(in.Media) == 0 {
		writeError(w, http.StatusBadRequest, "message has no content")
		return
	}
	if in.Text != "" {
		if err := middleware.ValidateMessageContent(in.Text); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	stored, err := h.ingest.Ingest(ctx, middleware.GetCompanyID(ctx), &in)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown connection")
			return
		}
		h.logger.Error("ingest failed",
			zap.String("connection_id", connectionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to ingest message")
		return
	}

	writeJSON(w, http.StatusAccepted, stored)
}
