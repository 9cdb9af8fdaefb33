package handler

import (
	"encoding/json"
	"net/http"

	"github.com/omnireply-ai/messaging-platform/internal/middleware"
	"github.com/omnireply-ai/messaging-platform/internal/model"
	"github.com/omnireply-ai/messaging-platform/internal/service"
	"github.com/omnireply-ai/messaging-platform/pkg/logger"
)

// AdminHandler manages tenant configuration: AI defaults, personalities,
// company profiles, products and platform connections.
type AdminHandler struct {
	configs     *service.ConfigStore
	products    *service.ProductStore
	connections *service.ConnectionStore
	logger      *logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(configs *service.ConfigStore, products *service.ProductStore, connections *service.ConnectionStore, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		configs:     configs,
		products:    products,
		connections: connections,
		logger:      log,
	}
}

// PutAIConfig handles PUT /api/v1/admin/ai-config
func (h *AdminHandler) PutAIConfig(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r.Context())

	var cfg model.CompanyAIConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cfg.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}
	cfg.CompanyID = companyID

	h.configs.PutCompanyConfig(&cfg)
	writeJSON(w, http.StatusOK, cfg)
}

// PutPersonality handles PUT /api/v1/admin/personalities
func (h *AdminHandler) PutPersonality(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r.Context())

	var p model.Personality
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTitle(p.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.CompanyID = companyID

	stored := h.configs.PutPersonality(&p)
	writeJSON(w, http.StatusOK, stored)
}

// PutProfile handles PUT /api/v1/admin/profile
func (h *AdminHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r.Context())

	var profile model.CompanyProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile.CompanyID = companyID

	h.configs.PutCompanyProfile(&profile)
	writeJSON(w, http.StatusOK, profile)
}

// PutProduct handles PUT /api/v1/admin/products
func (h *AdminHandler) PutProduct(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r.Context())

	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p.CompanyID = companyID

	stored := h.products.Put(&p)
	writeJSON(w, http.StatusOK, stored)
}

// PutConnection handles PUT /api/v1/admin/connections
func (h *AdminHandler) PutConnection(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.GetCompanyID(r.Context())

	var conn model.PlatformConnection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if conn.Platform == "" {
		writeError(w, http.StatusBadRequest, "platform is required")
		return
	}
	conn.CompanyID = companyID

	stored := h.connections.Put(&conn)
	writeJSON(w, http.StatusOK, stored)
}
