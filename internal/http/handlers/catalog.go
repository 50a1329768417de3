package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bookline-ai/bookline/internal/catalog"
	"github.com/bookline-ai/bookline/pkg/logging"
)

// CatalogHandler exposes the org's physical layout so admin callers can
// discover the spot ids the appointment API accepts.
type CatalogHandler struct {
	catalog  *catalog.Repository
	validate *validator.Validate
	logger   *logging.Logger
}

// NewCatalogHandler wires the catalog layout endpoint.
func NewCatalogHandler(repo *catalog.Repository, logger *logging.Logger) *CatalogHandler {
	if repo == nil {
		panic("handlers: catalog repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{catalog: repo, validate: validator.New(), logger: logger}
}

type layoutRequest struct {
	OrgID string `validate:"required,uuid"`
}

// Layout handles GET /api/catalog/layout: the primary location and its spots.
func (h *CatalogHandler) Layout(w http.ResponseWriter, r *http.Request) {
	req := layoutRequest{OrgID: r.URL.Query().Get("org_id")}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	location, err := h.catalog.GetPrimaryLocation(r.Context(), req.OrgID)
	if err != nil {
		if errors.Is(err, catalog.ErrNoLocations) {
			http.Error(w, "no locations configured", http.StatusNotFound)
			return
		}
		h.logger.Error("layout lookup failed", "error", err, "org_id", req.OrgID)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	spots, err := h.catalog.ListSpots(r.Context(), req.OrgID, location.ID)
	if err != nil {
		h.logger.Error("spot listing failed", "error", err, "org_id", req.OrgID)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"location": location, "spots": spots})
}
