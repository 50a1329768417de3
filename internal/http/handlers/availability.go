package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/internal/availability"
	"github.com/bookline-ai/bookline/pkg/logging"
)

// AvailabilityHandler exposes the slot engine over HTTP for dashboards and
// partner integrations.
type AvailabilityHandler struct {
	engine   *availability.Engine
	validate *validator.Validate
	logger   *logging.Logger
}

// NewAvailabilityHandler wires the availability query endpoint.
func NewAvailabilityHandler(engine *availability.Engine, logger *logging.Logger) *AvailabilityHandler {
	if engine == nil {
		panic("handlers: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{engine: engine, validate: validator.New(), logger: logger}
}

type availabilityRequest struct {
	OrgID           string `json:"org_id" validate:"required,uuid"`
	LocationID      string `json:"location_id" validate:"omitempty,uuid"`
	ServiceID       string `json:"service_id" validate:"required,uuid"`
	DateFrom        string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo          string `json:"date_to" validate:"required,datetime=2006-01-02"`
	StaffID         string `json:"staff_id" validate:"omitempty,uuid"`
	IntervalMinutes int    `json:"interval_minutes" validate:"omitempty,min=5,max=240"`
}

// Query handles POST /api/availability/query.
func (h *AvailabilityHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from, _ := time.Parse("2006-01-02", req.DateFrom)
	to, _ := time.Parse("2006-01-02", req.DateTo)

	slots, err := h.engine.AvailableSlots(r.Context(), availability.Query{
		OrgID:           req.OrgID,
		LocationID:      req.LocationID,
		ServiceID:       req.ServiceID,
		DateFrom:        from,
		DateTo:          to,
		StaffID:         req.StaffID,
		IntervalMinutes: req.IntervalMinutes,
	})
	if err != nil {
		var verr *appointment.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("availability query failed", "error", err, "org_id", req.OrgID)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"slots": slots})
}
