package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bookline-ai/bookline/internal/appointment"
	"github.com/bookline-ai/bookline/pkg/logging"
)

// AppointmentHandler exposes admin appointment mutations. The same conflict
// gate the chat path uses guards these, so a dashboard booking cannot
// double-book either.
type AppointmentHandler struct {
	appointments *appointment.Service
	validate     *validator.Validate
	logger       *logging.Logger
}

// NewAppointmentHandler wires the admin appointment endpoints.
func NewAppointmentHandler(svc *appointment.Service, logger *logging.Logger) *AppointmentHandler {
	if svc == nil {
		panic("handlers: appointment service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentHandler{appointments: svc, validate: validator.New(), logger: logger}
}

type createAppointmentRequest struct {
	OrgID      string  `json:"org_id" validate:"required,uuid"`
	CustomerID string  `json:"customer_id" validate:"required,uuid"`
	ServiceID  string  `json:"service_id" validate:"required,uuid"`
	StaffID    *string `json:"staff_id" validate:"omitempty,uuid"`
	SpotID     *string `json:"spot_id" validate:"omitempty,uuid"`
	Start      string  `json:"start" validate:"required"`
	Confirmed  bool    `json:"confirmed"`
}

// Create handles POST /api/appointments.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		http.Error(w, "start must be RFC3339", http.StatusBadRequest)
		return
	}

	appt, err := h.appointments.Create(r.Context(), appointment.CreateRequest{
		OrgID:      req.OrgID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		SpotID:     req.SpotID,
		Start:      start,
		Confirmed:  req.Confirmed,
	})
	if err != nil {
		h.writeError(w, err, req.OrgID)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

type rescheduleRequest struct {
	OrgID    string  `json:"org_id" validate:"required,uuid"`
	StaffID  *string `json:"staff_id" validate:"omitempty,uuid"`
	SpotID   *string `json:"spot_id" validate:"omitempty,uuid"`
	NewStart string  `json:"new_start" validate:"required"`
}

// Reschedule handles POST /api/appointments/{id}/reschedule.
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.NewStart)
	if err != nil {
		http.Error(w, "new_start must be RFC3339", http.StatusBadRequest)
		return
	}

	appt, err := h.appointments.Reschedule(r.Context(), req.OrgID, id, req.StaffID, req.SpotID, start)
	if err != nil {
		h.writeError(w, err, req.OrgID)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type statusRequest struct {
	OrgID string `json:"org_id" validate:"required,uuid"`
}

// Confirm handles POST /api/appointments/{id}/confirm.
func (h *AppointmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointments.Confirm)
}

// Cancel handles POST /api/appointments/{id}/cancel.
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointments.Cancel)
}

// Complete handles POST /api/appointments/{id}/complete.
func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointments.Complete)
}

func (h *AppointmentHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, orgID, id string) (*appointment.Appointment, error)) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	appt, err := op(r.Context(), req.OrgID, id)
	if err != nil {
		h.writeError(w, err, req.OrgID)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type rateRequest struct {
	OrgID    string  `json:"org_id" validate:"required,uuid"`
	Rating   int     `json:"rating" validate:"required,min=1,max=5"`
	Feedback *string `json:"feedback"`
}

// Rate handles POST /api/appointments/{id}/rating.
func (h *AppointmentHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.appointments.Rate(r.Context(), req.OrgID, id, req.Rating, req.Feedback); err != nil {
		h.writeError(w, err, req.OrgID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, err error, orgID string) {
	switch {
	case appointment.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case appointment.IsConflict(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, appointment.ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	default:
		h.logger.Error("appointment mutation failed", "error", err, "org_id", orgID)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
