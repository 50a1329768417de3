package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bookline-ai/bookline/internal/router"
	"github.com/bookline-ai/bookline/pkg/logging"
)

// SimulateHandler drives the router without a provider: the response text
// comes back in the HTTP body and nothing is transmitted. Used by demos and
// integration checks.
type SimulateHandler struct {
	router   *router.Router
	validate *validator.Validate
	logger   *logging.Logger
}

// NewSimulateHandler wires the simulation endpoint.
func NewSimulateHandler(rt *router.Router, logger *logging.Logger) *SimulateHandler {
	if rt == nil {
		panic("handlers: router required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SimulateHandler{router: rt, validate: validator.New(), logger: logger}
}

type simulateRequest struct {
	ProviderMessageID string `json:"provider_message_id" validate:"required"`
	From              string `json:"from" validate:"required"`
	To                string `json:"to" validate:"required"`
	Body              string `json:"body" validate:"required"`
	DisplayName       string `json:"display_name"`
}

// Simulate handles POST /internal/simulate.
func (h *SimulateHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.router.Route(r.Context(), router.Inbound{
		ProviderMessageID: req.ProviderMessageID,
		From:              req.From,
		To:                req.To,
		Body:              req.Body,
		DisplayName:       req.DisplayName,
		ReceivedAt:        time.Now(),
		SuppressTransmit:  true,
	})
	if err != nil {
		if errors.Is(err, router.ErrConversationBusy) {
			http.Error(w, "conversation busy", http.StatusConflict)
			return
		}
		h.logger.Error("simulate routing failed", "error", err)
		http.Error(w, "routing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}
