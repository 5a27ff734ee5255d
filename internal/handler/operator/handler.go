package operator

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydesk/relaydesk/internal/service/console"
	"github.com/relaydesk/relaydesk/pkg/logging"
	"github.com/relaydesk/relaydesk/pkg/utils"
)

// Handler exposes the operator-triggered actions: send, action, stop.
type Handler struct {
	svc    *console.Service
	logger *logging.Logger
}

// New creates the operator handler.
func New(svc *console.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the operator endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/send", h.handleSend)
	r.Post("/action", h.handleAction)
	r.Post("/stop", h.handleStop)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConversationID *string `json:"conversationId"`
		Body           *string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ConversationID == nil || payload.Body == nil {
		utils.RespondError(w, http.StatusBadRequest, "conversationId and body are required")
		return
	}

	_, result, err := h.svc.Send(r.Context(), *payload.ConversationID, *payload.Body)
	if err != nil {
		// The operator echo, if any, already happened and stays visible.
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConversationID *string `json:"conversationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ConversationID == nil {
		utils.RespondError(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	_, result, err := h.svc.Action(r.Context(), *payload.ConversationID)
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

// handleStop relays the fixed stop sentinel. No request body is required.
func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Stop(r.Context())
	if err != nil {
		respondActionError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func respondActionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, console.ErrConversationIDRequired),
		errors.Is(err, console.ErrNoMessageEndpoint),
		errors.Is(err, console.ErrNoActionEndpoint):
		status = http.StatusBadRequest
	}
	utils.RespondJSON(w, status, map[string]interface{}{
		"ok":    false,
		"error": err.Error(),
	})
}
