package webhook

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydesk/relaydesk/internal/model/convo"
	"github.com/relaydesk/relaydesk/internal/service/console"
	"github.com/relaydesk/relaydesk/pkg/logging"
	"github.com/relaydesk/relaydesk/pkg/utils"
)

// Handler is the ingestion gateway external automations deliver messages to.
// All three routes are thin facades over the console's single validated
// append path.
type Handler struct {
	svc    *console.Service
	logger *logging.Logger
}

// New creates the ingestion handler.
func New(svc *console.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the ingestion endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/incoming", h.handleIncoming)
	r.Post("/webhook/outgoing", h.handleOutgoing)
	r.Post("/webhook/message", h.handleGeneric)
}

type deliveryPayload struct {
	ConversationID *string `json:"conversationId"`
	Body           *string `json:"body"`
	Direction      string  `json:"direction"`
}

func (h *Handler) handleIncoming(w http.ResponseWriter, r *http.Request) {
	h.deliver(w, r, convo.DirectionInbound, false)
}

func (h *Handler) handleOutgoing(w http.ResponseWriter, r *http.Request) {
	h.deliver(w, r, convo.DirectionOutbound, false)
}

func (h *Handler) handleGeneric(w http.ResponseWriter, r *http.Request) {
	h.deliver(w, r, "", true)
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request, direction convo.Direction, explicitDirection bool) {
	var payload deliveryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondInvalid(w, "invalid request body", explicitDirection)
		return
	}

	if payload.ConversationID == nil {
		respondInvalid(w, "conversationId is required", explicitDirection)
		return
	}
	if payload.Body == nil {
		respondInvalid(w, "body is required", explicitDirection)
		return
	}
	if explicitDirection {
		direction = convo.Direction(payload.Direction)
	}

	id, err := h.svc.Ingest(r.Context(), *payload.ConversationID, *payload.Body, direction)
	if err != nil {
		if errors.Is(err, console.ErrConversationIDRequired) || errors.Is(err, console.ErrInvalidDirection) {
			respondInvalid(w, err.Error(), explicitDirection)
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"conversationId": id,
	})
}

// respondInvalid rejects a delivery with the expected payload shape alongside
// the validation failure.
func respondInvalid(w http.ResponseWriter, message string, explicitDirection bool) {
	expected := `{"conversationId": string, "body": string}`
	if explicitDirection {
		expected = `{"conversationId": string, "body": string, "direction": "inbound"|"outbound"}`
	}
	utils.RespondJSON(w, http.StatusBadRequest, map[string]string{
		"error":    message,
		"expected": expected,
	})
}
