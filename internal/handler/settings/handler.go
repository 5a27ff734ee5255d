package settings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydesk/relaydesk/internal/service/console"
	settingsreg "github.com/relaydesk/relaydesk/internal/settings"
	"github.com/relaydesk/relaydesk/pkg/logging"
	"github.com/relaydesk/relaydesk/pkg/utils"
)

// Handler serves the configuration registry to the operator UI.
type Handler struct {
	svc      *console.Service
	registry *settingsreg.Registry
	token    string
	logger   *logging.Logger
}

// New creates the settings handler. token is the shared access secret embedded
// into the derived ingestion URLs, empty when auth is disabled.
func New(svc *console.Service, registry *settingsreg.Registry, token string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, registry: registry, token: token, logger: logger}
}

// RegisterRoutes mounts the settings endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.handleGet)
	r.Post("/settings/webhooks", h.handleUpdateWebhooks)
}

// settingsResponse flattens the stored configuration and the per-request
// derived callback URLs into one object.
type settingsResponse struct {
	settingsreg.Settings
	settingsreg.IngestionURLs
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, settingsResponse{
		Settings:      h.registry.Get(),
		IngestionURLs: settingsreg.DeriveIngestionURLs(r, h.token),
	})
}

func (h *Handler) handleUpdateWebhooks(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MessageEndpoint *string `json:"messageEndpoint"`
		ActionEndpoint  *string `json:"actionEndpoint"`
		// Legacy single-field variant, kept for older automations.
		WebhookURL *string `json:"webhookUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "webhook endpoints must be strings")
		return
	}

	patch := settingsreg.Patch{
		MessageEndpoint: payload.MessageEndpoint,
		ActionEndpoint:  payload.ActionEndpoint,
	}
	if patch.MessageEndpoint == nil && payload.WebhookURL != nil {
		patch.MessageEndpoint = payload.WebhookURL
	}
	if patch.Empty() {
		utils.RespondError(w, http.StatusBadRequest, "at least one of messageEndpoint, actionEndpoint is required")
		return
	}

	updated := h.svc.UpdateSettings(patch)
	utils.RespondJSON(w, http.StatusOK, updated)
}
