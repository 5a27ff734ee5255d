package events

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydesk/relaydesk/internal/service/console"
	"github.com/relaydesk/relaydesk/pkg/logging"
	"github.com/relaydesk/relaydesk/pkg/utils"
)

// Handler attaches live viewers to the fanout hub over SSE.
type Handler struct {
	svc    *console.Service
	logger *logging.Logger
}

// New creates the events handler.
func New(svc *console.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the live-feed endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleEvents)
}

// handleEvents holds the connection open and streams every hub event as an
// SSE frame. The first frame is always the init snapshot.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := h.svc.AttachViewer()
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer h.svc.DetachViewer(sub)

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	h.logger.Info("events: viewer attached", "subscription", sub.ID)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("events: viewer detached", "subscription", sub.ID)
			return
		case ev := <-sub.Events():
			utils.SendSSEEvent(w, flusher, ev.Name, ev.Data)
		}
	}
}
