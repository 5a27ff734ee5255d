package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/relaydesk/relaydesk/internal/service/console"
	"github.com/relaydesk/relaydesk/pkg/logging"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler serves the live feed over a WebSocket for clients that
// cannot hold an SSE stream. Frames carry the same events as /events.
type WebSocketHandler struct {
	svc      *console.Service
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewWebSocket creates the WebSocket live-feed handler.
func NewWebSocket(svc *console.Service, logger *logging.Logger) *WebSocketHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebSocketHandler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/events/ws", h.handleWebSocket)
}

// frame is one WebSocket message mirroring an SSE frame.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.AttachViewer()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.svc.DetachViewer(sub)
		h.logger.Warn("events: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	defer h.svc.DetachViewer(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	// Drain the client side only to process control frames and detect close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
	}()

	h.logger.Info("events: websocket viewer attached", "subscription", sub.ID)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("events: websocket viewer detached", "subscription", sub.ID)
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(frame{Event: ev.Name, Data: ev.Data}); err != nil {
				return
			}
		}
	}
}
