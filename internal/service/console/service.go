package console

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/relaydesk/relaydesk/internal/hub"
	"github.com/relaydesk/relaydesk/internal/model/convo"
	"github.com/relaydesk/relaydesk/internal/observability/metrics"
	"github.com/relaydesk/relaydesk/internal/relay"
	"github.com/relaydesk/relaydesk/internal/settings"
	"github.com/relaydesk/relaydesk/internal/store"
	"github.com/relaydesk/relaydesk/pkg/logging"
)

var (
	ErrConversationIDRequired = errors.New("conversationId is required")
	ErrBodyRequired           = errors.New("body is required")
	ErrInvalidDirection       = errors.New("direction must be one of inbound, outbound")
	ErrNoMessageEndpoint      = errors.New("no message webhook endpoint configured")
	ErrNoActionEndpoint       = errors.New("no action webhook endpoint configured")
)

// Event names pushed through the fanout hub.
const (
	EventInit     = "init"
	EventMessage  = "message"
	EventSettings = "settings"
)

// stopPayload is the fixed control payload relayed on Stop. It carries no
// conversation or user text.
var stopPayload = map[string]string{"control": "stop"}

// Relayer issues one best-effort outbound delivery.
type Relayer interface {
	Relay(ctx context.Context, destination string, payload interface{}) relay.Result
}

// Service ties the conversation store, fanout hub, relay client and settings
// registry together. It is the single validated append path behind every
// ingestion variant and every operator action.
//
// mu serializes each state mutation together with its broadcast (and viewer
// attach with its snapshot), so events reach viewers in exactly the order
// mutations happened and a fresh viewer's init frame never overlaps a live
// event.
type Service struct {
	mu       sync.Mutex
	store    *store.Store
	hub      *hub.Hub
	relayer  Relayer
	settings *settings.Registry
	logger   *logging.Logger
	metrics  *metrics.ConsoleMetrics
}

// New wires the console service. metrics may be nil.
func New(st *store.Store, h *hub.Hub, relayer Relayer, reg *settings.Registry, logger *logging.Logger, m *metrics.ConsoleMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    st,
		hub:      h,
		relayer:  relayer,
		settings: reg,
		logger:   logger,
		metrics:  m,
	}
}

// MessageEvent is the fanout frame for one stored message.
type MessageEvent struct {
	ConversationID string          `json:"conversationId"`
	ID             string          `json:"id"`
	Body           string          `json:"body"`
	Direction      convo.Direction `json:"direction"`
	Timestamp      int64           `json:"timestamp"`
}

// InitEvent is the first frame a newly attached viewer receives.
type InitEvent struct {
	Conversations map[string][]convo.Message `json:"conversations"`
	Settings      settings.Settings          `json:"settings"`
}

// Ingest validates and appends one externally delivered message, then fans
// the append out to viewers. Returns the normalized conversation identifier.
func (s *Service) Ingest(_ context.Context, rawID, body string, direction convo.Direction) (string, error) {
	if strings.TrimSpace(rawID) == "" {
		return "", ErrConversationIDRequired
	}
	if !direction.Ingestable() {
		return "", ErrInvalidDirection
	}

	id, _ := s.appendAndBroadcast(rawID, body, direction)
	s.metrics.ObserveIngest(string(direction))
	s.logger.Info("console: message ingested", "conversation_id", id, "direction", direction)
	return id, nil
}

// Send appends the operator's message as a local echo, then relays it to the
// configured message endpoint. The echo happens unconditionally before the
// relay attempt: the operator sees their own message immediately even if the
// downstream delivery fails.
func (s *Service) Send(ctx context.Context, rawID, body string) (string, relay.Result, error) {
	if strings.TrimSpace(rawID) == "" {
		return "", relay.Result{}, ErrConversationIDRequired
	}

	id, _ := s.appendAndBroadcast(rawID, body, convo.DirectionOperator)
	s.metrics.ObserveIngest(string(convo.DirectionOperator))

	destination := s.settings.Get().MessageEndpoint
	if destination == "" {
		return id, relay.Result{}, ErrNoMessageEndpoint
	}

	result := s.relayer.Relay(ctx, destination, map[string]string{
		"conversationId": id,
		"body":           body,
	})
	s.metrics.ObserveRelay("send", result.OK)
	return id, result, nil
}

// Action relays an out-of-band trigger carrying only the conversation
// identifier to the action endpoint. No store mutation, no echo.
func (s *Service) Action(ctx context.Context, rawID string) (string, relay.Result, error) {
	if strings.TrimSpace(rawID) == "" {
		return "", relay.Result{}, ErrConversationIDRequired
	}

	id := convo.Normalize(rawID)
	destination := s.settings.Get().ActionEndpoint
	if destination == "" {
		return id, relay.Result{}, ErrNoActionEndpoint
	}

	result := s.relayer.Relay(ctx, destination, map[string]string{
		"conversationId": id,
	})
	s.metrics.ObserveRelay("action", result.OK)
	return id, result, nil
}

// Stop relays the fixed stop sentinel to the message endpoint. Unlike Send it
// performs no store mutation, so no viewer sees a message event.
func (s *Service) Stop(ctx context.Context) (relay.Result, error) {
	destination := s.settings.Get().MessageEndpoint
	if destination == "" {
		return relay.Result{}, ErrNoMessageEndpoint
	}

	result := s.relayer.Relay(ctx, destination, stopPayload)
	s.metrics.ObserveRelay("stop", result.OK)
	return result, nil
}

// UpdateSettings applies the patch and broadcasts the updated configuration
// so every attached viewer converges immediately.
func (s *Service) UpdateSettings(patch settings.Patch) settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.settings.Update(patch)
	s.hub.Broadcast(EventSettings, updated)
	s.metrics.ObserveBroadcast(EventSettings)
	s.logger.Info("console: settings updated")
	return updated
}

// AttachViewer registers a live viewer whose first frame is an init event
// holding the full store snapshot plus current settings. The snapshot and the
// registration happen under the same lock as mutations, so the viewer sees
// each message exactly once: either inside init or as a later event.
func (s *Service) AttachViewer() (*hub.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	init, err := hub.NewEvent(EventInit, InitEvent{
		Conversations: s.store.Snapshot(),
		Settings:      s.settings.Get(),
	})
	if err != nil {
		return nil, err
	}

	sub := s.hub.Attach(init)
	s.metrics.ViewerAttached()
	return sub, nil
}

// DetachViewer removes a viewer from the broadcast set.
func (s *Service) DetachViewer(sub *hub.Subscription) {
	s.hub.Detach(sub)
	s.metrics.ViewerDetached()
}

func (s *Service) appendAndBroadcast(rawID, body string, direction convo.Direction) (string, convo.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, msg := s.store.Append(rawID, body, direction)
	s.hub.Broadcast(EventMessage, MessageEvent{
		ConversationID: id,
		ID:             msg.ID,
		Body:           msg.Body,
		Direction:      msg.Direction,
		Timestamp:      msg.Timestamp,
	})
	s.metrics.ObserveBroadcast(EventMessage)
	return id, msg
}
