package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/relaydesk/relaydesk/pkg/logging"
)

// subscriptionBuffer bounds how many undelivered events a slow viewer may
// accumulate before broadcasts start skipping it.
const subscriptionBuffer = 32

// Event is one frame pushed to attached viewers. Data is serialized exactly
// once per broadcast and shared by every subscription.
type Event struct {
	Name string
	Data []byte
}

// NewEvent marshals payload into a broadcastable frame.
func NewEvent(name string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", name, err)
	}
	return Event{Name: name, Data: data}, nil
}

// Subscription is one viewer's channel into the hub.
type Subscription struct {
	ID string
	ch chan Event
}

// Events exposes the receive side of the subscription.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Hub maintains the set of currently connected viewers and pushes every
// event to all of them, best effort.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	logger *logging.Logger
}

// New creates an empty hub.
func New(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

// Attach registers a new viewer and queues the given initial events ahead of
// any later broadcast, so a fresh viewer never waits for the next mutation
// to learn current state.
func (h *Hub) Attach(initial ...Event) *Subscription {
	sub := &Subscription{
		ID: uuid.NewString(),
		ch: make(chan Event, subscriptionBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ev := range initial {
		sub.ch <- ev
	}
	h.subs[sub.ID] = sub
	return sub
}

// Detach removes a viewer from the broadcast set. The subscription channel
// is left open; an in-flight broadcast may still complete a buffered send,
// which the departing viewer simply never reads.
func (h *Hub) Detach(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, sub.ID)
	h.mu.Unlock()
}

// Broadcast serializes payload once and delivers the same bytes to every
// attached viewer. A viewer whose buffer is full is skipped for this event;
// delivery to the others is unaffected.
func (h *Hub) Broadcast(name string, payload interface{}) {
	ev, err := NewEvent(name, payload)
	if err != nil {
		h.logger.Error("hub: dropping broadcast", "event", name, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("hub: viewer lagging, event skipped", "event", name, "subscription", sub.ID)
		}
	}
}

// Viewers reports how many subscriptions are currently attached.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
