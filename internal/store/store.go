package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaydesk/relaydesk/internal/model/convo"
)

// Store holds every conversation for the process lifetime, keyed by the
// normalized conversation identifier. Append-only: no message is ever
// mutated or removed.
type Store struct {
	mu            sync.RWMutex
	conversations map[string][]convo.Message
	lastTimestamp int64
}

// New bootstraps an empty in-memory store.
func New() *Store {
	return &Store{
		conversations: make(map[string][]convo.Message),
	}
}

// Append normalizes rawID, creates the conversation bucket on first use and
// appends a message stamped with the current wall clock. Timestamps are
// clamped so they never decrease in insertion order, even if the clock
// steps backwards. Returns the resolved identifier and the stored message.
func (s *Store) Append(rawID, body string, direction convo.Direction) (string, convo.Message) {
	id := convo.Normalize(rawID)

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := time.Now().UnixMilli()
	if ts < s.lastTimestamp {
		ts = s.lastTimestamp
	}
	s.lastTimestamp = ts

	msg := convo.Message{
		ID:        uuid.NewString(),
		Body:      body,
		Direction: direction,
		Timestamp: ts,
	}
	s.conversations[id] = append(s.conversations[id], msg)
	return id, msg
}

// Messages returns a copy of the stored sequence for one conversation.
func (s *Store) Messages(rawID string) []convo.Message {
	id := convo.Normalize(rawID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.conversations[id]
	if !ok {
		return nil
	}
	copied := make([]convo.Message, len(messages))
	copy(copied, messages)
	return copied
}

// Snapshot returns a full read-only copy of every conversation, used when a
// new viewer attaches.
func (s *Store) Snapshot() map[string][]convo.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string][]convo.Message, len(s.conversations))
	for id, messages := range s.conversations {
		copied := make([]convo.Message, len(messages))
		copy(copied, messages)
		snapshot[id] = copied
	}
	return snapshot
}
