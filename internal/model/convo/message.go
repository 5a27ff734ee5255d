package convo

import "strings"

// Direction classifies who produced a message.
type Direction string

const (
	// DirectionInbound marks messages received from the remote party.
	DirectionInbound Direction = "inbound"
	// DirectionOutbound marks already-sent automation messages mirrored for audit.
	DirectionOutbound Direction = "outbound"
	// DirectionOperator marks messages composed live through the console.
	DirectionOperator Direction = "operator"
)

// Ingestable reports whether the direction may be injected through the
// webhook gateway. Operator messages can only originate from the console.
func (d Direction) Ingestable() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// Message is one immutable turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Direction Direction `json:"direction"`
	Timestamp int64     `json:"timestamp"`
}

// Normalize reduces a raw phone-like identifier to its canonical conversation
// key: digits only, preserving a leading plus sign. Normalize is idempotent,
// and an empty or unusable input normalizes to the empty key.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
