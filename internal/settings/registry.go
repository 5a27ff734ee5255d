package settings

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Settings is the process-wide relay destination configuration.
type Settings struct {
	MessageEndpoint string `json:"messageEndpoint"`
	ActionEndpoint  string `json:"actionEndpoint"`
}

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	MessageEndpoint *string
	ActionEndpoint  *string
}

// Empty reports whether the patch carries no fields at all.
func (p Patch) Empty() bool {
	return p.MessageEndpoint == nil && p.ActionEndpoint == nil
}

// Registry owns the mutable destination configuration. It is created by the
// composition root and handed by reference to whoever needs it; there is no
// ambient global.
type Registry struct {
	mu      sync.RWMutex
	current Settings
}

// New creates a registry seeded with initial values.
func New(initial Settings) *Registry {
	return &Registry{current: initial}
}

// Get returns the current settings.
func (r *Registry) Get() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Update applies the provided fields, trimming whitespace, and returns the
// updated settings. Re-applying the same values is a no-op by construction.
func (r *Registry) Update(p Patch) Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.MessageEndpoint != nil {
		r.current.MessageEndpoint = strings.TrimSpace(*p.MessageEndpoint)
	}
	if p.ActionEndpoint != nil {
		r.current.ActionEndpoint = strings.TrimSpace(*p.ActionEndpoint)
	}
	return r.current
}

// IngestionURLs are the absolute webhook callback URLs an external automation
// should post to. They are derived per request and never stored.
type IngestionURLs struct {
	IncomingURL string `json:"incomingUrl"`
	OutgoingURL string `json:"outgoingUrl"`
}

// DeriveIngestionURLs computes the callback URLs scoped to the requesting
// viewer's own origin, carrying the shared token as a query parameter when
// one is configured.
func DeriveIngestionURLs(r *http.Request, token string) IngestionURLs {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = proto
	}

	base := scheme + "://" + r.Host
	suffix := ""
	if token != "" {
		suffix = "?token=" + url.QueryEscape(token)
	}
	return IngestionURLs{
		IncomingURL: base + "/webhook/incoming" + suffix,
		OutgoingURL: base + "/webhook/outgoing" + suffix,
	}
}
