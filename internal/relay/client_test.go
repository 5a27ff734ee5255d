package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaydesk/relaydesk/internal/relay"
	"github.com/relaydesk/relaydesk/pkg/logging"
)

func newClient() *relay.Client {
	return relay.New(relay.Config{Logger: logging.New("error")})
}

func TestRelaySuccess(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"accepted":true}`))
	}))
	defer srv.Close()

	result := newClient().Relay(context.Background(), srv.URL, map[string]string{"conversationId": "+1555", "body": "hi"})

	require.True(t, result.OK)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, `{"accepted":true}`, result.ResponseExcerpt)
	require.Empty(t, result.Error)
	require.Equal(t, "hi", received["body"])
}

func TestRelayNon2xxReportedAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	result := newClient().Relay(context.Background(), srv.URL, map[string]string{"conversationId": "x"})

	require.False(t, result.OK)
	require.Equal(t, http.StatusBadGateway, result.StatusCode)
	require.Contains(t, result.ResponseExcerpt, "nope")
	require.NotEmpty(t, result.Error)
}

func TestRelayExcerptTruncatedAt1000(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer srv.Close()

	result := newClient().Relay(context.Background(), srv.URL, nil)

	require.True(t, result.OK)
	require.Len(t, result.ResponseExcerpt, 1000)
}

func TestRelayUnreachableDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	result := newClient().Relay(context.Background(), srv.URL, map[string]string{"conversationId": "x"})

	require.False(t, result.OK)
	require.Zero(t, result.StatusCode)
	require.NotEmpty(t, result.Error)
}

func TestRelayEmptyDestination(t *testing.T) {
	result := newClient().Relay(context.Background(), "  ", nil)

	require.False(t, result.OK)
	require.Equal(t, relay.ErrNoDestination.Error(), result.Error)
}
