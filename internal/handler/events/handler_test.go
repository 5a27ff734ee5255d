package events_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaydesk/relaydesk/internal/handler"
	"github.com/relaydesk/relaydesk/internal/hub"
	"github.com/relaydesk/relaydesk/internal/relay"
	"github.com/relaydesk/relaydesk/internal/service/console"
	settingsreg "github.com/relaydesk/relaydesk/internal/settings"
	"github.com/relaydesk/relaydesk/internal/store"
	"github.com/relaydesk/relaydesk/pkg/logging"
)

type env struct {
	srv *httptest.Server
	svc *console.Service
	st  *store.Store
}

func newEnv(t *testing.T, token string) *env {
	t.Helper()
	logger := logging.New("error")
	st := store.New()
	reg := settingsreg.New(settingsreg.Settings{})
	svc := console.New(st, hub.New(logger), relay.New(relay.Config{Logger: logger}), reg, logger, nil)

	router := handler.NewRouter(handler.RouterConfig{AuthToken: token}, svc, reg, nil, logger)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &env{srv: srv, svc: svc, st: st}
}

// sseFrame is one parsed event/data pair from the stream.
type sseFrame struct {
	event string
	data  []byte
}

func openStream(t *testing.T, e *env, query string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.srv.URL+"/events"+query, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("expected 200 opening stream, got %d", resp.StatusCode)
	}
	cleanup := func() {
		resp.Body.Close()
		cancel()
	}
	return bufio.NewReader(resp.Body), cleanup
}

func readFrame(t *testing.T, r *bufio.Reader) sseFrame {
	t.Helper()
	var frame sseFrame
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			frame.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			frame.data = []byte(strings.TrimPrefix(line, "data: "))
		case line == "":
			if frame.event != "" {
				return frame
			}
		}
	}
}

func ingest(t *testing.T, e *env, conversationID, body string) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"conversationId": conversationID, "body": body})
	resp, err := http.Post(e.srv.URL+"/webhook/incoming", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest: expected 200, got %d", resp.StatusCode)
	}
}

func TestStreamInitThenLiveEvents(t *testing.T) {
	e := newEnv(t, "")
	ingest(t, e, "+1 (555) 000-1111", "before attach")

	r, cleanup := openStream(t, e, "")
	defer cleanup()

	init := readFrame(t, r)
	if init.event != console.EventInit {
		t.Fatalf("first frame must be init, got %q", init.event)
	}
	var snapshot console.InitEvent
	if err := json.Unmarshal(init.data, &snapshot); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if got := len(snapshot.Conversations["+15550001111"]); got != 1 {
		t.Fatalf("init snapshot should hold exactly the pre-attach message, got %d", got)
	}

	ingest(t, e, "+15550001111", "after attach")

	frame := readFrame(t, r)
	if frame.event != console.EventMessage {
		t.Fatalf("expected message event, got %q", frame.event)
	}
	var ev console.MessageEvent
	if err := json.Unmarshal(frame.data, &ev); err != nil {
		t.Fatalf("decode message event: %v", err)
	}
	if ev.ConversationID != "+15550001111" || ev.Body != "after attach" {
		t.Fatalf("unexpected event payload: %+v", ev)
	}
}

func TestStreamReceivesSettingsEvents(t *testing.T) {
	e := newEnv(t, "")
	r, cleanup := openStream(t, e, "")
	defer cleanup()
	readFrame(t, r) // init

	payload := []byte(`{"messageEndpoint":"https://x","actionEndpoint":"https://y"}`)
	resp, err := http.Post(e.srv.URL+"/settings/webhooks", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	resp.Body.Close()

	frame := readFrame(t, r)
	if frame.event != console.EventSettings {
		t.Fatalf("expected settings event, got %q", frame.event)
	}
	var got settingsreg.Settings
	if err := json.Unmarshal(frame.data, &got); err != nil {
		t.Fatalf("decode settings event: %v", err)
	}
	if got.MessageEndpoint != "https://x" || got.ActionEndpoint != "https://y" {
		t.Fatalf("unexpected settings payload: %+v", got)
	}
}

func TestStreamRequiresToken(t *testing.T) {
	e := newEnv(t, "s3cret")

	resp, err := http.Get(e.srv.URL + "/events")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// The query variant lets EventSource clients authenticate.
	r, cleanup := openStream(t, e, "?token=s3cret")
	defer cleanup()
	if frame := readFrame(t, r); frame.event != console.EventInit {
		t.Fatalf("expected init frame, got %q", frame.event)
	}
}

func TestWebSocketVariantCarriesSameFrames(t *testing.T) {
	e := newEnv(t, "")
	ingest(t, e, "555", "pre-attach")

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/events/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read init frame: %v", err)
	}
	if frame.Event != console.EventInit {
		t.Fatalf("first frame must be init, got %q", frame.Event)
	}
	var snapshot console.InitEvent
	if err := json.Unmarshal(frame.Data, &snapshot); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if len(snapshot.Conversations["555"]) != 1 {
		t.Fatalf("unexpected init snapshot: %+v", snapshot.Conversations)
	}

	ingest(t, e, "555", "live")
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read message frame: %v", err)
	}
	if frame.Event != console.EventMessage {
		t.Fatalf("expected message frame, got %q", frame.Event)
	}
}
