package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaydesk/relaydesk/pkg/logging"
)

// ErrNoDestination reports a relay attempted without a configured endpoint.
var ErrNoDestination = errors.New("relay: no destination endpoint configured")

// excerptLimit caps how much of the destination's response body is surfaced
// back to the caller for diagnostics.
const excerptLimit = 1000

const defaultTimeout = 10 * time.Second

// Result describes the outcome of a single relay attempt. Failures are
// reported here rather than as errors: one best-effort attempt, no retry.
type Result struct {
	OK              bool   `json:"ok"`
	StatusCode      int    `json:"statusCode,omitempty"`
	ResponseExcerpt string `json:"responseExcerpt,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Config controls how the relay client behaves.
type Config struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client posts JSON payloads to externally configured webhook endpoints.
type Client struct {
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates a configured Client with sane defaults.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// Relay POSTs payload as JSON to destination and reports the outcome.
// Transport errors and non-2xx statuses become structured failures; nothing
// propagates as an error past this boundary.
func (c *Client) Relay(ctx context.Context, destination string, payload interface{}) Result {
	if strings.TrimSpace(destination) == "" {
		return Result{Error: ErrNoDestination.Error()}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: fmt.Sprintf("marshal relay payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("build relay request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("relay: attempt failed", "destination", destination, "error", err)
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	excerpt := readExcerpt(resp.Body)
	result := Result{
		OK:              resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode:      resp.StatusCode,
		ResponseExcerpt: excerpt,
	}
	if !result.OK {
		result.Error = fmt.Sprintf("destination returned status %d", resp.StatusCode)
		c.logger.Warn("relay: destination rejected payload", "destination", destination, "status", resp.StatusCode)
	}
	return result
}

func readExcerpt(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, excerptLimit))
	if err != nil {
		return ""
	}
	return string(data)
}
