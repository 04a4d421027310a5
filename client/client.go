// Package client provides the HTTP client for talking to a running
// verimeet server. It handles request construction, retry logic, and
// response decoding for the CLI commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default connection settings.
const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 100 * time.Millisecond
	DefaultMaxBackoff        = 5 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Options configures the APIClient behavior.
type Options struct {
	// RequestTimeout is the per-request timeout.
	RequestTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// InitialBackoff is the initial backoff duration for retries.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration for retries.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultOptions returns Options with default values.
func DefaultOptions() *Options {
	return &Options{
		RequestTimeout:    DefaultRequestTimeout,
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// APIClient talks to a verimeet server over HTTP.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	options    *Options
}

// New creates an APIClient for the given server base URL.
func New(baseURL string, opts *Options) *APIClient {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		options:    opts,
	}
}

// BaseURL returns the configured server base URL.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// HealthInfo is the server health response.
type HealthInfo struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Health checks that the server is up and returns its identity.
func (c *APIClient) Health(ctx context.Context) (*HealthInfo, error) {
	var info HealthInfo
	if err := c.get(ctx, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// BotInfo describes a meeting bot created through the server.
type BotInfo struct {
	Success    bool   `json:"success"`
	BotID      string `json:"bot_id"`
	Status     string `json:"status"`
	MeetingURL string `json:"meeting_url"`
	Error      string `json:"error,omitempty"`
}

// CreateBot asks the server to send a bot into a meeting.
func (c *APIClient) CreateBot(ctx context.Context, meetingURL string) (*BotInfo, error) {
	payload := map[string]string{"meeting_url": meetingURL}
	var info BotInfo
	if err := c.post(ctx, "/api/create-bot", payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SummaryInfo is the current rolling summary for a session.
type SummaryInfo struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

// Summary fetches the rolling summary. An empty botID returns the most
// recent session.
func (c *APIClient) Summary(ctx context.Context, botID string) (*SummaryInfo, error) {
	params := url.Values{}
	if botID != "" {
		params.Set("bot_id", botID)
	}
	var info SummaryInfo
	if err := c.get(ctx, "/api/summary", params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SessionInfo describes a session's accumulated state.
type SessionInfo struct {
	Success       bool   `json:"success"`
	BotID         string `json:"bot_id"`
	State         string `json:"state"`
	MeetingURL    string `json:"meeting_url"`
	Segments      int    `json:"segments"`
	FactsChecked  int    `json:"facts_checked"`
	FactsVerified int    `json:"facts_verified"`
	Intents       int    `json:"intents"`
	Summary       string `json:"summary"`
}

// Session fetches the state of a single session by bot id.
func (c *APIClient) Session(ctx context.Context, botID string) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.get(ctx, "/api/sessions/"+url.PathEscape(botID), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// WebhookEvent is a meeting event posted to the webhook endpoint. Used by
// the simulate command to replay a transcript against a running server.
type WebhookEvent struct {
	EventType    string `json:"event_type"`
	BotID        string `json:"bot_id"`
	Transcript   string `json:"transcript,omitempty"`
	MeetingID    string `json:"meeting_id,omitempty"`
	MeetingTitle string `json:"meeting_title,omitempty"`
	MeetingURL   string `json:"meeting_url,omitempty"`
}

// PostWebhook delivers a meeting event to the server's webhook endpoint.
func (c *APIClient) PostWebhook(ctx context.Context, event WebhookEvent) error {
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}
	if err := c.post(ctx, "/webhook/meetstream", event, &resp); err != nil {
		return err
	}
	if resp.Status != "received" {
		return fmt.Errorf("webhook rejected: %s", resp.Error)
	}
	return nil
}

func (c *APIClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	return c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		return c.do(req, out)
	})
}

func (c *APIClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req, out)
	})
}

func (c *APIClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// Surface the server's error message when it sent one.
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &ServerError{Status: resp.StatusCode, Message: apiErr.Error}
		}
		return &ServerError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ServerError is an HTTP error response from the server.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("server returned HTTP %d: %s", e.Status, e.Message)
}

// Retryable reports whether the error is worth retrying. Client errors
// other than rate limiting are not.
func (e *ServerError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// withRetry executes fn with automatic retry on transient failure, using
// exponential backoff between attempts.
func (c *APIClient) withRetry(ctx context.Context, fn func() error) error {
	backoff := c.options.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.options.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if srvErr, ok := err.(*ServerError); ok && !srvErr.Retryable() {
			return err
		}
		if attempt == c.options.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.options.BackoffMultiplier)
		if backoff > c.options.MaxBackoff {
			backoff = c.options.MaxBackoff
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", c.options.MaxRetries+1, lastErr)
}
