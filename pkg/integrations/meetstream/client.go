// Package meetstream wraps the Meetstream meeting-bot API: sending a bot
// into a meeting, posting into the meeting chat, and polling bot status.
package meetstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	vmerrors "github.com/verimeet/verimeet/pkg/errors"
	"github.com/verimeet/verimeet/pkg/logging"
)

// DefaultBotName is used when a bot is created without an explicit name.
const DefaultBotName = "VeriMeet Assistant"

// Config holds Meetstream API settings. PublicURL is the externally
// reachable base URL of this service; the webhook callback address is
// derived from it.
type Config struct {
	APIURL    string `yaml:"api_url"`
	APIKey    string `yaml:"api_key"`
	PublicURL string `yaml:"public_url"`
}

// Bot describes a meeting bot created or queried via the API.
type Bot struct {
	ID         string `json:"bot_id"`
	Status     string `json:"status"`
	MeetingURL string `json:"meeting_url"`
}

// Client talks to the Meetstream API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        logging.Logger
}

// NewClient creates a Meetstream client.
func NewClient(cfg Config, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != ""
}

// WebhookURL returns the callback address registered with created bots.
func (c *Client) WebhookURL() string {
	return strings.TrimRight(c.cfg.PublicURL, "/") + "/webhook/meetstream"
}

// CreateBot sends a bot into the given Google Meet meeting. The bot will
// deliver transcript fragments to this service's webhook endpoint.
func (c *Client) CreateBot(ctx context.Context, meetingURL, botName string) (*Bot, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("meetstream: %w", vmerrors.ErrNotConfigured)
	}
	if botName == "" {
		botName = DefaultBotName
	}

	payload := map[string]string{
		"meeting_url": meetingURL,
		"bot_name":    botName,
		"webhook_url": c.WebhookURL(),
		"platform":    "google_meet",
	}

	var result Bot
	if err := c.post(ctx, "/v1/bots", payload, &result); err != nil {
		return nil, fmt.Errorf("meetstream: create bot: %w", err)
	}
	if result.MeetingURL == "" {
		result.MeetingURL = meetingURL
	}

	c.log.Info("bot created",
		logging.F("bot_id", result.ID),
		logging.F("status", result.Status))
	return &result, nil
}

// SendChatMessage posts a message into the meeting chat through the bot.
func (c *Client) SendChatMessage(ctx context.Context, botID, message string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("meetstream: %w", vmerrors.ErrNotConfigured)
	}

	c.log.Debug("sending chat message",
		logging.F("bot_id", botID),
		logging.F("preview", truncate(message, 50)))

	payload := map[string]string{"message": message}
	var result struct {
		MessageID string `json:"message_id"`
	}
	if err := c.post(ctx, "/v1/bots/"+botID+"/chat", payload, &result); err != nil {
		return fmt.Errorf("meetstream: send chat message: %w", err)
	}
	return nil
}

// GetBotStatus returns the current state of a bot.
func (c *Client) GetBotStatus(ctx context.Context, botID string) (*Bot, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("meetstream: %w", vmerrors.ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/v1/bots/"+botID, nil)
	if err != nil {
		return nil, fmt.Errorf("meetstream: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	var result Bot
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("meetstream: get bot status: %w", err)
	}
	if result.ID == "" {
		result.ID = botID
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", vmerrors.ErrMalformedResponse, err)
	}
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
