// Package gcal creates and lists Google Calendar events using a bearer
// token. Token acquisition (OAuth flow or service account) is outside this
// package; it only consumes the resulting access token.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	vmerrors "github.com/verimeet/verimeet/pkg/errors"
	"github.com/verimeet/verimeet/pkg/logging"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// DefaultDurationMinutes is the event length when the caller passes 0.
const DefaultDurationMinutes = 60

// Config holds Google Calendar API settings.
type Config struct {
	Token      string `yaml:"token"`
	CalendarID string `yaml:"calendar_id"`
}

// EventRequest describes an event to create. Empty Date defaults to today,
// empty Time to one hour from now, zero DurationMinutes to an hour.
type EventRequest struct {
	Title           string
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	Description     string
	DurationMinutes int
}

// Event is a calendar event returned by the API.
type Event struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	HTMLLink string `json:"html_link"`
}

// Client talks to the Google Calendar API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	log        logging.Logger
	now        func() time.Time
}

// NewClient creates a calendar client.
func NewClient(cfg Config, log logging.Logger) *Client {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
		now:        time.Now,
	}
}

// IsConfigured reports whether an access token is present.
func (c *Client) IsConfigured() bool {
	return c.cfg.Token != ""
}

// CreateEvent creates a calendar event and returns it with resolved start
// and end times.
func (c *Client) CreateEvent(ctx context.Context, req EventRequest) (*Event, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("google calendar: %w", vmerrors.ErrNotConfigured)
	}

	date := req.Date
	if date == "" {
		date = c.now().Format("2006-01-02")
	}
	startTime := req.Time
	if startTime == "" {
		startTime = c.now().Add(time.Hour).Format("15:04")
	}
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}

	start, err := time.Parse("2006-01-02T15:04", date+"T"+startTime)
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w: bad date/time %q %q", vmerrors.ErrValidation, date, startTime)
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	const stamp = "2006-01-02T15:04:05"
	payload := map[string]interface{}{
		"summary":     req.Title,
		"description": req.Description,
		"start":       map[string]string{"dateTime": start.Format(stamp), "timeZone": "UTC"},
		"end":         map[string]string{"dateTime": end.Format(stamp), "timeZone": "UTC"},
	}

	var created struct {
		ID       string `json:"id"`
		HTMLLink string `json:"htmlLink"`
	}
	path := "/calendars/" + url.PathEscape(c.cfg.CalendarID) + "/events"
	if err := c.post(ctx, path, payload, &created); err != nil {
		return nil, fmt.Errorf("google calendar: create event: %w", err)
	}

	c.log.Info("calendar event created",
		logging.F("event_id", created.ID),
		logging.F("title", req.Title))

	return &Event{
		ID:       created.ID,
		Title:    req.Title,
		Start:    start.Format(stamp),
		End:      end.Format(stamp),
		HTMLLink: created.HTMLLink,
	}, nil
}

// ListUpcomingEvents returns up to maxResults future events in start order.
func (c *Client) ListUpcomingEvents(ctx context.Context, maxResults int) ([]Event, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("google calendar: %w", vmerrors.ErrNotConfigured)
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("timeMin", c.now().UTC().Format(time.RFC3339))
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")

	path := "/calendars/" + url.PathEscape(c.cfg.CalendarID) + "/events?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("google calendar: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	var parsed struct {
		Items []struct {
			ID      string `json:"id"`
			Summary string `json:"summary"`
			Start   struct {
				DateTime string `json:"dateTime"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
			} `json:"end"`
			HTMLLink string `json:"htmlLink"`
		} `json:"items"`
	}
	if err := c.do(req, &parsed); err != nil {
		return nil, fmt.Errorf("google calendar: list events: %w", err)
	}

	events := make([]Event, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		events = append(events, Event{
			ID:       item.ID,
			Title:    item.Summary,
			Start:    item.Start.DateTime,
			End:      item.End.DateTime,
			HTMLLink: item.HTMLLink,
		})
	}
	return events, nil
}

func (c *Client) post(ctx context.Context, path string, payload, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
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

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", vmerrors.ErrMalformedResponse, err)
	}
	return nil
}
