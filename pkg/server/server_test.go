package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verimeet/verimeet/pkg/agent"
	"github.com/verimeet/verimeet/pkg/analysis/facts"
	"github.com/verimeet/verimeet/pkg/analysis/intents"
	"github.com/verimeet/verimeet/pkg/analysis/summary"
	"github.com/verimeet/verimeet/pkg/integrations/meetstream"
)

type stubDetector struct{}

func (stubDetector) DetectFactualStatements(context.Context, string) []facts.Statement { return nil }

type stubIntents struct{}

func (stubIntents) DetectIntents(context.Context, string, string) []intents.Intent { return nil }

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, _, fragment string) string {
	return "summary of: " + fragment
}

func (stubSummarizer) Finalize(context.Context, []string, []summary.FactCheck) string {
	return "final summary"
}

type stubBots struct {
	configured bool
	err        error
	lastURL    string
	lastName   string
}

func (b *stubBots) CreateBot(_ context.Context, meetingURL, botName string) (*meetstream.Bot, error) {
	b.lastURL = meetingURL
	b.lastName = botName
	if b.err != nil {
		return nil, b.err
	}
	return &meetstream.Bot{ID: "bot-77", Status: "joining", MeetingURL: meetingURL}, nil
}

func (b *stubBots) IsConfigured() bool { return b.configured }

func newTestServer(bots BotCreator) (*Server, *agent.Agent) {
	a := agent.New(stubDetector{}, stubIntents{}, stubSummarizer{}, nil)
	s := New(Config{}, a, bots, NewHub(nil), nil)
	return s, a
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, handler http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w, decoded
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(nil)

	w, body := getJSON(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "VeriMeet", body["service"])
}

func TestWebhookTranscript(t *testing.T) {
	s, a := newTestServer(nil)

	w := postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript",
		"bot_id":     "bot-1",
		"transcript": "Alice: hello everyone",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "received"}`, w.Body.String())

	session := a.Registry().Lookup("bot-1")
	require.NotNil(t, session)
	assert.Equal(t, []string{"Alice: hello everyone"}, session.Segments())
	assert.Equal(t, "summary of: Alice: hello everyone", session.Summary())
}

func TestWebhookEmptyTranscriptAcknowledged(t *testing.T) {
	s, a := newTestServer(nil)

	w := postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript",
		"bot_id":     "bot-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, a.Registry().Lookup("bot-1"), "no session created for empty frames")
}

func TestWebhookMeetingEnded(t *testing.T) {
	s, a := newTestServer(nil)

	postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript",
		"bot_id":     "bot-1",
		"transcript": "content",
	})

	w := postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type":    "meeting_ended",
		"bot_id":        "bot-1",
		"meeting_title": "Weekly sync",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, agent.StateFinalized, a.Registry().Lookup("bot-1").State())
}

func TestWebhookTranscriptAfterEndConflict(t *testing.T) {
	s, _ := newTestServer(nil)

	postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript", "bot_id": "bot-1", "transcript": "content",
	})
	postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "meeting_ended", "bot_id": "bot-1",
	})

	w := postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript", "bot_id": "bot-1", "transcript": "late",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.NotEmpty(t, body["error"])
}

func TestWebhookBotJoined(t *testing.T) {
	s, a := newTestServer(nil)

	w := postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type":  "bot_joined",
		"bot_id":      "bot-1",
		"meeting_url": "https://meet.google.com/abc",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://meet.google.com/abc", a.Registry().Lookup("bot-1").MeetingURL())
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	s, _ := newTestServer(nil)

	w := postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "recording_started",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookInvalidJSON(t *testing.T) {
	s, _ := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/meetstream", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBot(t *testing.T) {
	bots := &stubBots{configured: true}
	s, a := newTestServer(bots)

	w := postJSON(t, s.Handler(), "/api/create-bot", map[string]string{
		"meeting_url": "https://meet.google.com/abc-defg-hij",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "bot-77", body["bot_id"])

	session := a.Registry().Lookup("bot-77")
	require.NotNil(t, session)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", session.MeetingURL())
}

func TestCreateBotMissingURL(t *testing.T) {
	s, _ := newTestServer(&stubBots{configured: true})

	w := postJSON(t, s.Handler(), "/api/create-bot", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "meeting_url is required")
}

func TestCreateBotUnconfigured(t *testing.T) {
	s, _ := newTestServer(&stubBots{configured: false})

	w := postJSON(t, s.Handler(), "/api/create-bot", map[string]string{
		"meeting_url": "https://meet.google.com/x",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateBotUpstreamError(t *testing.T) {
	s, _ := newTestServer(&stubBots{configured: true, err: errors.New("meetstream down")})

	w := postJSON(t, s.Handler(), "/api/create-bot", map[string]string{
		"meeting_url": "https://meet.google.com/x",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "meetstream down")
}

func TestSummaryNoSession(t *testing.T) {
	s, _ := newTestServer(nil)

	w, body := getJSON(t, s.Handler(), "/api/summary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No active meeting session", body["error"])
}

func TestSummaryLatestSession(t *testing.T) {
	s, _ := newTestServer(nil)

	postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript", "bot_id": "bot-1", "transcript": "hello",
	})

	_, body := getJSON(t, s.Handler(), "/api/summary")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "summary of: hello", body["summary"])
}

func TestSummaryEmptySessionPlaceholder(t *testing.T) {
	s, _ := newTestServer(nil)

	postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "bot_joined", "bot_id": "bot-1", "meeting_url": "https://meet.example/x",
	})

	_, body := getJSON(t, s.Handler(), "/api/summary")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "No summary yet.", body["summary"])
}

func TestSummaryByBotID(t *testing.T) {
	s, _ := newTestServer(nil)

	postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript", "bot_id": "bot-1", "transcript": "first",
	})
	postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript", "bot_id": "bot-2", "transcript": "second",
	})

	_, body := getJSON(t, s.Handler(), "/api/summary?bot_id=bot-1")
	assert.Equal(t, "summary of: first", body["summary"])
}

func TestSessionEndpoint(t *testing.T) {
	s, _ := newTestServer(nil)

	postJSON(t, s.Handler(), "/webhook/meetstream", map[string]string{
		"event_type": "transcript", "bot_id": "bot-1", "transcript": "hello",
	})

	w, body := getJSON(t, s.Handler(), "/api/sessions/bot-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bot-1", body["bot_id"])
	assert.Equal(t, agent.StateActive, body["state"])
	assert.Equal(t, float64(1), body["segments"])

	w, _ = getJSON(t, s.Handler(), "/api/sessions/ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
