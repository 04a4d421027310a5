package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verimeet/verimeet/pkg/analysis/facts"
	"github.com/verimeet/verimeet/pkg/analysis/intents"
	"github.com/verimeet/verimeet/pkg/analysis/summary"
	vmerrors "github.com/verimeet/verimeet/pkg/errors"
	"github.com/verimeet/verimeet/pkg/events"
	"github.com/verimeet/verimeet/pkg/integrations/gcal"
	"github.com/verimeet/verimeet/pkg/integrations/gmail"
	"github.com/verimeet/verimeet/pkg/integrations/notion"
	"github.com/verimeet/verimeet/pkg/integrations/websearch"
	"github.com/verimeet/verimeet/pkg/observability"
)

type mockDetector struct {
	out []facts.Statement
}

func (m *mockDetector) DetectFactualStatements(context.Context, string) []facts.Statement {
	return m.out
}

type mockVerifier struct {
	configured bool
	result     *websearch.VerificationResult
	err        error
	calls      int
}

func (m *mockVerifier) VerifyFact(_ context.Context, claim, _ string) (*websearch.VerificationResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	r := *m.result
	r.Claim = claim
	return &r, nil
}

func (m *mockVerifier) IsConfigured() bool { return m.configured }

type mockIntentDetector struct {
	out         []intents.Intent
	lastContext string
}

func (m *mockIntentDetector) DetectIntents(_ context.Context, _ string, meetingContext string) []intents.Intent {
	m.lastContext = meetingContext
	return m.out
}

type mockSummarizer struct {
	rolling string
	final   string
}

func (m *mockSummarizer) Summarize(_ context.Context, _, _ string) string { return m.rolling }

func (m *mockSummarizer) Finalize(_ context.Context, _ []string, _ []summary.FactCheck) string {
	return m.final
}

type mockChat struct {
	configured bool
	err        error
	mu         sync.Mutex
	messages   []string
}

func (m *mockChat) SendChatMessage(_ context.Context, _, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *mockChat) IsConfigured() bool { return m.configured }

func (m *mockChat) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

type mockCalendar struct {
	configured bool
	err        error
	lastReq    gcal.EventRequest
	calls      int
}

func (m *mockCalendar) CreateEvent(_ context.Context, req gcal.EventRequest) (*gcal.Event, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &gcal.Event{ID: "evt-1", Title: req.Title, Start: req.Date + "T" + req.Time + ":00"}, nil
}

func (m *mockCalendar) IsConfigured() bool { return m.configured }

type mockEmail struct {
	configured     bool
	err            error
	summaryCalls   int
	simpleCalls    int
	lastRecipients []string
	lastSubject    string
	lastBody       string
	lastFacts      []gmail.VerifiedFact
}

func (m *mockEmail) SendSummaryEmail(_ context.Context, recipients []string, subject, body string, verifiedFacts []gmail.VerifiedFact) (string, error) {
	m.summaryCalls++
	m.lastRecipients = recipients
	m.lastSubject = subject
	m.lastBody = body
	m.lastFacts = verifiedFacts
	if m.err != nil {
		return "", m.err
	}
	return "msg-1", nil
}

func (m *mockEmail) SendSimpleEmail(_ context.Context, recipients []string, subject, body string, _ bool) (string, error) {
	m.simpleCalls++
	m.lastRecipients = recipients
	m.lastSubject = subject
	m.lastBody = body
	if m.err != nil {
		return "", m.err
	}
	return "msg-2", nil
}

func (m *mockEmail) IsConfigured() bool { return m.configured }

type mockPages struct {
	configured bool
	err        error
	calls      int
	lastTitle  string
	lastBody   string
}

func (m *mockPages) CreatePage(_ context.Context, title, content string) (*notion.Page, error) {
	m.calls++
	m.lastTitle = title
	m.lastBody = content
	if m.err != nil {
		return nil, m.err
	}
	return &notion.Page{ID: "page-1", URL: "https://notion.so/page-1"}, nil
}

func (m *mockPages) IsConfigured() bool { return m.configured }

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) byType(t string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var testNow = time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

func newTestAgent(detector FactDetector, intentDetector IntentDetector, summarizer SummaryGenerator, opts ...Option) *Agent {
	if detector == nil {
		detector = &mockDetector{}
	}
	if intentDetector == nil {
		intentDetector = &mockIntentDetector{}
	}
	if summarizer == nil {
		summarizer = &mockSummarizer{rolling: "running summary", final: "final summary"}
	}
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	return New(detector, intentDetector, summarizer, nil, opts...)
}

func TestProcessTranscriptFactPipeline(t *testing.T) {
	detector := &mockDetector{out: []facts.Statement{
		{Claim: "Go was released in 2012", Type: facts.TypeDate},
	}}
	verifier := &mockVerifier{
		configured: true,
		result: &websearch.VerificationResult{
			Success:    true,
			Verified:   true,
			Confidence: websearch.ConfidenceMedium,
			Sources:    []websearch.Source{{Title: "Go blog", URL: "https://go.dev/blog/go1"}},
		},
	}
	chat := &mockChat{configured: true}
	pub := &capturePublisher{}

	a := newTestAgent(detector, nil, nil,
		WithVerifier(verifier), WithChat(chat), WithPublisher(pub))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "Alice: Go was released in 2012")
	require.NoError(t, err)

	assert.Equal(t, 0, result.SegmentIndex)
	assert.Equal(t, 1, result.FactsDetected)
	assert.Equal(t, 1, result.FactsVerified)
	assert.Equal(t, 1, verifier.calls)

	msgs := chat.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "✅ VERIFIED")
	assert.Contains(t, msgs[0], "Go was released in 2012")

	require.Len(t, pub.byType(events.TypeFactCheck), 1)
	require.Len(t, pub.byType(events.TypeTranscript), 1)
}

func TestProcessTranscriptVerifiedCountCumulative(t *testing.T) {
	detector := &mockDetector{out: []facts.Statement{{Claim: "c1"}}}
	verifier := &mockVerifier{
		configured: true,
		result:     &websearch.VerificationResult{Success: true, Verified: true, Confidence: websearch.ConfidenceMedium},
	}

	a := newTestAgent(detector, nil, nil, WithVerifier(verifier))

	r1, err := a.ProcessTranscript(context.Background(), "bot-1", "first")
	require.NoError(t, err)
	assert.Equal(t, 1, r1.FactsVerified)

	r2, err := a.ProcessTranscript(context.Background(), "bot-1", "second")
	require.NoError(t, err)
	assert.Equal(t, 2, r2.FactsVerified, "verified count accumulates across segments")
	assert.Equal(t, 1, r2.SegmentIndex)
}

func TestProcessTranscriptNoVerifierRecordsNothing(t *testing.T) {
	detector := &mockDetector{out: []facts.Statement{{Claim: "unverified claim"}}}
	chat := &mockChat{configured: true}

	a := newTestAgent(detector, nil, nil, WithChat(chat))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	assert.Equal(t, 1, result.FactsDetected)
	assert.Equal(t, 0, result.FactsVerified)
	assert.Empty(t, chat.sent(), "no chat message without a verification result")
	assert.Empty(t, a.Registry().Lookup("bot-1").FactChecks(),
		"unchecked claims stay out of the session record")
}

func TestProcessTranscriptVerifierErrorContinues(t *testing.T) {
	detector := &mockDetector{out: []facts.Statement{{Claim: "c"}}}
	verifier := &mockVerifier{configured: true, err: errors.New("search down")}
	chat := &mockChat{configured: true}

	a := newTestAgent(detector, nil, nil, WithVerifier(verifier), WithChat(chat))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err, "verification failure must not fail the segment")
	assert.Equal(t, 1, result.FactsDetected)
	assert.Equal(t, 0, result.FactsVerified)
	assert.Empty(t, a.Registry().Lookup("bot-1").FactChecks(),
		"failed verifications stay out of the session record")
	assert.Empty(t, chat.sent())
	assert.Equal(t, "running summary", a.Registry().Lookup("bot-1").Summary(),
		"summary still updates after a verification failure")
}

func TestProcessTranscriptUnsuccessfulVerificationNotRecorded(t *testing.T) {
	detector := &mockDetector{out: []facts.Statement{{Claim: "c"}}}
	verifier := &mockVerifier{
		configured: true,
		result:     &websearch.VerificationResult{Success: false, Error: "no provider answered"},
	}

	a := newTestAgent(detector, nil, nil, WithVerifier(verifier))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	assert.Equal(t, 0, result.FactsVerified)
	assert.Empty(t, a.Registry().Lookup("bot-1").FactChecks())
}

func TestProcessTranscriptScheduleIntent(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentSchedule,
		Confidence: intents.ConfidenceHigh,
		Details:    map[string]any{"date": "tomorrow", "time": "2pm", "topic": "Design review"},
	}}}
	cal := &mockCalendar{configured: true}
	chat := &mockChat{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithCalendar(cal), WithChat(chat))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "let's meet tomorrow at 2pm")
	require.NoError(t, err)
	assert.Equal(t, 1, result.IntentsDetected)
	require.Len(t, result.Dispatches, 1)
	assert.Equal(t, DispatchOK, result.Dispatches[0].Status)
	assert.Equal(t, "calendar", result.Dispatches[0].Target)

	assert.Equal(t, "Design review", cal.lastReq.Title)
	assert.Equal(t, "2026-08-31", cal.lastReq.Date, "tomorrow resolved relative to the clock")
	assert.Equal(t, "14:00", cal.lastReq.Time)

	msgs := chat.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "📅 Scheduled: Design review")
}

func TestProcessTranscriptScheduleIntentActionFallbackTitle(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentSchedule,
		Confidence: intents.ConfidenceHigh,
		Action:     "Schedule a follow-up call",
		Details:    map[string]any{"date": "tomorrow"},
	}}}
	cal := &mockCalendar{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithCalendar(cal))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	assert.Equal(t, "Schedule a follow-up call", cal.lastReq.Title,
		"action fills in when no topic was extracted")
}

func TestProcessTranscriptScheduleIntentUsesParsedDateTime(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentSchedule,
		Confidence: intents.ConfidenceHigh,
		Details:    map[string]any{"topic": "Sync"},
		Parsed:     &intents.Resolved{Date: "2026-09-04", Time: "09:30", RawDate: "friday", RawTime: "9:30am"},
	}}}
	cal := &mockCalendar{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithCalendar(cal))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-04", cal.lastReq.Date)
	assert.Equal(t, "09:30", cal.lastReq.Time)
}

func TestProcessTranscriptScheduleIntentUnresolvedDatePreserved(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentSchedule,
		Confidence: intents.ConfidenceHigh,
		Details:    map[string]any{"date": "after the offsite", "topic": "Sync"},
	}}}
	cal := &mockCalendar{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithCalendar(cal))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	assert.Empty(t, cal.lastReq.Date)
	assert.Contains(t, cal.lastReq.Description, "Requested date: after the offsite")
}

func TestProcessTranscriptIntentSkippedWithoutIntegration(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentSchedule,
		Confidence: intents.ConfidenceHigh,
		Details:    map[string]any{},
	}}}

	a := newTestAgent(nil, intentDetector, nil)

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	require.Len(t, result.Dispatches, 1)
	assert.Equal(t, DispatchSkipped, result.Dispatches[0].Status)
}

func TestProcessTranscriptLowConfidenceIntentIgnored(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentEmail,
		Confidence: intents.ConfidenceLow,
		Details:    map[string]any{"recipients": "a@b.c"},
	}}}
	email := &mockEmail{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithEmail(email, nil))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	assert.Zero(t, result.IntentsDetected)
	assert.Zero(t, email.simpleCalls)
}

func TestProcessTranscriptIntentContextIsRollingSummary(t *testing.T) {
	intentDetector := &mockIntentDetector{}
	a := newTestAgent(nil, intentDetector, &mockSummarizer{rolling: "updated summary"})

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "first")
	require.NoError(t, err)
	assert.Equal(t, "", intentDetector.lastContext, "no summary exists for the first segment")

	_, err = a.ProcessTranscript(context.Background(), "bot-1", "second")
	require.NoError(t, err)
	assert.Equal(t, "updated summary", intentDetector.lastContext,
		"detection sees the summary built from earlier segments")
}

func TestProcessTranscriptEmailIntent(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentEmail,
		Confidence: intents.ConfidenceMedium,
		Details:    map[string]any{"recipients": "bob@example.com", "subject": "Notes", "content": "the notes"},
	}}}
	email := &mockEmail{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithEmail(email, nil))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	require.Len(t, result.Dispatches, 1)
	assert.Equal(t, DispatchOK, result.Dispatches[0].Status)
	assert.Equal(t, 1, email.simpleCalls)
	assert.Equal(t, []string{"bob@example.com"}, email.lastRecipients)
	assert.Equal(t, "Notes", email.lastSubject)
	assert.Equal(t, "the notes", email.lastBody)
}

func TestProcessTranscriptEmailIntentRecipientList(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentEmail,
		Confidence: intents.ConfidenceHigh,
		Details: map[string]any{
			"recipients": []any{"alice@example.com", "bob@example.com"},
			"content":    "notes",
		},
	}}}
	email := &mockEmail{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithEmail(email, nil))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, email.lastRecipients)
}

func TestProcessTranscriptEmailIntentNoContentSendsSummary(t *testing.T) {
	detector := &mockDetector{out: []facts.Statement{{Claim: "claim one"}}}
	verifier := &mockVerifier{
		configured: true,
		result:     &websearch.VerificationResult{Success: true, Verified: true, Confidence: websearch.ConfidenceMedium},
	}
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentEmail,
		Confidence: intents.ConfidenceHigh,
		Details:    map[string]any{"recipients": "bob@example.com"},
	}}}
	email := &mockEmail{configured: true}

	a := newTestAgent(detector, intentDetector, nil, WithVerifier(verifier), WithEmail(email, nil))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	require.Len(t, result.Dispatches, 1)
	assert.Equal(t, DispatchOK, result.Dispatches[0].Status)
	assert.Equal(t, 1, email.summaryCalls, "without explicit content the summary email goes out")
	assert.Zero(t, email.simpleCalls)
	require.Len(t, email.lastFacts, 1)
	assert.Equal(t, "claim one", email.lastFacts[0].Claim)
}

func TestProcessTranscriptEmailIntentNoRecipientsAsksInChat(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentEmail,
		Confidence: intents.ConfidenceHigh,
		Details:    map[string]any{},
	}}}
	email := &mockEmail{configured: true}
	chat := &mockChat{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithEmail(email, nil), WithChat(chat))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	require.Len(t, result.Dispatches, 1)
	assert.Equal(t, DispatchFailed, result.Dispatches[0].Status)
	assert.Contains(t, result.Dispatches[0].Detail, vmerrors.ErrMissingRecipients.Error())
	assert.Zero(t, email.simpleCalls)
	assert.Zero(t, email.summaryCalls)

	msgs := chat.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "recipients needed")
}

func TestProcessTranscriptEmailIntentNoRecipientsNoChatConfigured(t *testing.T) {
	intentDetector := &mockIntentDetector{out: []intents.Intent{{
		Type:       intents.IntentEmail,
		Confidence: intents.ConfidenceHigh,
		Details:    map[string]any{},
	}}}
	email := &mockEmail{configured: true}

	a := newTestAgent(nil, intentDetector, nil, WithEmail(email, nil))

	result, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	require.Len(t, result.Dispatches, 1)
	assert.Equal(t, DispatchFailed, result.Dispatches[0].Status)
	assert.Zero(t, email.simpleCalls)
	assert.Zero(t, email.summaryCalls)
}

func TestProcessTranscriptSessionIsolation(t *testing.T) {
	a := newTestAgent(nil, nil, nil)

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "first meeting text")
	require.NoError(t, err)
	_, err = a.ProcessTranscript(context.Background(), "bot-2", "second meeting text")
	require.NoError(t, err)

	assert.Equal(t, 2, a.Registry().Len())
	assert.Equal(t, []string{"first meeting text"}, a.Registry().Lookup("bot-1").Segments())
	assert.Equal(t, []string{"second meeting text"}, a.Registry().Lookup("bot-2").Segments())
}

func TestFinalizeMeeting(t *testing.T) {
	detector := &mockDetector{out: []facts.Statement{{Claim: "claim one"}}}
	verifier := &mockVerifier{
		configured: true,
		result:     &websearch.VerificationResult{Success: true, Verified: true, Confidence: websearch.ConfidenceMedium},
	}
	pages := &mockPages{configured: true}
	email := &mockEmail{configured: true}

	a := newTestAgent(detector, nil, &mockSummarizer{rolling: "rolling", final: "the final summary"},
		WithVerifier(verifier), WithPages(pages), WithEmail(email, []string{"team@example.com"}))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "some content")
	require.NoError(t, err)

	result, err := a.FinalizeMeeting(context.Background(), "bot-1", "")
	require.NoError(t, err)

	assert.Equal(t, "Meeting Summary - 2026-08-30 14:00", result.Title, "default title is timestamped")
	assert.Equal(t, "the final summary", result.Summary)
	assert.Equal(t, "page-1", result.PageID)
	assert.True(t, result.EmailSent)

	assert.Contains(t, pages.lastBody, "the final summary")
	assert.Contains(t, pages.lastBody, "- claim one: ✅ VERIFIED")

	assert.Equal(t, []string{"team@example.com"}, email.lastRecipients)
	require.Len(t, email.lastFacts, 1)
	assert.True(t, email.lastFacts[0].Verified)

	assert.Equal(t, StateFinalized, a.Registry().Lookup("bot-1").State())
}

func TestFinalizeMeetingNoFactsOmitsSection(t *testing.T) {
	pages := &mockPages{configured: true}
	a := newTestAgent(nil, nil, nil, WithPages(pages))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "plain chatter")
	require.NoError(t, err)

	_, err = a.FinalizeMeeting(context.Background(), "bot-1", "My Title")
	require.NoError(t, err)
	assert.Equal(t, "My Title", pages.lastTitle)
	assert.NotContains(t, pages.lastBody, "Verified Facts")
}

func TestFinalizeMeetingUnknownBot(t *testing.T) {
	a := newTestAgent(nil, nil, nil)

	_, err := a.FinalizeMeeting(context.Background(), "ghost", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, vmerrors.ErrNotFound))
}

func TestFinalizeMeetingTwiceRejected(t *testing.T) {
	a := newTestAgent(nil, nil, nil)

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)

	_, err = a.FinalizeMeeting(context.Background(), "bot-1", "")
	require.NoError(t, err)

	_, err = a.FinalizeMeeting(context.Background(), "bot-1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, vmerrors.ErrInvalidState))
}

func TestProcessTranscriptAfterFinalizeRejected(t *testing.T) {
	a := newTestAgent(nil, nil, nil)

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	_, err = a.FinalizeMeeting(context.Background(), "bot-1", "")
	require.NoError(t, err)

	_, err = a.ProcessTranscript(context.Background(), "bot-1", "late fragment")
	require.Error(t, err)
	assert.True(t, errors.Is(err, vmerrors.ErrInvalidState))

	assert.Equal(t, []string{"text"}, a.Registry().Lookup("bot-1").Segments(),
		"late fragment not recorded")
}

func TestFinalizeMeetingMissingIntegrationsReported(t *testing.T) {
	a := newTestAgent(nil, nil, nil)

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)

	result, err := a.FinalizeMeeting(context.Background(), "bot-1", "")
	require.NoError(t, err)

	statuses := map[string]string{}
	for _, d := range result.Dispatches {
		statuses[d.Target] = d.Status
	}
	assert.Equal(t, DispatchSkipped, statuses["notion"])
	assert.Equal(t, DispatchSkipped, statuses["email"])
}

func TestFinalizeMeetingPageFailureStillEmails(t *testing.T) {
	pages := &mockPages{configured: true, err: errors.New("notion 500")}
	email := &mockEmail{configured: true}

	a := newTestAgent(nil, nil, nil, WithPages(pages), WithEmail(email, []string{"a@b.c"}))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)

	result, err := a.FinalizeMeeting(context.Background(), "bot-1", "")
	require.NoError(t, err)
	assert.True(t, result.EmailSent, "archive failure must not block the email")
	assert.Empty(t, result.PageID)

	statuses := map[string]string{}
	for _, d := range result.Dispatches {
		statuses[d.Target] = d.Status
	}
	assert.Equal(t, DispatchFailed, statuses["notion"])
	assert.Equal(t, DispatchOK, statuses["email"])
}

func TestProcessTranscriptRecordsIntegrationCalls(t *testing.T) {
	detector := &mockDetector{out: []facts.Statement{{Claim: "c"}}}
	verifier := &mockVerifier{
		configured: true,
		result:     &websearch.VerificationResult{Success: true, Verified: true, Confidence: websearch.ConfidenceMedium},
	}
	chat := &mockChat{configured: true}
	m := observability.NewMetrics(prometheus.NewRegistry())

	a := newTestAgent(detector, nil, nil,
		WithVerifier(verifier), WithChat(chat), WithMetrics(m))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)

	assert.Equal(t, 1.0,
		testutil.ToFloat64(m.IntegrationCallsTotal.WithLabelValues("websearch", "verify_fact", "ok")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(m.IntegrationCallsTotal.WithLabelValues("meetstream", "send_chat_message", "ok")))
}

func TestFinalizeMeetingRecordsIntegrationCalls(t *testing.T) {
	pages := &mockPages{configured: true, err: errors.New("notion 500")}
	email := &mockEmail{configured: true}
	m := observability.NewMetrics(prometheus.NewRegistry())

	a := newTestAgent(nil, nil, nil,
		WithPages(pages), WithEmail(email, []string{"a@b.c"}), WithMetrics(m))

	_, err := a.ProcessTranscript(context.Background(), "bot-1", "text")
	require.NoError(t, err)
	_, err = a.FinalizeMeeting(context.Background(), "bot-1", "")
	require.NoError(t, err)

	assert.Equal(t, 1.0,
		testutil.ToFloat64(m.IntegrationCallsTotal.WithLabelValues("notion", "create_page", "error")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(m.IntegrationCallsTotal.WithLabelValues("gmail", "send_summary_email", "ok")))
}

func TestConcurrentSegments(t *testing.T) {
	a := newTestAgent(nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.ProcessTranscript(context.Background(), "bot-1", "segment")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, a.Registry().Lookup("bot-1").Segments(), 20)
}
