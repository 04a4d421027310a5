// Package agent orchestrates the meeting pipeline: it folds incoming
// transcript fragments into per-meeting sessions, runs fact detection and
// verification, acts on scheduling and email intents, maintains a rolling
// summary, and archives the meeting when it ends.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verimeet/verimeet/pkg/analysis/facts"
	"github.com/verimeet/verimeet/pkg/analysis/intents"
	"github.com/verimeet/verimeet/pkg/analysis/summary"
	vmerrors "github.com/verimeet/verimeet/pkg/errors"
	"github.com/verimeet/verimeet/pkg/events"
	"github.com/verimeet/verimeet/pkg/integrations/gcal"
	"github.com/verimeet/verimeet/pkg/integrations/gmail"
	"github.com/verimeet/verimeet/pkg/integrations/notion"
	"github.com/verimeet/verimeet/pkg/integrations/websearch"
	"github.com/verimeet/verimeet/pkg/logging"
	"github.com/verimeet/verimeet/pkg/observability"
)

// FactDetector extracts verifiable claims from a transcript fragment.
type FactDetector interface {
	DetectFactualStatements(ctx context.Context, transcript string) []facts.Statement
}

// FactVerifier checks claims against external evidence.
type FactVerifier interface {
	VerifyFact(ctx context.Context, claim, claimContext string) (*websearch.VerificationResult, error)
	IsConfigured() bool
}

// IntentDetector extracts actionable intents from a transcript fragment.
// meetingContext carries the rolling summary so references to earlier
// discussion resolve.
type IntentDetector interface {
	DetectIntents(ctx context.Context, transcript, meetingContext string) []intents.Intent
}

// SummaryGenerator maintains rolling summaries and produces the final one.
type SummaryGenerator interface {
	Summarize(ctx context.Context, previous, fragment string) string
	Finalize(ctx context.Context, segments []string, factChecks []summary.FactCheck) string
}

// ChatPoster posts messages into the meeting chat.
type ChatPoster interface {
	SendChatMessage(ctx context.Context, botID, message string) error
	IsConfigured() bool
}

// CalendarService creates calendar events from scheduling intents.
type CalendarService interface {
	CreateEvent(ctx context.Context, req gcal.EventRequest) (*gcal.Event, error)
	IsConfigured() bool
}

// EmailService sends summary and ad hoc emails.
type EmailService interface {
	SendSummaryEmail(ctx context.Context, recipients []string, subject, body string, verifiedFacts []gmail.VerifiedFact) (string, error)
	SendSimpleEmail(ctx context.Context, recipients []string, subject, body string, isHTML bool) (string, error)
	IsConfigured() bool
}

// PageCreator archives meeting summaries as pages.
type PageCreator interface {
	CreatePage(ctx context.Context, title, content string) (*notion.Page, error)
	IsConfigured() bool
}

// Agent drives the meeting pipeline for all tracked sessions.
type Agent struct {
	registry *Registry

	detector   FactDetector
	verifier   FactVerifier
	intents    IntentDetector
	summarizer SummaryGenerator

	chat     ChatPoster
	calendar CalendarService
	email    EmailService
	pages    PageCreator

	publisher  events.Publisher
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	log        logging.Logger
	recipients []string
	now        func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithVerifier sets the fact verifier.
func WithVerifier(v FactVerifier) Option { return func(a *Agent) { a.verifier = v } }

// WithChat sets the meeting chat poster.
func WithChat(c ChatPoster) Option { return func(a *Agent) { a.chat = c } }

// WithCalendar sets the calendar service.
func WithCalendar(c CalendarService) Option { return func(a *Agent) { a.calendar = c } }

// WithEmail sets the email service and the summary recipients.
func WithEmail(e EmailService, recipients []string) Option {
	return func(a *Agent) {
		a.email = e
		a.recipients = recipients
	}
}

// WithPages sets the page archive service.
func WithPages(p PageCreator) Option { return func(a *Agent) { a.pages = p } }

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option { return func(a *Agent) { a.publisher = p } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option { return func(a *Agent) { a.metrics = m } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(a *Agent) { a.now = now } }

// New creates an Agent. Detector, intent parser and summarizer are
// mandatory; integrations are optional and their absence is reported per
// dispatch instead of failing the pipeline.
func New(detector FactDetector, intentParser IntentDetector, summarizer SummaryGenerator, log logging.Logger, opts ...Option) *Agent {
	if log == nil {
		log = logging.NewNopLogger()
	}
	a := &Agent{
		registry:   NewRegistry(),
		detector:   detector,
		intents:    intentParser,
		summarizer: summarizer,
		publisher:  events.NopPublisher{},
		tracer:     observability.NewTracer(),
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry exposes the session registry for status queries.
func (a *Agent) Registry() *Registry { return a.registry }

// ProcessResult reports what one transcript segment produced. Verified
// counts are cumulative over the meeting.
type ProcessResult struct {
	SegmentIndex    int              `json:"segment_index"`
	FactsDetected   int              `json:"facts_detected"`
	FactsVerified   int              `json:"facts_verified"`
	IntentsDetected int              `json:"intents_detected"`
	SummaryLength   int              `json:"summary_length"`
	Dispatches      []DispatchResult `json:"dispatches,omitempty"`
}

// ProcessTranscript runs the full pipeline over one transcript fragment:
// fact detection and verification, intent dispatch, then the rolling
// summary update. Fragments arriving after finalization are rejected.
func (a *Agent) ProcessTranscript(ctx context.Context, botID, text string) (*ProcessResult, error) {
	session := a.registry.GetOrCreate(botID)

	index := session.appendSegment(text)
	if index < 0 {
		return nil, fmt.Errorf("process transcript: meeting already finalized: %w", vmerrors.ErrInvalidState)
	}

	started := a.now()
	ctx, span := a.tracer.StartSegmentSpan(ctx, botID, index)
	defer span.End()

	a.publish(ctx, events.New(events.TypeTranscript, botID, map[string]interface{}{
		"text":    text,
		"segment": index,
	}))

	result := &ProcessResult{SegmentIndex: index}

	detectCtx, detectSpan := a.tracer.StartSpan(ctx, observability.SpanDetectFacts)
	detected := a.detector.DetectFactualStatements(detectCtx, text)
	detectSpan.End()
	result.FactsDetected = len(detected)
	for _, stmt := range detected {
		a.handleFact(ctx, session, stmt)
	}
	result.FactsVerified = len(session.FactChecks())

	intentCtx, intentSpan := a.tracer.StartSpan(ctx, observability.SpanDetectIntents)
	found := a.intents.DetectIntents(intentCtx, text, session.Summary())
	intentSpan.End()
	for _, in := range found {
		if !intents.Actionable(in) {
			a.log.Debug("ignoring low confidence intent",
				logging.F("intent", in.Type),
				logging.F("bot_id", botID))
			continue
		}
		result.IntentsDetected++
		session.addIntents(1)
		if a.metrics != nil {
			a.metrics.RecordIntent(in.Type)
		}
		result.Dispatches = append(result.Dispatches, a.dispatchIntent(ctx, session, in))
	}

	summaryCtx, summarySpan := a.tracer.StartSpan(ctx, observability.SpanUpdateSummary)
	updated := a.summarizer.Summarize(summaryCtx, session.Summary(), text)
	summarySpan.End()
	session.setSummary(updated)
	result.SummaryLength = len(updated)
	if !summary.Failed(updated) {
		a.publish(ctx, events.New(events.TypeSummary, botID, map[string]interface{}{
			"summary": updated,
		}))
	}

	if a.metrics != nil {
		a.metrics.RecordSegment("ok", a.now().Sub(started).Seconds())
		a.metrics.RecordFacts(result.FactsDetected, 0)
	}

	a.log.Info("segment processed",
		logging.F("bot_id", botID),
		logging.F("segment", index),
		logging.F("facts", result.FactsDetected),
		logging.F("intents", result.IntentsDetected))

	return result, nil
}

// handleFact verifies one claim and posts the outcome into the meeting
// chat. Only claims whose verification call succeeds become part of the
// session record; a missing provider or a failed call is logged and the
// claim is left out, so the final summary lists only checked facts.
// Verification and chat failures never abort the segment.
func (a *Agent) handleFact(ctx context.Context, session *Session, stmt facts.Statement) {
	if a.verifier == nil || !a.verifier.IsConfigured() {
		a.log.Debug("fact verification skipped, no search provider",
			logging.F("claim", stmt.Claim))
		return
	}

	var verification *websearch.VerificationResult
	err := a.instrument(ctx, "websearch", "verify_fact", func(ctx context.Context) error {
		var verr error
		verification, verr = a.verifier.VerifyFact(ctx, stmt.Claim, stmt.Context)
		return verr
	})
	if err != nil {
		a.log.Warn("fact verification failed",
			logging.Err(err),
			logging.F("claim", stmt.Claim))
		return
	}
	if verification == nil || !verification.Success {
		a.log.Warn("fact verification unsuccessful",
			logging.F("claim", stmt.Claim))
		return
	}

	rec := FactCheckRecord{
		Claim:      stmt.Claim,
		Type:       stmt.Type,
		Context:    stmt.Context,
		Verified:   verification.Verified,
		Confidence: verification.Confidence,
	}
	if len(verification.Sources) > 0 {
		rec.SourceURL = verification.Sources[0].URL
	}
	session.addFactCheck(rec)
	if a.metrics != nil {
		a.metrics.RecordFacts(0, 1)
	}

	a.publish(ctx, events.New(events.TypeFactCheck, session.BotID(), rec))
	a.notifyChat(ctx, session, facts.FormatFactCheckMessage(stmt.Claim, verification))
}

// dispatchIntent acts on one actionable intent.
func (a *Agent) dispatchIntent(ctx context.Context, session *Session, in intents.Intent) DispatchResult {
	a.publish(ctx, events.New(events.TypeIntent, session.BotID(), in))

	switch in.Type {
	case intents.IntentSchedule:
		return a.dispatchCalendar(ctx, session, in)
	case intents.IntentEmail:
		return a.dispatchEmail(ctx, session, in)
	default:
		return dispatchFailed(in.Type, fmt.Errorf("unknown intent class"))
	}
}

func (a *Agent) dispatchCalendar(ctx context.Context, session *Session, in intents.Intent) DispatchResult {
	const target = "calendar"
	if a.calendar == nil || !a.calendar.IsConfigured() {
		a.log.Info("scheduling intent skipped, calendar not configured",
			logging.F("bot_id", session.BotID()))
		return dispatchSkipped(target)
	}

	title := in.Detail("topic")
	if title == "" {
		title = in.Action
	}
	if title == "" {
		title = "Meeting scheduled from VeriMeet"
	}

	req := gcal.EventRequest{Title: title, Description: in.Detail("content")}
	resolved := in.Parsed
	if resolved == nil {
		resolved = intents.ResolveDateTime(in.Detail("date"), in.Detail("time"), a.now())
	}
	if resolved != nil {
		req.Date = resolved.Date
		req.Time = resolved.Time
		// Keep unresolvable phrases visible instead of dropping them.
		if resolved.Date == "" && resolved.RawDate != "" {
			req.Description = appendLine(req.Description, "Requested date: "+resolved.RawDate)
		}
		if resolved.Time == "" && resolved.RawTime != "" {
			req.Description = appendLine(req.Description, "Requested time: "+resolved.RawTime)
		}
	}

	var event *gcal.Event
	err := a.instrument(ctx, "gcal", "create_event", func(ctx context.Context) error {
		var cerr error
		event, cerr = a.calendar.CreateEvent(ctx, req)
		return cerr
	})
	if err != nil {
		a.log.Error("create calendar event", logging.Err(err))
		return dispatchFailed(target, err)
	}

	a.notifyChat(ctx, session, fmt.Sprintf("📅 Scheduled: %s (%s)", event.Title, event.Start))
	return dispatchOK(target, event.ID)
}

func (a *Agent) dispatchEmail(ctx context.Context, session *Session, in intents.Intent) DispatchResult {
	const target = "email"
	if a.email == nil || !a.email.IsConfigured() {
		a.log.Info("email intent skipped, email not configured",
			logging.F("bot_id", session.BotID()))
		return dispatchSkipped(target)
	}

	recipients := in.Recipients()
	if len(recipients) == 0 {
		a.notifyChat(ctx, session, "📧 Email recipients needed. Please say who should receive it and I'll send it.")
		return dispatchFailed(target, fmt.Errorf("email intent: %w", vmerrors.ErrMissingRecipients))
	}
	subject := in.Detail("subject")
	if subject == "" {
		subject = "Follow-up from your meeting"
	}

	var id string
	var err error
	if content := in.Detail("content"); content != "" {
		err = a.instrument(ctx, "gmail", "send_simple_email", func(ctx context.Context) error {
			var serr error
			id, serr = a.email.SendSimpleEmail(ctx, recipients, subject, content, false)
			return serr
		})
	} else {
		// No explicit content: send the meeting summary with fact checks.
		checks := session.FactChecks()
		emailFacts := make([]gmail.VerifiedFact, 0, len(checks))
		for _, fc := range checks {
			emailFacts = append(emailFacts, gmail.VerifiedFact{Claim: fc.Claim, Verified: fc.Verified})
		}
		err = a.instrument(ctx, "gmail", "send_summary_email", func(ctx context.Context) error {
			var serr error
			id, serr = a.email.SendSummaryEmail(ctx, recipients, subject, session.Summary(), emailFacts)
			return serr
		})
	}
	if err != nil {
		a.log.Error("send intent email", logging.Err(err))
		return dispatchFailed(target, err)
	}

	a.notifyChat(ctx, session, fmt.Sprintf("📧 Email sent to %s", strings.Join(recipients, ", ")))
	return dispatchOK(target, id)
}

func (a *Agent) notifyChat(ctx context.Context, session *Session, msg string) {
	if a.chat == nil || !a.chat.IsConfigured() {
		return
	}
	err := a.instrument(ctx, "meetstream", "send_chat_message", func(ctx context.Context) error {
		return a.chat.SendChatMessage(ctx, session.BotID(), msg)
	})
	if err != nil {
		a.log.Warn("post notification to chat", logging.Err(err))
	}
}

// instrument wraps an external service call with a span and call metrics.
func (a *Agent) instrument(ctx context.Context, service, operation string, fn func(context.Context) error) error {
	ctx, span := a.tracer.StartIntegrationSpan(ctx, service)
	defer span.End()

	start := a.now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		observability.RecordError(span, err)
	}
	if a.metrics != nil {
		a.metrics.RecordIntegrationCall(service, operation, status, a.now().Sub(start).Seconds())
	}
	return err
}

// publish stamps the event with the active trace id and forwards it.
func (a *Agent) publish(ctx context.Context, evt events.Event) {
	evt.CorrelationID = observability.TraceID(ctx)
	a.publisher.Publish(evt)
}

// FinalizeResult reports how a meeting was wrapped up.
type FinalizeResult struct {
	Title      string           `json:"title"`
	Summary    string           `json:"summary"`
	PageID     string           `json:"page_id,omitempty"`
	PageURL    string           `json:"page_url,omitempty"`
	EmailSent  bool             `json:"email_sent"`
	Dispatches []DispatchResult `json:"dispatches,omitempty"`
}

// FinalizeMeeting generates the final summary, archives it, and emails it
// to the configured recipients. A session can be finalized only once;
// later transcript fragments for the bot are rejected.
func (a *Agent) FinalizeMeeting(ctx context.Context, botID, title string) (*FinalizeResult, error) {
	session := a.registry.Lookup(botID)
	if session == nil {
		return nil, fmt.Errorf("finalize meeting: unknown bot %q: %w", botID, vmerrors.ErrNotFound)
	}
	if !session.finalize() {
		return nil, fmt.Errorf("finalize meeting: already finalized: %w", vmerrors.ErrInvalidState)
	}

	ctx, span := a.tracer.StartFinalizeSpan(ctx, botID)
	defer span.End()

	if title == "" {
		title = "Meeting Summary - " + a.now().Format("2006-01-02 15:04")
	}

	final := a.summarizer.Finalize(ctx, session.Segments(), session.summaryFactChecks())
	session.setSummary(final)

	result := &FinalizeResult{Title: title, Summary: final}
	checks := session.FactChecks()

	content := final
	if len(checks) > 0 {
		content += "\n\nVerified Facts\n"
		for _, fc := range checks {
			status := "⚠️ NEEDS VERIFICATION"
			if fc.Verified {
				status = "✅ VERIFIED"
			}
			content += fmt.Sprintf("- %s: %s\n", fc.Claim, status)
		}
	}

	if a.pages != nil && a.pages.IsConfigured() {
		var page *notion.Page
		err := a.instrument(ctx, "notion", "create_page", func(ctx context.Context) error {
			var perr error
			page, perr = a.pages.CreatePage(ctx, title, content)
			return perr
		})
		if err != nil {
			a.log.Error("archive meeting summary", logging.Err(err))
			result.Dispatches = append(result.Dispatches, dispatchFailed("notion", err))
		} else {
			result.PageID = page.ID
			result.PageURL = page.URL
			result.Dispatches = append(result.Dispatches, dispatchOK("notion", page.ID))
		}
	} else {
		result.Dispatches = append(result.Dispatches, dispatchSkipped("notion"))
	}

	if a.email != nil && a.email.IsConfigured() && len(a.recipients) > 0 {
		emailFacts := make([]gmail.VerifiedFact, 0, len(checks))
		for _, fc := range checks {
			emailFacts = append(emailFacts, gmail.VerifiedFact{Claim: fc.Claim, Verified: fc.Verified})
		}
		err := a.instrument(ctx, "gmail", "send_summary_email", func(ctx context.Context) error {
			_, serr := a.email.SendSummaryEmail(ctx, a.recipients, title, final, emailFacts)
			return serr
		})
		if err != nil {
			a.log.Error("email meeting summary", logging.Err(err))
			result.Dispatches = append(result.Dispatches, dispatchFailed("email", err))
		} else {
			result.EmailSent = true
			result.Dispatches = append(result.Dispatches, dispatchOK("email", ""))
		}
	} else {
		result.Dispatches = append(result.Dispatches, dispatchSkipped("email"))
	}

	if a.metrics != nil {
		a.metrics.MeetingsFinalizedTotal.Inc()
	}
	a.publish(ctx, events.New(events.TypeStatus, botID, map[string]interface{}{
		"state": StateFinalized,
		"title": title,
	}))

	a.log.Info("meeting finalized",
		logging.F("bot_id", botID),
		logging.F("segments", len(session.Segments())),
		logging.F("facts", len(checks)))

	return result, nil
}

func appendLine(base, line string) string {
	if base == "" {
		return line
	}
	return base + "\n" + line
}
