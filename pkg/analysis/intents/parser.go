// Package intents detects actionable intents (meeting scheduling, email
// requests) in transcript fragments and resolves the loose date and time
// phrases people use in conversation into concrete values.
package intents

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/verimeet/verimeet/pkg/llm"
	"github.com/verimeet/verimeet/pkg/logging"
)

// Intent classes the parser recognizes.
const (
	IntentSchedule = "schedule"
	IntentEmail    = "email"
)

// Confidence levels attached to detected intents.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Intent is a single actionable request found in a transcript fragment.
// Details carries intent-specific fields as returned by the model: date,
// time, topic and attendees for schedule; recipients, subject and content
// for email. Values may be strings or lists, so callers go through Detail
// and Recipients rather than indexing the map directly.
type Intent struct {
	Type       string         `json:"type"`
	Confidence string         `json:"confidence"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details"`
	Context    string         `json:"context"`
	Parsed     *Resolved      `json:"parsed_datetime,omitempty"`
}

// Detail returns a detail value coerced to a string. Lists are joined
// with ", " and numbers are formatted; missing keys yield "".
func (in Intent) Detail(key string) string {
	return coerceString(in.Details[key])
}

// Recipients returns the email recipient list. It accepts both a JSON
// array and a single string under "recipients", falling back to the
// singular "recipient" key.
func (in Intent) Recipients() []string {
	v, ok := in.Details["recipients"]
	if !ok {
		v = in.Details["recipient"]
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(coerceString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := coerceString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

const detectPromptTemplate = `Analyze the following meeting transcript fragment and identify actionable intents. Look for:

1. schedule: someone asks to schedule, book, or set up a meeting or call. Extract details: date (e.g. "tomorrow", "next friday"), time (e.g. "2pm", "14:00"), topic, attendees.
2. email: someone asks to send, email, or forward something to a person. Extract details: recipients, subject, content.

Only report intents that are explicit requests, not hypotheticals. Assign a confidence of high, medium, or low. Include an "action" summarizing the request and a "context" quoting the relevant transcript text.

Return a JSON object: {"intents": [{"type": "...", "confidence": "...", "action": "...", "details": {...}, "context": "..."}]}. Return {"intents": []} when nothing actionable is present.
{{if .Context}}
Context: {{.Context}}
{{end}}
Transcript:
{{.Transcript}}`

var detectPrompt = template.Must(template.New("detect_intents").Parse(detectPromptTemplate))

const detectSystemPrompt = "You are an assistant that extracts actionable requests from meeting transcripts. Respond only with JSON."

// Parser detects intents using an LLM provider.
type Parser struct {
	provider llm.Provider
	log      logging.Logger
	now      func() time.Time
}

// NewParser creates an intent parser backed by the given LLM provider.
func NewParser(provider llm.Provider, log logging.Logger) *Parser {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Parser{provider: provider, log: log, now: time.Now}
}

// SetClock overrides the parser's notion of the current time, used when
// resolving relative dates in tests.
func (p *Parser) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// DetectIntents extracts actionable intents from a transcript fragment.
// meetingContext, typically the rolling summary, helps the model resolve
// references like "send it to the team". Detection failures are logged
// and yield an empty result. Schedule intents get their date and time
// details resolved into a Parsed value when possible.
func (p *Parser) DetectIntents(ctx context.Context, transcript, meetingContext string) []Intent {
	if strings.TrimSpace(transcript) == "" {
		return nil
	}

	var buf bytes.Buffer
	data := struct{ Transcript, Context string }{transcript, meetingContext}
	if err := detectPrompt.Execute(&buf, data); err != nil {
		p.log.Error("render intent detection prompt", logging.Err(err))
		return nil
	}

	var parsed struct {
		Intents []Intent `json:"intents"`
	}
	err := p.provider.CompleteStructured(ctx, llm.CompletionRequest{
		Operation:    "detect_intents",
		Prompt:       buf.String(),
		SystemPrompt: detectSystemPrompt,
	}, &parsed)
	if err != nil {
		p.log.Warn("intent detection failed", logging.Err(err))
		return nil
	}

	out := make([]Intent, 0, len(parsed.Intents))
	for _, in := range parsed.Intents {
		switch in.Type {
		case IntentSchedule, IntentEmail:
		default:
			continue
		}
		if in.Confidence == "" {
			in.Confidence = ConfidenceLow
		}
		if in.Details == nil {
			in.Details = map[string]any{}
		}
		if in.Type == IntentSchedule {
			in.Parsed = ResolveDateTime(in.Detail("date"), in.Detail("time"), p.now())
		}
		out = append(out, in)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Actionable reports whether an intent is confident enough to dispatch.
func Actionable(in Intent) bool {
	return in.Confidence == ConfidenceHigh || in.Confidence == ConfidenceMedium
}
