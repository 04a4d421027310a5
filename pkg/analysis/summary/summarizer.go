// Package summary maintains a rolling meeting summary and produces the
// final multi-section summary when a meeting ends.
package summary

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"github.com/verimeet/verimeet/pkg/llm"
	"github.com/verimeet/verimeet/pkg/logging"
)

// FailurePrefix marks a summary that could not be generated. Downstream
// consumers check for it to avoid emailing or publishing a failure marker
// as if it were real content.
const FailurePrefix = "Summary generation failed: "

// Failed reports whether s is a failure marker rather than a real summary.
func Failed(s string) bool {
	return strings.HasPrefix(s, FailurePrefix)
}

const incrementalPromptTemplate = `You maintain a running summary of an ongoing meeting. Update the summary below to incorporate the new transcript fragment. Keep it concise (under 200 words), preserve important decisions and action items, and drop small talk.

Current summary:
{{.Previous}}

New transcript fragment:
{{.Fragment}}

Return only the updated summary text.`

const freshPromptTemplate = `Summarize the following meeting transcript fragment concisely (under 200 words). Capture the topics discussed, any decisions made, and any action items. Return only the summary text.

Transcript:
{{.Fragment}}`

const finalPromptTemplate = `Produce a final summary of the meeting below. Structure it with these sections:

## Overview
## Key Discussion Points
## Decisions Made
## Action Items
## Verified Facts

Use the fact check results to fill the Verified Facts section; omit that section entirely when no facts were checked.

Full transcript:
{{.Transcript}}

Fact checks:
{{.FactChecks}}`

var (
	incrementalPrompt = template.Must(template.New("summary_incremental").Parse(incrementalPromptTemplate))
	freshPrompt       = template.Must(template.New("summary_fresh").Parse(freshPromptTemplate))
	finalPrompt       = template.Must(template.New("summary_final").Parse(finalPromptTemplate))
)

const systemPrompt = "You are a meeting summarization assistant. Be factual and concise."

// FactCheck is a claim with its verification status, included in the final
// summary prompt.
type FactCheck struct {
	Claim    string
	Verified bool
}

// Summarizer generates rolling and final meeting summaries via an LLM.
type Summarizer struct {
	provider llm.Provider
	log      logging.Logger
}

// NewSummarizer creates a summarizer backed by the given LLM provider.
func NewSummarizer(provider llm.Provider, log logging.Logger) *Summarizer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Summarizer{provider: provider, log: log}
}

// Summarize folds a new transcript fragment into the rolling summary. With
// an empty previous summary it summarizes the fragment from scratch. On
// failure it returns a marker string prefixed with FailurePrefix so the
// pipeline keeps moving; it never returns an empty string for a non-empty
// fragment.
func (s *Summarizer) Summarize(ctx context.Context, previous, fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return previous
	}

	var buf bytes.Buffer
	var err error
	if strings.TrimSpace(previous) == "" || Failed(previous) {
		err = freshPrompt.Execute(&buf, struct{ Fragment string }{fragment})
	} else {
		err = incrementalPrompt.Execute(&buf, struct{ Previous, Fragment string }{previous, fragment})
	}
	if err != nil {
		s.log.Error("render summary prompt", logging.Err(err))
		return FailurePrefix + err.Error()
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Operation:    "update_summary",
		Prompt:       buf.String(),
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		s.log.Warn("summary generation failed", logging.Err(err))
		return FailurePrefix + err.Error()
	}

	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return previous
	}
	return out
}

// Finalize produces the structured end-of-meeting summary from the full
// set of transcript segments and the fact checks accumulated during the
// meeting. Like Summarize, failures yield a FailurePrefix marker.
func (s *Summarizer) Finalize(ctx context.Context, segments []string, factChecks []FactCheck) string {
	transcript := strings.TrimSpace(strings.Join(segments, "\n"))
	if transcript == "" {
		transcript = "(no transcript recorded)"
	}

	var checks strings.Builder
	if len(factChecks) == 0 {
		checks.WriteString("(none)")
	} else {
		for _, fc := range factChecks {
			status := "needs verification"
			if fc.Verified {
				status = "verified"
			}
			checks.WriteString("- " + fc.Claim + ": " + status + "\n")
		}
	}

	var buf bytes.Buffer
	if err := finalPrompt.Execute(&buf, struct{ Transcript, FactChecks string }{transcript, checks.String()}); err != nil {
		s.log.Error("render final summary prompt", logging.Err(err))
		return FailurePrefix + err.Error()
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Operation:    "finalize_summary",
		Prompt:       buf.String(),
		SystemPrompt: systemPrompt,
		MaxTokens:    2048,
	})
	if err != nil {
		s.log.Warn("final summary generation failed", logging.Err(err))
		return FailurePrefix + err.Error()
	}

	return strings.TrimSpace(resp.Content)
}
