// Package facts detects factual statements in meeting transcripts via an LLM
// and formats verification outcomes for posting back into the meeting chat.
package facts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/verimeet/verimeet/pkg/integrations/websearch"
	"github.com/verimeet/verimeet/pkg/llm"
	"github.com/verimeet/verimeet/pkg/logging"
)

// Statement types the detector classifies claims into.
const (
	TypeStatistical = "statistical"
	TypeFactual     = "factual"
	TypeNumerical   = "numerical"
	TypeDate        = "date"
)

// Statement is a factual claim detected in a transcript fragment.
type Statement struct {
	Claim   string `json:"claim"`
	Type    string `json:"type"`
	Context string `json:"context"`
}

const detectPromptTemplate = `Analyze the following meeting transcript and identify any factual statements that could be verified. Focus on:
- Statistics and numbers
- Dates and historical claims
- Claims about products, companies, or people
- Assertions presented as facts

For each factual statement found, return it with the claim text, a type (statistical, factual, numerical, or date), and the surrounding context.

Return a JSON object of the form {"facts": [{"claim": "...", "type": "...", "context": "..."}]}. If no verifiable factual statements are present, return {"facts": []}.

Transcript:
{{.Transcript}}`

var detectPrompt = template.Must(template.New("detect_facts").Parse(detectPromptTemplate))

const detectSystemPrompt = "You are a fact-checking assistant that identifies verifiable claims in meeting transcripts. Respond only with JSON."

// Checker detects factual statements using an LLM provider.
type Checker struct {
	provider llm.Provider
	log      logging.Logger
}

// NewChecker creates a fact checker backed by the given LLM provider.
func NewChecker(provider llm.Provider, log logging.Logger) *Checker {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Checker{provider: provider, log: log}
}

// DetectFactualStatements extracts verifiable claims from a transcript
// fragment. An empty or whitespace-only fragment returns no statements
// without calling the model. Detection failures are logged and yield an
// empty result so a bad fragment never stalls the pipeline.
func (c *Checker) DetectFactualStatements(ctx context.Context, transcript string) []Statement {
	if strings.TrimSpace(transcript) == "" {
		return nil
	}

	var buf bytes.Buffer
	if err := detectPrompt.Execute(&buf, struct{ Transcript string }{transcript}); err != nil {
		c.log.Error("render fact detection prompt", logging.Err(err))
		return nil
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Operation:    "detect_facts",
		Prompt:       buf.String(),
		SystemPrompt: detectSystemPrompt,
		JSONMode:     true,
	})
	if err != nil {
		c.log.Warn("fact detection failed", logging.Err(err))
		return nil
	}

	content := llm.CleanJSONContent(resp.Content)

	var parsed struct {
		Facts []Statement `json:"facts"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		return prune(parsed.Facts)
	}

	// Some models return a bare array despite the JSON-object instruction.
	var list []Statement
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return prune(list)
	}

	c.log.Warn("fact detection returned unparseable content",
		logging.F("content_length", len(resp.Content)))
	return nil
}

// prune drops statements with an empty claim and defaults missing types.
func prune(in []Statement) []Statement {
	out := make([]Statement, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s.Claim) == "" {
			continue
		}
		if s.Type == "" {
			s.Type = TypeFactual
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// snippetLimit bounds source snippets in chat messages.
const snippetLimit = 150

// Truncate shortens s to at most limit runes, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// FormatFactCheckMessage renders a verification outcome as a chat message.
// Failed verifications carry the error text and no confidence label.
func FormatFactCheckMessage(claim string, result *websearch.VerificationResult) string {
	if result == nil || !result.Success {
		errText := "unknown error"
		if result != nil && result.Error != "" {
			errText = result.Error
		}
		return fmt.Sprintf("🔍 Fact Check: \"%s\"\nUnable to verify: %s", claim, errText)
	}

	status := "⚠️ NEEDS VERIFICATION"
	if result.Verified {
		status = "✅ VERIFIED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Fact Check: \"%s\"\n%s (confidence: %s)", claim, status, result.Confidence)

	if len(result.Sources) > 0 {
		src := result.Sources[0]
		fmt.Fprintf(&b, "\n📄 %s\n%s", src.Title, Truncate(src.Snippet, snippetLimit))
		if src.URL != "" {
			fmt.Fprintf(&b, "\n🔗 %s", src.URL)
		}
	}

	return b.String()
}
