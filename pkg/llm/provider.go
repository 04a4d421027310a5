// Package llm provides the language-model completion layer used by the
// analysis modules. Providers implement a small interface so fact detection,
// intent parsing, and summarization can be tested against fakes.
package llm

import (
	"context"
)

// Provider defines the interface for LLM completion providers.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai-gpt-4o-mini").
	Name() string

	// Complete sends a completion request and returns the raw response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CompleteStructured sends a request expecting JSON output and parses it
	// into target. A parse failure is reported distinctly from a call failure
	// so callers can tell malformed output apart from an unavailable service.
	CompleteStructured(ctx context.Context, req CompletionRequest, target interface{}) error

	// IsAvailable checks if the provider is currently reachable.
	IsAvailable(ctx context.Context) bool

	// Close releases provider resources.
	Close() error
}

// CompletionRequest represents a request to the LLM.
type CompletionRequest struct {
	// Operation labels the call for metrics (e.g. "detect_facts").
	Operation string `json:"operation,omitempty"`

	// Prompt is the full prompt text to send to the LLM.
	Prompt string `json:"prompt"`

	// SystemPrompt is an optional system-level instruction.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// JSONMode requests structured JSON output from the model.
	JSONMode bool `json:"json_mode"`

	// MaxTokens limits response length (0 = provider default).
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-1.0, 0 = provider default).
	Temperature float64 `json:"temperature,omitempty"`
}

// CompletionResponse represents a response from the LLM.
type CompletionResponse struct {
	// Content is the raw text response from the LLM.
	Content string `json:"content"`

	// Model is the actual model used (may differ from requested).
	Model string `json:"model"`

	// FinishReason indicates why the model stopped generating.
	// "stop" = natural end, "length" = hit max_tokens limit.
	FinishReason string `json:"finish_reason,omitempty"`

	// LatencyMs is the response time in milliseconds.
	LatencyMs int `json:"latency_ms"`

	// TokensUsed tracks token consumption.
	TokensUsed TokenUsage `json:"tokens_used"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}
