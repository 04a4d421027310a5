package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// Default settings for the OpenAI provider.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1024
	DefaultTimeout     = 60 * time.Second
)

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string `yaml:"api_key"`

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string `yaml:"base_url,omitempty"`

	// Timeout bounds each completion request.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// MetricsRecorder receives per-call metrics from a provider. It is
// satisfied by observability.Metrics.
type MetricsRecorder interface {
	RecordLLMCall(operation, model, status string, seconds float64, promptTokens, completionTokens int)
}

// OpenAIProvider implements Provider using the official OpenAI SDK.
type OpenAIProvider struct {
	client  openaigo.Client
	model   string
	name    string
	metrics MetricsRecorder
}

// NewOpenAIProvider creates a provider backed by the OpenAI chat completions API.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: api_key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithRequestTimeout(timeout),
	}
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIProvider{
		client: openaigo.NewClient(opts...),
		model:  model,
		name:   fmt.Sprintf("openai-%s", model),
	}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// SetMetrics installs a metrics recorder for completion calls.
func (p *OpenAIProvider) SetMetrics(m MetricsRecorder) {
	p.metrics = m
}

func (p *OpenAIProvider) record(operation string, start time.Time, resp *CompletionResponse, err error) {
	if p.metrics == nil {
		return
	}
	if operation == "" {
		operation = "complete"
	}
	status := "ok"
	var prompt, completion int
	if err != nil {
		status = "error"
	} else {
		prompt = resp.TokensUsed.Prompt
		completion = resp.TokensUsed.Completion
	}
	p.metrics.RecordLLMCall(operation, p.model, status, time.Since(start).Seconds(), prompt, completion)
}

// Complete sends a chat completion request and returns the raw response.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	var messages []openaigo.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openaigo.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openaigo.UserMessage(req.Prompt))

	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(p.model),
		Messages: messages,
	}

	if req.Temperature > 0 {
		params.Temperature = openaigo.Float(req.Temperature)
	} else {
		params.Temperature = openaigo.Float(DefaultTemperature)
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openaigo.Int(int64(req.MaxTokens))
	} else {
		params.MaxTokens = openaigo.Int(int64(DefaultMaxTokens))
	}

	if req.JSONMode {
		params.ResponseFormat = openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		p.record(req.Operation, start, nil, err)
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		p.record(req.Operation, start, nil, fmt.Errorf("no choices"))
		return nil, fmt.Errorf("openai completion: no choices in response")
	}

	choice := resp.Choices[0]
	out := &CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		LatencyMs:    int(time.Since(start).Milliseconds()),
		TokensUsed: TokenUsage{
			Prompt:     int(resp.Usage.PromptTokens),
			Completion: int(resp.Usage.CompletionTokens),
			Total:      int(resp.Usage.TotalTokens),
		},
	}
	p.record(req.Operation, start, out, nil)
	return out, nil
}

// CompleteStructured sends a request expecting JSON output and parses it.
func (p *OpenAIProvider) CompleteStructured(ctx context.Context, req CompletionRequest, target interface{}) error {
	req.JSONMode = true
	if !strings.Contains(req.Prompt, "JSON") && !strings.Contains(req.Prompt, "json") {
		req.Prompt += "\n\nRespond with valid JSON only."
	}

	resp, err := p.Complete(ctx, req)
	if err != nil {
		return err
	}

	if resp.FinishReason == "length" {
		return fmt.Errorf("openai completion: response truncated at max_tokens (%d completion tokens used)",
			resp.TokensUsed.Completion)
	}

	return UnmarshalContent(resp.Content, target)
}

// IsAvailable checks if the provider is currently reachable by listing models.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.Get(ctx, p.model)
	return err == nil
}

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	return nil
}

var _ Provider = (*OpenAIProvider)(nil)
