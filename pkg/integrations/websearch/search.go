// Package websearch provides web search adapters used for fact verification.
// It supports three providers (Serper, Tavily, Google Custom Search) with a
// fixed preference order, normalizing each provider's response into a common
// source list.
package websearch

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

// Provider identifiers, in fallback order.
const (
	ProviderSerper = "serper"
	ProviderTavily = "tavily"
	ProviderGoogle = "google_custom_search"
)

// API endpoints.
const (
	serperURL = "https://google.serper.dev/search"
	tavilyURL = "https://api.tavily.com/search"
	googleURL = "https://www.googleapis.com/customsearch/v1"
)

// DefaultNumResults is the search result count when the caller passes 0.
const DefaultNumResults = 5

// Config holds web search provider credentials. Any one provider is enough;
// when several are configured Serper is preferred, then Tavily, then Google.
type Config struct {
	SerperAPIKey   string `yaml:"serper_api_key,omitempty"`
	TavilyAPIKey   string `yaml:"tavily_api_key,omitempty"`
	GoogleAPIKey   string `yaml:"google_api_key,omitempty"`
	GoogleEngineID string `yaml:"google_engine_id,omitempty"`
}

// Source is a normalized search hit.
type Source struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SearchResponse is the normalized result of a web search.
type SearchResponse struct {
	Provider string   `json:"provider"`
	Query    string   `json:"query"`
	Results  []Source `json:"results"`
}

// VerificationResult is the outcome of verifying a claim against the web.
// The orchestrator treats it as opaque beyond Success and Verified.
type VerificationResult struct {
	Success    bool     `json:"success"`
	Verified   bool     `json:"verified"`
	Confidence string   `json:"confidence"`
	Claim      string   `json:"claim"`
	Message    string   `json:"message,omitempty"`
	Sources    []Source `json:"sources,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Confidence labels attached to verification results.
const (
	ConfidenceLow     = "low"
	ConfidenceMedium  = "medium"
	ConfidenceHigh    = "high"
	ConfidenceUnknown = "unknown"
)

// Client performs web searches against the configured provider.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        logging.Logger

	// Endpoint overrides for tests.
	serperEndpoint string
	tavilyEndpoint string
	googleEndpoint string
}

// NewClient creates a web search client.
func NewClient(cfg Config, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		log:            log,
		serperEndpoint: serperURL,
		tavilyEndpoint: tavilyURL,
		googleEndpoint: googleURL,
	}
}

// IsConfigured reports whether at least one search provider has credentials.
func (c *Client) IsConfigured() bool {
	return c.Provider() != ""
}

// Provider returns the provider that will serve searches, or "" if none.
func (c *Client) Provider() string {
	switch {
	case c.cfg.SerperAPIKey != "":
		return ProviderSerper
	case c.cfg.TavilyAPIKey != "":
		return ProviderTavily
	case c.cfg.GoogleAPIKey != "" && c.cfg.GoogleEngineID != "":
		return ProviderGoogle
	default:
		return ""
	}
}

// SearchWeb searches the web and returns normalized results.
func (c *Client) SearchWeb(ctx context.Context, query string, numResults int) (*SearchResponse, error) {
	if numResults <= 0 {
		numResults = DefaultNumResults
	}

	provider := c.Provider()
	c.log.Debug("web search", logging.F("provider", provider), logging.F("query", query))

	switch provider {
	case ProviderSerper:
		return c.searchSerper(ctx, query, numResults)
	case ProviderTavily:
		return c.searchTavily(ctx, query, numResults)
	case ProviderGoogle:
		return c.searchGoogle(ctx, query, numResults)
	default:
		return nil, fmt.Errorf("web search: %w: set a Serper, Tavily, or Google Custom Search key",
			vmerrors.ErrNotConfigured)
	}
}

// VerifyFact verifies a factual claim by searching the web and summarizing
// the top result. The confidence heuristic is deliberately simple: any
// relevant result yields medium confidence, no results yields low.
func (c *Client) VerifyFact(ctx context.Context, claim, claimContext string) (*VerificationResult, error) {
	query := claim
	if claimContext != "" {
		query = claim + " " + claimContext
	}

	resp, err := c.SearchWeb(ctx, query, DefaultNumResults)
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return &VerificationResult{
			Success:    true,
			Verified:   false,
			Confidence: ConfidenceLow,
			Claim:      claim,
			Message:    "No relevant results found to verify this claim",
		}, nil
	}

	top := resp.Results[0]
	return &VerificationResult{
		Success:    true,
		Verified:   true,
		Confidence: ConfidenceMedium,
		Claim:      claim,
		Sources:    []Source{top},
	}, nil
}

// FailedVerification builds the result shape for a verification call that
// could not be completed.
func FailedVerification(claim string, err error) *VerificationResult {
	return &VerificationResult{
		Success: false,
		Claim:   claim,
		Error:   err.Error(),
	}
}

// serper

type serperResult struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
}

func (c *Client) searchSerper(ctx context.Context, query string, numResults int) (*SearchResponse, error) {
	payload, _ := json.Marshal(map[string]string{"q": query})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serperEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("serper: create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.cfg.SerperAPIKey)
	req.Header.Set("Content-Type", "application/json")

	var parsed serperResult
	if err := c.do(req, &parsed); err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}

	results := make([]Source, 0, numResults)
	for _, r := range parsed.Organic {
		if len(results) == numResults {
			break
		}
		results = append(results, Source{Title: r.Title, Snippet: r.Snippet, URL: r.Link})
	}

	return &SearchResponse{Provider: ProviderSerper, Query: query, Results: results}, nil
}

// tavily

type tavilyResult struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"results"`
}

func (c *Client) searchTavily(ctx context.Context, query string, numResults int) (*SearchResponse, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"api_key":     c.cfg.TavilyAPIKey,
		"query":       query,
		"max_results": numResults,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tavilyEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var parsed tavilyResult
	if err := c.do(req, &parsed); err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	results := make([]Source, 0, numResults)
	for _, r := range parsed.Results {
		if len(results) == numResults {
			break
		}
		results = append(results, Source{Title: r.Title, Snippet: r.Content, URL: r.URL})
	}

	return &SearchResponse{Provider: ProviderTavily, Query: query, Results: results}, nil
}

// google custom search

type googleResult struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

func (c *Client) searchGoogle(ctx context.Context, query string, numResults int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("key", c.cfg.GoogleAPIKey)
	params.Set("cx", c.cfg.GoogleEngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.googleEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google search: create request: %w", err)
	}

	var parsed googleResult
	if err := c.do(req, &parsed); err != nil {
		return nil, fmt.Errorf("google search: %w", err)
	}

	results := make([]Source, 0, numResults)
	for _, r := range parsed.Items {
		if len(results) == numResults {
			break
		}
		results = append(results, Source{Title: r.Title, Snippet: r.Snippet, URL: r.Link})
	}

	return &SearchResponse{Provider: ProviderGoogle, Query: query, Results: results}, nil
}

// do executes the request and decodes the JSON body into target.
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

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", vmerrors.ErrMalformedResponse, err)
	}
	return nil
}
