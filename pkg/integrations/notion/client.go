// Package notion creates and appends to Notion pages via the public REST
// API. Meetings are archived as pages in a configured database.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	vmerrors "github.com/verimeet/verimeet/pkg/errors"
	"github.com/verimeet/verimeet/pkg/logging"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
)

// Notion caps a single rich text element at 2000 characters; longer
// content is split across paragraph blocks.
const blockTextLimit = 2000

// Config holds Notion API settings.
type Config struct {
	APIKey     string `yaml:"api_key"`
	DatabaseID string `yaml:"database_id"`
}

// Page is a created Notion page.
type Page struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client talks to the Notion API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	log        logging.Logger
}

// NewClient creates a Notion client.
func NewClient(cfg Config, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// IsConfigured reports whether the API key and database id are present.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != "" && c.cfg.DatabaseID != ""
}

// CreatePage creates a page in the configured database with the given title
// and body content.
func (c *Client) CreatePage(ctx context.Context, title, content string) (*Page, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("notion: %w", vmerrors.ErrNotConfigured)
	}

	payload := map[string]interface{}{
		"parent": map[string]string{"database_id": c.cfg.DatabaseID},
		"properties": map[string]interface{}{
			"Name": map[string]interface{}{
				"title": []interface{}{
					map[string]interface{}{
						"text": map[string]string{"content": title},
					},
				},
			},
		},
		"children": paragraphBlocks(content),
	}

	var page Page
	if err := c.request(ctx, http.MethodPost, "/v1/pages", payload, &page); err != nil {
		return nil, fmt.Errorf("notion: create page: %w", err)
	}

	c.log.Info("notion page created",
		logging.F("page_id", page.ID),
		logging.F("title", title))
	return &page, nil
}

// UpdatePage appends content to an existing page as new paragraph blocks.
func (c *Client) UpdatePage(ctx context.Context, pageID, content string) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("notion: %w", vmerrors.ErrNotConfigured)
	}

	payload := map[string]interface{}{
		"children": paragraphBlocks(content),
	}
	if err := c.request(ctx, http.MethodPatch, "/v1/blocks/"+pageID+"/children", payload, nil); err != nil {
		return fmt.Errorf("notion: update page: %w", err)
	}
	return nil
}

// paragraphBlocks splits content into paragraph blocks under the API's
// per-element text limit.
func paragraphBlocks(content string) []interface{} {
	var chunks []string
	runes := []rune(content)
	for len(runes) > blockTextLimit {
		chunks = append(chunks, string(runes[:blockTextLimit]))
		runes = runes[blockTextLimit:]
	}
	chunks = append(chunks, string(runes))

	blocks := make([]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		blocks = append(blocks, map[string]interface{}{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]interface{}{
				"rich_text": []interface{}{
					map[string]interface{}{
						"type": "text",
						"text": map[string]string{"content": chunk},
					},
				},
			},
		})
	}
	return blocks
}

func (c *Client) request(ctx context.Context, method, path string, payload, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", vmerrors.ErrMalformedResponse, err)
	}
	return nil
}
