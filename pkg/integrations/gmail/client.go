// Package gmail sends meeting summary emails through the Gmail REST API.
// Messages are assembled as RFC 822 MIME and submitted base64url encoded,
// the way the users.messages.send endpoint expects.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	vmerrors "github.com/verimeet/verimeet/pkg/errors"
	"github.com/verimeet/verimeet/pkg/logging"
)

const defaultBaseURL = "https://www.googleapis.com/gmail/v1"

// DefaultSender is used when no sender address is configured.
const DefaultSender = "noreply@verimeet.com"

// Config holds Gmail API settings.
type Config struct {
	Token  string `yaml:"token"`
	Sender string `yaml:"sender"`
}

// VerifiedFact is a fact check outcome listed in a summary email.
type VerifiedFact struct {
	Claim    string
	Verified bool
}

// Client talks to the Gmail API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	log        logging.Logger
}

// NewClient creates a Gmail client.
func NewClient(cfg Config, log logging.Logger) *Client {
	if cfg.Sender == "" {
		cfg.Sender = DefaultSender
	}
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

// IsConfigured reports whether an access token is present.
func (c *Client) IsConfigured() bool {
	return c.cfg.Token != ""
}

// SendSummaryEmail sends a meeting summary with an optional verified facts
// section, as a multipart message with plain text and HTML alternatives.
func (c *Client) SendSummaryEmail(ctx context.Context, recipients []string, subject, summary string, facts []VerifiedFact) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("gmail: %w", vmerrors.ErrNotConfigured)
	}
	if len(recipients) == 0 {
		return "", fmt.Errorf("gmail: %w", vmerrors.ErrMissingRecipients)
	}

	raw, err := buildMultipartMessage(c.cfg.Sender, recipients, subject, summary, formatHTMLBody(summary, facts))
	if err != nil {
		return "", fmt.Errorf("gmail: build message: %w", err)
	}

	id, err := c.send(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("gmail: send summary: %w", err)
	}

	c.log.Info("summary email sent",
		logging.F("message_id", id),
		logging.F("recipients", len(recipients)))
	return id, nil
}

// SendSimpleEmail sends a single-part message.
func (c *Client) SendSimpleEmail(ctx context.Context, recipients []string, subject, body string, isHTML bool) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("gmail: %w", vmerrors.ErrNotConfigured)
	}
	if len(recipients) == 0 {
		return "", fmt.Errorf("gmail: %w", vmerrors.ErrMissingRecipients)
	}

	contentType := "text/plain"
	if isHTML {
		contentType = "text/html"
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", c.cfg.Sender)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s; charset=\"UTF-8\"\r\n\r\n", contentType)
	msg.WriteString(body)

	id, err := c.send(ctx, []byte(msg.String()))
	if err != nil {
		return "", fmt.Errorf("gmail: send: %w", err)
	}
	return id, nil
}

func (c *Client) send(ctx context.Context, rawMessage []byte) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString(rawMessage),
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/users/me/messages/send", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", vmerrors.ErrMalformedResponse, err)
	}
	return result.ID, nil
}

// buildMultipartMessage assembles a multipart/alternative RFC 822 message
// with plain text and HTML parts.
func buildMultipartMessage(sender string, recipients []string, subject, plainBody, htmlBody string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", sender)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	plainHeader := textproto.MIMEHeader{}
	plainHeader.Set("Content-Type", "text/plain; charset=\"UTF-8\"")
	part, err := mw.CreatePart(plainHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(plainBody)); err != nil {
		return nil, err
	}

	htmlHeader := textproto.MIMEHeader{}
	htmlHeader.Set("Content-Type", "text/html; charset=\"UTF-8\"")
	part, err = mw.CreatePart(htmlHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(htmlBody)); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	msg.Write(buf.Bytes())
	return msg.Bytes(), nil
}

// formatHTMLBody renders the summary and fact checks as the HTML email part.
func formatHTMLBody(summary string, facts []VerifiedFact) string {
	var b strings.Builder
	b.WriteString("<html>\n<body>\n")
	b.WriteString("<h2>Meeting Summary</h2>\n")
	fmt.Fprintf(&b, "<div style=\"white-space: pre-wrap; font-family: Arial, sans-serif;\">\n%s\n</div>\n",
		html.EscapeString(summary))

	if len(facts) > 0 {
		b.WriteString("<h3>Verified Facts</h3>\n<ul>\n")
		for _, fact := range facts {
			status := "⚠️ NEEDS VERIFICATION"
			if fact.Verified {
				status = "✅ VERIFIED"
			}
			fmt.Fprintf(&b, "<li><strong>%s</strong>: %s</li>\n", html.EscapeString(fact.Claim), status)
		}
		b.WriteString("</ul>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}
