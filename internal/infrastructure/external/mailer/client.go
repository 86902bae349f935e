// Package mailer implements the HTTP client for the transactional mail
// service used to deliver rendered certificates to interns.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/internhub/internship-back-office/internal/domain/shared"
	"github.com/internhub/internship-back-office/pkg/circuitbreaker"
	"github.com/internhub/internship-back-office/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the mailer client.
type ClientConfig struct {
	// BaseURL is the mail service base URL.
	BaseURL string

	// APIKey authenticates requests to the service.
	APIKey string

	// FromAddress is the sender address on outgoing mail.
	FromAddress string

	// FromName is the sender display name.
	FromName string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RetryConfig controls retry behavior for transient failures.
	RetryConfig retry.Config

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:     baseURL,
		Timeout:     30 * time.Second,
		RetryConfig: retry.DefaultConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE
// ══════════════════════════════════════════════════════════════════════════════

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is an outgoing mail message.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    bool
	Attach  []Attachment
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client calls the transactional mail service.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a new mailer client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.RetryConfig.MaxAttempts == 0 {
		config.RetryConfig = retry.DefaultConfig()
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
	c.circuitBreaker = circuitbreaker.MailerBreaker(func(name string, from, to circuitbreaker.State) {
		c.logger.Warn("circuit breaker state changed",
			slog.String("breaker", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
	})
	return c
}

// Wire formats.
type sendRequest struct {
	From        addressDTO      `json:"from"`
	To          addressDTO      `json:"to"`
	Subject     string          `json:"subject"`
	TextBody    string          `json:"text_body,omitempty"`
	HTMLBody    string          `json:"html_body,omitempty"`
	Attachments []attachmentDTO `json:"attachments,omitempty"`
}

type addressDTO struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type attachmentDTO struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"` // base64
}

// Send delivers a message. Failures are wrapped in shared.ErrDelivery.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return shared.NewDomainError("mailer", "send", shared.ErrDelivery, "recipient address is empty")
	}

	operation := func(ctx context.Context) error {
		return c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
			return c.doSend(ctx, msg)
		})
	}

	if err := retry.Do(ctx, c.config.RetryConfig, operation); err != nil {
		return shared.WrapDomainError("mailer", "send", shared.ErrDelivery, "mail delivery failed", err)
	}

	c.logger.Debug("certificate mail sent",
		slog.String("to", msg.To),
		slog.Int("attachments", len(msg.Attach)))

	return nil
}

func (c *Client) doSend(ctx context.Context, msg Message) error {
	req := sendRequest{
		From:    addressDTO{Email: c.config.FromAddress, Name: c.config.FromName},
		To:      addressDTO{Email: msg.To},
		Subject: msg.Subject,
	}
	if msg.HTML {
		req.HTMLBody = msg.Body
	} else {
		req.TextBody = msg.Body
	}
	for _, a := range msg.Attach {
		req.Attachments = append(req.Attachments, attachmentDTO{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to encode send request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to build send request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return retry.Transient(fmt.Errorf("send request failed: %w", err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return retry.Transient(fmt.Errorf("mail service returned %d: %s", resp.StatusCode, truncate(body)))
	default:
		return retry.Permanent(fmt.Errorf("mail service returned %d: %s", resp.StatusCode, truncate(body)))
	}
}

// truncate bounds response bodies included in error messages.
func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
