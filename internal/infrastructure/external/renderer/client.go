// Package renderer implements the HTTP client for the document generation
// service. The service fills a named certificate template with per-intern
// fields and returns the rendered document bytes.
package renderer

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

// ClientConfig contains configuration for the renderer client.
type ClientConfig struct {
	// BaseURL is the document generation service base URL.
	BaseURL string

	// APIKey authenticates requests to the service.
	APIKey string

	// TemplateID names the certificate template to fill.
	TemplateID string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RetryConfig controls retry behavior for transient failures.
	RetryConfig retry.Config

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL, templateID string) ClientConfig {
	return ClientConfig{
		BaseURL:     baseURL,
		TemplateID:  templateID,
		Timeout:     30 * time.Second,
		RetryConfig: retry.DefaultConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client calls the document generation service.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a new renderer client.
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
	c.circuitBreaker = circuitbreaker.RendererBreaker(func(name string, from, to circuitbreaker.State) {
		c.logger.Warn("circuit breaker state changed",
			slog.String("breaker", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
	})
	return c
}

// renderRequest is the wire format of a render call.
type renderRequest struct {
	TemplateID string            `json:"template_id"`
	Fields     map[string]string `json:"fields"`
}

// renderResponse is the wire format of a successful render call. The
// service returns the document as base64.
type renderResponse struct {
	DocumentBase64 string `json:"document"`
	ContentType    string `json:"content_type"`
}

// Render fills the configured template with the given fields and returns
// the rendered document bytes. Failures are wrapped in shared.ErrRender.
func (c *Client) Render(ctx context.Context, fields map[string]string) ([]byte, error) {
	var document []byte

	operation := func(ctx context.Context) error {
		return c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
			data, err := c.doRender(ctx, fields)
			if err != nil {
				return err
			}
			document = data
			return nil
		})
	}

	if err := retry.Do(ctx, c.config.RetryConfig, operation); err != nil {
		return nil, shared.WrapDomainError("renderer", "render", shared.ErrRender, "document generation failed", err)
	}

	c.logger.Debug("certificate rendered",
		slog.Int("size_bytes", len(document)),
		slog.String("template_id", c.config.TemplateID))

	return document, nil
}

func (c *Client) doRender(ctx context.Context, fields map[string]string) ([]byte, error) {
	payload, err := json.Marshal(renderRequest{
		TemplateID: c.config.TemplateID,
		Fields:     fields,
	})
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to encode render request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/render", bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to build render request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("render request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("failed to read render response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, retry.Transient(fmt.Errorf("render service returned %d: %s", resp.StatusCode, truncate(body)))
	default:
		return nil, retry.Permanent(fmt.Errorf("render service returned %d: %s", resp.StatusCode, truncate(body)))
	}

	var decoded renderResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to decode render response: %w", err))
	}

	document, err := base64.StdEncoding.DecodeString(decoded.DocumentBase64)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to decode render payload: %w", err))
	}
	if len(document) == 0 {
		return nil, retry.Permanent(fmt.Errorf("render service returned an empty document"))
	}

	return document, nil
}

// truncate bounds response bodies included in error messages.
func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
