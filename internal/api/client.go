// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the authenticated HTTP transport to the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/rolechat/internal/logging"
)

// maxResponseSize bounds non-streaming response bodies.
const maxResponseSize = 10 * 1024 * 1024

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. https://example.com/api (required)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s). Streaming requests
	// are bounded by their context only.
	Timeout time.Duration

	// MaxRetries for idempotent requests that hit a network error or 5xx (default: 2)
	MaxRetries int

	// RetryDelay is the first backoff step; it doubles per attempt (default: 500ms)
	RetryDelay time.Duration

	// RequestsPerSecond caps outgoing requests; 0 disables the limiter (default: 10)
	RequestsPerSecond float64

	// Burst for the limiter (default: 5)
	Burst int

	// UserAgent header value (default: rolechat/0.1)
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://127.0.0.1:8080/api",
		Timeout:           30 * time.Second,
		MaxRetries:        2,
		RetryDelay:        500 * time.Millisecond,
		RequestsPerSecond: 10,
		Burst:             5,
		UserAgent:         "rolechat/0.1",
	}
}

// fill replaces zero values with defaults.
func (c *ClientConfig) fill() {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.Burst <= 0 {
		c.Burst = d.Burst
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client performs authenticated requests against the chat backend. Every
// successful response is unwrapped from its {"data": ...} envelope.
//
// The Client is safe for concurrent use.
type Client struct {
	config        ClientConfig
	httpClient    *http.Client
	streamClient  *http.Client
	creds         Credentials
	limiter       *rate.Limiter
	log           *slog.Logger
	onAuthExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces both underlying HTTP clients. The caller's client
// timeout then applies to streams too.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = logging.OrNop(l) }
}

// OnAuthExpired registers fn to run after a 401/403 cleared the credential.
func OnAuthExpired(fn func()) Option {
	return func(c *Client) { c.onAuthExpired = fn }
}

// NewClient creates a client. A nil config uses DefaultConfig; nil creds
// sends unauthenticated requests.
func NewClient(config *ClientConfig, creds Credentials, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	cfg.fill()

	if creds == nil {
		creds = NewStaticToken("")
	}

	c := &Client{
		config:       cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
		creds:        creds,
		log:          logging.Nop(),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root in use.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, rdr)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tok := c.creds.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (c *Client) wait(ctx context.Context, method, path string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Method: method, Path: path, Cause: err}
	}
	return nil
}

// do sends one JSON request and decodes the envelope's data into out.
// GET requests are retried with exponential backoff on network errors and 5xx.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.config.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return &TransportError{Method: method, Path: path, Cause: ctx.Err()}
			case <-time.After(delay):
			}
		}

		lastErr = c.doOnce(ctx, method, path, body, out)
		if lastErr == nil || !isRetryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
		c.log.Debug("retrying request", "method", method, "path", path, "attempt", attempt+1, "error", lastErr)
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) error {
	if err := c.wait(ctx, method, path); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("request failed", "method", method, "path", path, "error", err)
		return &TransportError{Method: method, Path: path, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Status: resp.StatusCode, Method: method, Path: path, Cause: err}
	}
	c.log.Debug("request done", "method", method, "path", path, "status", resp.StatusCode,
		"duration", time.Since(start), "request_id", req.Header.Get("X-Request-ID"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(method, path, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &TransportError{Status: resp.StatusCode, Method: method, Path: path,
			Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Status: resp.StatusCode, Method: method, Path: path,
			Cause: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

// stream sends a request whose body is consumed incrementally. The caller
// owns the returned body. A non-2xx answer is read in full and returned as
// an error; the body is never handed out in that case.
func (c *Client) stream(ctx context.Context, method, path string, body any) (io.ReadCloser, error) {
	if err := c.wait(ctx, method, path); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson, application/json")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		c.log.Error("stream request failed", "method", method, "path", path, "error", err)
		return nil, &TransportError{Method: method, Path: path, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, c.handleErrorResponse(method, path, resp.StatusCode, data)
	}
	return resp.Body, nil
}

// handleErrorResponse converts a non-2xx answer into a *TransportError.
// 401 and 403 clear the credential and fire the expiry hook.
func (c *Client) handleErrorResponse(method, path string, status int, body []byte) error {
	te := &TransportError{Status: status, Method: method, Path: path}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		te.Message = env.Error
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		te.Cause = ErrSessionExpired
		c.creds.Expire()
		c.log.Warn("credential rejected", "method", method, "path", path, "status", status)
		if c.onAuthExpired != nil {
			c.onAuthExpired()
		}
		return te
	}

	c.log.Error("backend error", "method", method, "path", path, "status", status, "message", te.Message)
	return te
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.Status == 0 || te.Status >= 500
}
