// Package llmclient is the JSON-over-HTTP client used to talk to the
// upstream gateway. It retries transient failures with exponential backoff,
// trips a circuit breaker when the gateway keeps failing, and turns error
// responses into core.GatewayError values.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/coder/quartz"

	"gatewaybench/internal/core"
	"gatewaybench/internal/httpclient"
)

// Config holds configuration for the client
type Config struct {
	// Name identifies the upstream in error messages
	Name string

	BaseURL string

	MaxRetries     int           // default 3
	InitialBackoff time.Duration // default 1s
	MaxBackoff     time.Duration // default 30s
	BackoffFactor  float64       // default 2.0

	// CircuitBreaker is optional; nil disables breaking.
	CircuitBreaker *CircuitBreakerConfig
}

// CircuitBreakerConfig holds circuit breaker settings
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures before opening the circuit
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes needed to close it again
	SuccessThreshold int
	// Timeout is how long the circuit stays open before a trial request
	Timeout time.Duration
}

// DefaultConfig returns default client configuration
func DefaultConfig(name, baseURL string) Config {
	return Config{
		Name:           name,
		BaseURL:        baseURL,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		CircuitBreaker: &CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
		},
	}
}

// HeaderSetter decorates every outgoing request, typically with auth headers
type HeaderSetter func(req *http.Request)

// Client sends requests to one upstream base URL
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
	breaker      *circuitBreaker
	clock        quartz.Clock
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the shared default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock sets the clock used for backoff waits and the circuit breaker.
func WithClock(clock quartz.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// New creates a client for config.
func New(config Config, headerSetter HeaderSetter, opts ...Option) *Client {
	c := &Client{
		config:       config,
		headerSetter: headerSetter,
		clock:        quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = httpclient.NewHTTPClient(nil)
	}
	if config.CircuitBreaker != nil {
		c.breaker = newCircuitBreaker(*config.CircuitBreaker, c.clock)
	}
	return c
}

// BaseURL returns the upstream base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Body     any // JSON marshaled when not nil
	Headers  map[string]string
}

// Response is a fully read upstream response
type Response struct {
	StatusCode int
	Body       []byte
}

// Do executes a request with retries and circuit breaking, then unmarshals the response into result
func (c *Client) Do(ctx context.Context, req Request, result any) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return core.NewProviderError(c.config.Name, http.StatusBadGateway, "failed to unmarshal response: "+err.Error(), err)
	}
	return nil
}

// DoRaw executes a request with retries and circuit breaking, returning the raw response
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	if err := c.allow(); err != nil {
		return nil, err
	}

	var lastErr error
	maxAttempts := max(c.config.MaxRetries+1, 1)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, c.calculateBackoff(attempt)); err != nil {
				return nil, err
			}
		}

		resp, err := c.doRequest(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.recordFailure()
			continue
		}

		if isRetryable(resp.StatusCode) {
			c.recordFailure()
			lastErr = core.ParseProviderError(c.config.Name, resp.StatusCode, resp.Body, nil)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			if resp.StatusCode >= 500 {
				c.recordFailure()
			}
			return nil, core.ParseProviderError(c.config.Name, resp.StatusCode, resp.Body, nil)
		}

		c.recordSuccess()
		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, core.NewProviderError(c.config.Name, http.StatusBadGateway, "request failed after retries", nil)
}

// DoStream executes a streaming request and hands back the open body.
// Streams are never retried: part of the body may already have been consumed.
func (c *Client) DoStream(ctx context.Context, req Request) (io.ReadCloser, error) {
	if err := c.allow(); err != nil {
		return nil, err
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordFailure()
		return nil, core.NewProviderError(c.config.Name, http.StatusBadGateway, "failed to send request: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.recordFailure()
		}
		return nil, core.ParseProviderError(c.config.Name, resp.StatusCode, respBody, nil)
	}

	c.recordSuccess()
	return resp.Body, nil
}

func (c *Client) doRequest(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewProviderError(c.config.Name, http.StatusBadGateway, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewProviderError(c.config.Name, http.StatusBadGateway, "failed to read response: "+err.Error(), err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewInvalidRequestError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.config.BaseURL+req.Endpoint, bodyReader)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	timer := c.clock.NewTimer(d, "llmclient", "backoff")
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// calculateBackoff returns InitialBackoff * BackoffFactor^(attempt-1), capped at MaxBackoff
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffFactor, float64(attempt-1))
	if backoff > float64(c.config.MaxBackoff) {
		backoff = float64(c.config.MaxBackoff)
	}
	return time.Duration(backoff)
}

func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusGatewayTimeout
}

func (c *Client) allow() error {
	if c.breaker != nil && !c.breaker.Allow() {
		return core.NewProviderError(c.config.Name, http.StatusServiceUnavailable,
			"circuit breaker is open - gateway temporarily unavailable", nil)
	}
	return nil
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}
