// Package apiclient talks to a running gatewaybench server on behalf of the CLI.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/quartz"

	"gatewaybench/internal/core"
	"gatewaybench/internal/httpclient"
)

const (
	// DefaultMaxRetries is the number of retries after the first failed model fetch.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the fixed wait between model fetch attempts.
	DefaultRetryDelay = 5 * time.Second
)

// DefaultModels is what FetchModels returns when the server cannot be reached.
func DefaultModels() []core.DisplayModel {
	tps := func(v float64) *float64 { return &v }
	return []core.DisplayModel{
		{ID: "xai/grok-3-beta", Label: "Grok 3 Beta", IsAvailable: true, TokensPerSecond: tps(32.7)},
		{ID: "anthropic/claude-3-7-sonnet", Label: "Claude 3.7 Sonnet", IsAvailable: true, TokensPerSecond: tps(28.5)},
		{ID: "groq/llama-3.1-70b-versatile", Label: "Llama 3.1 70B", IsAvailable: true, TokensPerSecond: tps(90.4)},
		{ID: "google/gemini-2.0-flash-002", Label: "Gemini 2.0 Flash", IsAvailable: true, TokensPerSecond: tps(26.8)},
	}
}

// Client calls the gatewaybench HTTP API.
type Client struct {
	baseURL    string
	http       *http.Client
	clock      quartz.Clock
	maxRetries int
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithClock sets the clock used for retry waits.
func WithClock(clock quartz.Clock) Option {
	return func(cl *Client) { cl.clock = clock }
}

// WithRetry sets the retry count and the delay between attempts. A zero
// delay retries immediately.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(cl *Client) {
		cl.maxRetries = max(maxRetries, 0)
		cl.retryDelay = max(delay, 0)
	}
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clock:      quartz.NewReal(),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewHTTPClient(nil)
	}
	return c
}

// FetchModels lists the server's models, retrying on failure. When every
// attempt fails it returns DefaultModels together with the last error so
// callers can still render something.
func (c *Client) FetchModels(ctx context.Context) ([]core.DisplayModel, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying model fetch", "attempt", attempt, "error", lastErr)
			if err := c.wait(ctx); err != nil {
				return DefaultModels(), err
			}
		}

		var resp struct {
			Models []core.DisplayModel `json:"models"`
		}
		if lastErr = c.getJSON(ctx, "/api/models", &resp); lastErr == nil {
			return resp.Models, nil
		}
	}
	return DefaultModels(), fmt.Errorf("fetch models: %w", lastErr)
}

// FetchLeaderboard returns the leaderboard rows the server currently serves.
func (c *Client) FetchLeaderboard(ctx context.Context) ([]core.LeaderboardEntry, error) {
	var resp struct {
		Data []core.LeaderboardEntry `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/leaderboard", &resp); err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	return resp.Data, nil
}

// FetchBenchmarks returns the benchmark listing and whether it was served
// from the listing cache ("cache") or freshly assembled ("benchmark").
func (c *Client) FetchBenchmarks(ctx context.Context) ([]core.BenchmarkEntry, string, error) {
	var resp struct {
		Data   []core.BenchmarkEntry `json:"data"`
		Source string                `json:"source"`
	}
	if err := c.getJSON(ctx, "/api/benchmarks", &resp); err != nil {
		return nil, "", fmt.Errorf("fetch benchmarks: %w", err)
	}
	return resp.Data, resp.Source, nil
}

// RunBenchmarks asks the server to benchmark models. An empty list means
// every available model; refresh bypasses cached results.
func (c *Client) RunBenchmarks(ctx context.Context, models []string, refresh bool) ([]*core.BenchmarkResult, error) {
	if models == nil {
		models = []string{}
	}
	path := "/api/benchmarks"
	if refresh {
		path += "?" + url.Values{"refresh": {"true"}}.Encode()
	}

	var resp struct {
		Success bool                    `json:"success"`
		Results []*core.BenchmarkResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, path, map[string][]string{"models": models}, &resp); err != nil {
		return nil, fmt.Errorf("run benchmarks: %w", err)
	}
	return resp.Results, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.retryDelay == 0 {
		return ctx.Err()
	}
	timer := c.clock.NewTimer(c.retryDelay, "apiclient", "retry")
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody core.ErrorBody
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			if errBody.Details != "" {
				return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, errBody.Error, errBody.Details)
			}
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, errBody.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
