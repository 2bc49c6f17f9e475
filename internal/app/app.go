// Package app wires configuration, the gateway client and the benchmark
// services into a runnable server and controls its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/quartz"

	"gatewaybench/config"
	"gatewaybench/internal/aggregator"
	"gatewaybench/internal/benchmark"
	"gatewaybench/internal/cache"
	"gatewaybench/internal/catalog"
	"gatewaybench/internal/chat"
	"gatewaybench/internal/gateway"
	"gatewaybench/internal/httpclient"
	"gatewaybench/internal/leaderboard"
	"gatewaybench/internal/llmclient"
	"gatewaybench/internal/server"
)

// App represents the main application with all its dependencies.
type App struct {
	config     *config.Config
	gateway    *gateway.Provider
	catalog    *catalog.Cached
	aggregator *aggregator.Aggregator
	results    *cache.RedisResults
	server     *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Option customises New.
type Option func(*options)

type options struct {
	clock      quartz.Clock
	httpClient *http.Client
}

// WithClock replaces the wall clock used by caches, retries and benchmark timestamps.
func WithClock(clock quartz.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithHTTPClient replaces the shared outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates an App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{clock: quartz.NewReal()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = httpclient.NewHTTPClient(nil)
	}

	app := &App{config: cfg}

	gwCfg := llmclient.DefaultConfig("gateway", cfg.Gateway.BaseURL)
	app.gateway = gateway.NewWithConfig(gwCfg, cfg.Gateway.APIKey,
		llmclient.WithHTTPClient(httpclient.WithTimeout(o.httpClient, cfg.Gateway.Timeout)),
		llmclient.WithClock(o.clock),
	)

	blocked := catalog.NewBlockList(cfg.Catalog.Unavailable)
	var source catalog.Provider
	switch cfg.Catalog.Source {
	case config.CatalogSourceGateway:
		source = catalog.NewGateway(app.gateway, blocked)
	default:
		source = catalog.NewStatic(blocked)
	}
	app.catalog = catalog.NewCached(source, cfg.Catalog.CacheTTL, o.clock)

	board := leaderboard.New(leaderboard.Config{
		URL: cfg.Leaderboard.URL,
		TTL: cfg.Leaderboard.TTL,
	}, httpclient.WithTimeout(o.httpClient, cfg.Leaderboard.Timeout), o.clock)

	var gen benchmark.Generator
	switch cfg.Benchmark.Mode {
	case config.BenchmarkModeLive:
		gen = benchmark.NewLive(app.gateway, o.clock)
	default:
		gen = benchmark.NewSimulated(o.clock, nil)
	}
	runnerOpts := benchmark.Options{
		TTL:         cfg.Benchmark.ResultTTL,
		Concurrency: cfg.Benchmark.Concurrency,
		Clock:       o.clock,
	}
	if cfg.Benchmark.RedisURL != "" {
		results, err := cache.NewRedisResults(ctx, cache.RedisConfig{URL: cfg.Benchmark.RedisURL})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize result store: %w", err)
		}
		app.results = results
		runnerOpts.Store = results
	}
	runner := benchmark.NewRunner(gen, runnerOpts)

	app.aggregator = aggregator.New(app.catalog, board, runner, cfg.Benchmark.ListingTTL, o.clock)
	chatSvc := chat.New(app.gateway, blocked, cfg.Chat.DefaultModel, cfg.Chat.SystemPrompt)

	app.server = server.New(app.aggregator, chatSvc, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
	})

	app.logStartupInfo(gen.Name())
	return app, nil
}

// Handler exposes the HTTP API, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server, honouring ctx for in-flight requests, then
// closes the result store. Every step is attempted; failures are joined.
// Repeated calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Stop accepting requests
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Close the shared result store
	if a.results != nil {
		if err := a.results.Close(); err != nil {
			slog.Error("result store close error", "error", err)
			errs = append(errs, fmt.Errorf("result store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

func (a *App) logStartupInfo(generator string) {
	cfg := a.config

	slog.Info("gateway configured",
		"base_url", cfg.Gateway.BaseURL,
		"authenticated", cfg.Gateway.APIKey != "",
	)
	slog.Info("catalog configured",
		"source", cfg.Catalog.Source,
		"cache_ttl", cfg.Catalog.CacheTTL,
		"unavailable", len(cfg.Catalog.Unavailable),
	)
	if cfg.Leaderboard.URL == "" {
		slog.Info("leaderboard using built-in table")
	} else {
		slog.Info("leaderboard configured", "url", cfg.Leaderboard.URL, "ttl", cfg.Leaderboard.TTL)
	}
	slog.Info("benchmarks configured",
		"generator", generator,
		"result_ttl", cfg.Benchmark.ResultTTL,
		"listing_ttl", cfg.Benchmark.ListingTTL,
		"concurrency", cfg.Benchmark.Concurrency,
		"shared_store", cfg.Benchmark.RedisURL != "",
	)

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}
}
