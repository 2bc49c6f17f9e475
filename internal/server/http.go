package server

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gatewaybench/internal/observability"
)

// DefaultBodySizeLimit caps request bodies when Config leaves it empty.
const DefaultBodySizeLimit = "10M"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MetricsEnabled  bool   // Whether to expose the Prometheus endpoint
	MetricsEndpoint string // default /metrics
	BodySizeLimit   string // echo notation, e.g. "10M"
}

// New creates the HTTP server
func New(benchmarks Benchmarks, chat Chat, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(benchmarks, chat)

	// Order matters: the request id must exist before anything logs.
	e.Use(requestID())
	e.Use(requestLogger())
	e.Use(middleware.Recover())

	bodySizeLimit := cfg.BodySizeLimit
	if bodySizeLimit == "" {
		bodySizeLimit = DefaultBodySizeLimit
	}
	e.Use(middleware.BodyLimit(bodySizeLimit))

	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		e.GET(metricsPath(cfg.MetricsEndpoint), echo.WrapHandler(observability.Handler()))
	}

	api := e.Group("/api")
	api.GET("/models", handler.Models)
	api.GET("/benchmarks", handler.ListBenchmarks)
	api.POST("/benchmarks", handler.RunBenchmarks)
	api.GET("/leaderboard", handler.Leaderboard)
	api.POST("/chat", handler.Chat)

	return &Server{echo: e, handler: handler}
}

// metricsPath cleans the configured endpoint, refusing paths that would
// shadow the API or the health check.
func metricsPath(endpoint string) string {
	if endpoint == "" {
		return "/metrics"
	}
	p := path.Clean("/" + endpoint)
	if p == "/" || p == "/health" || p == "/api" || strings.HasPrefix(p, "/api/") {
		return "/metrics"
	}
	return p
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler so the server can be driven by httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
