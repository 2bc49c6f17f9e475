// Package server provides the HTTP API for models, benchmarks, the
// leaderboard and chat.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"gatewaybench/internal/chat"
	"gatewaybench/internal/core"
)

// Benchmarks is the aggregated model and benchmark view behind the API.
type Benchmarks interface {
	Models(ctx context.Context) ([]core.DisplayModel, error)
	Benchmarks(ctx context.Context) ([]core.BenchmarkEntry, string, error)
	RunBenchmark(ctx context.Context, modelID string, force bool) *core.BenchmarkResult
	RunBenchmarks(ctx context.Context, ids []string, force bool) ([]*core.BenchmarkResult, error)
	Leaderboard(ctx context.Context) []core.LeaderboardEntry
	Invalidate()
}

// Chat forwards conversations to the gateway.
type Chat interface {
	Stream(ctx context.Context, req chat.Request) (io.ReadCloser, string, error)
	Complete(ctx context.Context, req chat.Request) (*core.ChatResponse, error)
}

// Handler holds the HTTP handlers
type Handler struct {
	benchmarks Benchmarks
	chat       Chat
}

// NewHandler creates a handler over the given services
func NewHandler(benchmarks Benchmarks, chat Chat) *Handler {
	return &Handler{benchmarks: benchmarks, chat: chat}
}

type modelsResponse struct {
	Models []core.DisplayModel `json:"models"`
}

type benchmarkListResponse struct {
	Data   []core.BenchmarkEntry `json:"data"`
	Source string                `json:"source"`
}

type benchmarkResponse struct {
	Data *core.BenchmarkResult `json:"data"`
}

type batchBenchmarkResponse struct {
	Success bool                    `json:"success"`
	Results []*core.BenchmarkResult `json:"results"`
}

type leaderboardResponse struct {
	Data []core.LeaderboardEntry `json:"data"`
}

// runBenchmarkRequest selects one model or, with Models present, a batch.
// An explicitly empty Models list means every available model.
type runBenchmarkRequest struct {
	ModelID string    `json:"modelId"`
	Models  *[]string `json:"models"`
}

type chatRequest struct {
	Messages []core.Message `json:"messages"`
	ModelID  string         `json:"modelId"`
	// Stream defaults to true.
	Stream *bool `json:"stream"`
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Models handles GET /api/models. ?refresh=true drops cached catalog and
// leaderboard data first.
func (h *Handler) Models(c echo.Context) error {
	h.invalidateOnRefresh(c)
	models, err := h.benchmarks.Models(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch models", err)
	}
	return c.JSON(http.StatusOK, modelsResponse{Models: models})
}

// ListBenchmarks handles GET /api/benchmarks
func (h *Handler) ListBenchmarks(c echo.Context) error {
	entries, source, err := h.benchmarks.Benchmarks(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Failed to fetch benchmark data", err)
	}
	return c.JSON(http.StatusOK, benchmarkListResponse{Data: entries, Source: source})
}

// RunBenchmarks handles POST /api/benchmarks. ?refresh=true bypasses cached results.
func (h *Handler) RunBenchmarks(c echo.Context) error {
	var req runBenchmarkRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body", err)
	}
	force, _ := strconv.ParseBool(c.QueryParam("refresh"))
	ctx := c.Request().Context()

	if req.Models != nil {
		results, err := h.benchmarks.RunBenchmarks(ctx, *req.Models, force)
		if err != nil {
			return errorJSON(c, http.StatusInternalServerError, "Failed to run benchmark", err)
		}
		return c.JSON(http.StatusOK, batchBenchmarkResponse{Success: true, Results: results})
	}

	if req.ModelID == "" {
		return errorJSON(c, http.StatusBadRequest, "Model ID is required", nil)
	}
	result := h.benchmarks.RunBenchmark(ctx, req.ModelID, force)
	if result == nil {
		return errorJSON(c, http.StatusInternalServerError, "Failed to run benchmark", nil)
	}
	return c.JSON(http.StatusOK, benchmarkResponse{Data: result})
}

// Leaderboard handles GET /api/leaderboard. ?refresh=true refetches it.
func (h *Handler) Leaderboard(c echo.Context) error {
	h.invalidateOnRefresh(c)
	return c.JSON(http.StatusOK, leaderboardResponse{Data: h.benchmarks.Leaderboard(c.Request().Context())})
}

func (h *Handler) invalidateOnRefresh(c echo.Context) {
	if refresh, _ := strconv.ParseBool(c.QueryParam("refresh")); refresh {
		h.benchmarks.Invalidate()
	}
}

// Chat handles POST /api/chat. Streams the gateway's SSE body unless the
// request sets "stream": false.
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body", err)
	}
	if len(req.Messages) == 0 {
		return errorJSON(c, http.StatusBadRequest, "Messages are required", nil)
	}

	ctx := c.Request().Context()
	chatReq := chat.Request{Messages: req.Messages, ModelID: req.ModelID}

	if req.Stream != nil && !*req.Stream {
		resp, err := h.chat.Complete(ctx, chatReq)
		if err != nil {
			return chatError(c, err)
		}
		return c.JSON(http.StatusOK, resp)
	}

	stream, model, err := h.chat.Stream(ctx, chatReq)
	if err != nil {
		return chatError(c, err)
	}
	defer func() {
		_ = stream.Close()
	}()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Model-ID", model)
	res.WriteHeader(http.StatusOK)

	if err := copyFlushing(res, stream); err != nil {
		// Headers are already sent; all that is left is to log.
		slog.Warn("chat stream interrupted", "model", model, "error", err,
			"request_id", core.GetRequestID(ctx))
	}
	return nil
}

// copyFlushing relays src to the client, flushing after every chunk so
// tokens arrive as the gateway produces them.
func copyFlushing(res *echo.Response, src io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := res.Write(buf[:n]); werr != nil {
				return werr
			}
			res.Flush()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func chatError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		status = gwErr.HTTPStatusCode()
	}
	return errorJSON(c, status, "Failed to generate response", err)
}

// errorJSON logs err and writes the canonical error body.
func errorJSON(c echo.Context, status int, message string, err error) error {
	if err != nil {
		slog.Error(message, "error", err, "path", c.Path(),
			"request_id", core.GetRequestID(c.Request().Context()))
	}
	return c.JSON(status, core.NewErrorBody(message, err))
}
