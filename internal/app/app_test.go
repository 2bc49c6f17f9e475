package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewaybench/config"
)

func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"openai/gpt-4o","object":"model"},{"id":"xai/grok-3-beta","object":"model"}]}`))
		case "/v1/chat/completions":
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(gatewayURL string) *config.Config {
	cfg := config.Defaults()
	cfg.Gateway.BaseURL = gatewayURL + "/v1"
	cfg.Gateway.APIKey = "test-key"
	return &cfg
}

func get(t *testing.T, h http.Handler, target string) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNew_RequiresValidConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)

	cfg := config.Defaults()
	cfg.Benchmark.Mode = "turbo"
	_, err = New(context.Background(), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "benchmark.mode")
}

func TestApp_StaticCatalogEndToEnd(t *testing.T) {
	gw := fakeGateway(t)
	a, err := New(context.Background(), testConfig(gw.URL), WithClock(quartz.NewMock(t)))
	require.NoError(t, err)
	h := a.Handler()

	models := get(t, h, "/api/models")["models"].([]any)
	assert.Len(t, models, 10)
	for _, m := range models {
		model := m.(map[string]any)
		if model["id"] == "xai/grok-3-beta" {
			assert.Equal(t, false, model["isAvailable"])
		}
	}

	first := get(t, h, "/api/benchmarks")
	assert.Equal(t, "benchmark", first["source"])
	assert.Len(t, first["data"], 10)
	assert.Equal(t, "cache", get(t, h, "/api/benchmarks")["source"])

	board := get(t, h, "/api/leaderboard")["data"].([]any)
	assert.NotEmpty(t, board)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"hello"}]}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "openai/gpt-4o-mini", rec.Header().Get("X-Model-ID"))
	assert.Contains(t, rec.Body.String(), "[DONE]")
}

func TestApp_GatewayCatalog(t *testing.T) {
	gw := fakeGateway(t)
	cfg := testConfig(gw.URL)
	cfg.Catalog.Source = config.CatalogSourceGateway

	a, err := New(context.Background(), cfg, WithClock(quartz.NewMock(t)))
	require.NoError(t, err)

	models := get(t, a.Handler(), "/api/models")["models"].([]any)
	require.Len(t, models, 2)
	ids := []string{models[0].(map[string]any)["id"].(string), models[1].(map[string]any)["id"].(string)}
	assert.ElementsMatch(t, []string{"openai/gpt-4o", "xai/grok-3-beta"}, ids)
}

func TestApp_LiveBenchmark(t *testing.T) {
	gw := fakeGateway(t)
	cfg := testConfig(gw.URL)
	cfg.Benchmark.Mode = config.BenchmarkModeLive

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/benchmarks", strings.NewReader(`{"modelId":"openai/gpt-4o"}`))
	req.Header.Set("Content-Type", "application/json")
	a.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data struct {
			ModelID         string  `json:"modelId"`
			TokensPerSecond float64 `json:"tokensPerSecond"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "openai/gpt-4o", body.Data.ModelID)
	assert.Greater(t, body.Data.TokensPerSecond, 0.0)
}

func TestShutdown_Idempotent(t *testing.T) {
	gw := fakeGateway(t)
	a, err := New(context.Background(), testConfig(gw.URL))
	require.NoError(t, err)

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestNew_UnreachableResultStore(t *testing.T) {
	gw := fakeGateway(t)
	cfg := testConfig(gw.URL)
	cfg.Benchmark.RedisURL = "redis://127.0.0.1:1/0"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result store")
}
