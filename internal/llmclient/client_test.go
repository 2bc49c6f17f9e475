package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewaybench/internal/core"
)

// fastConfig retries quickly so tests do not sleep for real backoff windows.
func fastConfig(url string) Config {
	cfg := DefaultConfig("gateway", url)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestClient_Do_Success(t *testing.T) {
	var received map[string]any
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","model":"openai/gpt-4o"}`))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer sk-test")
	})

	var result core.ChatResponse
	err := client.Do(context.Background(), Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     map[string]string{"model": "openai/gpt-4o"},
		Headers:  map[string]string{"X-Request-ID": "req-1"},
	}, &result)

	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", result.ID)
	assert.Equal(t, "openai/gpt-4o", received["model"])
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "Bearer sk-test", headers.Get("Authorization"))
	assert.Equal(t, "req-1", headers.Get("X-Request-ID"))
}

func TestClient_Do_ErrorParsing(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantType   core.ErrorType
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"Rate limited"}}`, core.ErrorTypeRateLimit},
		{"authentication", http.StatusUnauthorized, `{"error":{"message":"Invalid API key"}}`, core.ErrorTypeAuthentication},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"Invalid model"}}`, core.ErrorTypeInvalidRequest},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"Server error"}}`, core.ErrorTypeProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			cfg := fastConfig(server.URL)
			cfg.MaxRetries = 0
			err := New(cfg, nil).Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/models"}, nil)

			var gwErr *core.GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.wantType, gwErr.Type)
		})
	}
}

func TestClient_Do_RetriesTransientStatus(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	var result core.ModelsResponse
	err := New(fastConfig(server.URL), nil).Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/models"}, &result)

	require.NoError(t, err)
	assert.Equal(t, "list", result.Object)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestClient_Do_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.MaxRetries = 2
	cfg.CircuitBreaker = nil
	err := New(cfg, nil).Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/models"}, nil)

	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, core.ErrorTypeRateLimit, gwErr.Type)
	assert.Equal(t, "slow down", gwErr.Message)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestClient_Do_NonRetryableStatus(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unknown model"}`))
	}))
	defer server.Close()

	err := New(fastConfig(server.URL), nil).Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/models"}, nil)

	require.Error(t, err)
	assert.EqualValues(t, 1, attempts.Load())
}

func TestClient_Do_UnmarshalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var result core.ModelsResponse
	err := New(fastConfig(server.URL), nil).Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/models"}, &result)

	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
}

func TestClient_DoStream(t *testing.T) {
	t.Run("returns the open body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n"))
			_, _ = w.Write([]byte("data: [DONE]\n\n"))
		}))
		defer server.Close()

		stream, err := New(fastConfig(server.URL), nil).DoStream(context.Background(), Request{
			Method:   http.MethodPost,
			Endpoint: "/chat/completions",
			Body:     map[string]bool{"stream": true},
		})
		require.NoError(t, err)
		defer stream.Close()

		body, err := io.ReadAll(stream)
		require.NoError(t, err)
		assert.Contains(t, string(body), "[DONE]")
	})

	t.Run("error status is parsed and not retried", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
		}))
		defer server.Close()

		_, err := New(fastConfig(server.URL), nil).DoStream(context.Background(), Request{Method: http.MethodPost, Endpoint: "/chat/completions"})

		var gwErr *core.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "overloaded", gwErr.Message)
		assert.EqualValues(t, 1, attempts.Load())
	})
}

func TestClient_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := New(fastConfig(server.URL), nil).Do(ctx, Request{Method: http.MethodGet, Endpoint: "/models"}, nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	var attempts atomic.Int32
	var healthy atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		if healthy.Load() {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	clock := quartz.NewMock(t)
	cfg := fastConfig(server.URL)
	cfg.MaxRetries = 0
	cfg.CircuitBreaker = &CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, Timeout: 30 * time.Second}
	client := New(cfg, nil, WithClock(clock))
	req := Request{Method: http.MethodGet, Endpoint: "/models"}

	for i := 0; i < 5; i++ {
		_ = client.Do(context.Background(), req, nil)
	}
	assert.EqualValues(t, 3, attempts.Load(), "breaker should stop requests at the threshold")
	assert.Equal(t, "open", client.breaker.State())

	err := client.Do(context.Background(), req, nil)
	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Contains(t, gwErr.Message, "circuit breaker")

	clock.Advance(31 * time.Second)
	healthy.Store(true)

	require.NoError(t, client.Do(context.Background(), req, nil))
	assert.Equal(t, "closed", client.breaker.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := quartz.NewMock(t)
	cb := newCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Second}, clock)

	cb.RecordFailure()
	assert.Equal(t, "open", cb.State())
	assert.False(t, cb.Allow())

	clock.Advance(2 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, "half-open", cb.State())

	cb.RecordSuccess()
	assert.Equal(t, "half-open", cb.State())
	cb.RecordFailure()
	assert.Equal(t, "open", cb.State())
}

func TestBackoffCalculation(t *testing.T) {
	client := New(Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, BackoffFactor: 2}, nil)

	assert.Equal(t, time.Second, client.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, client.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, client.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, client.calculateBackoff(4))
}
