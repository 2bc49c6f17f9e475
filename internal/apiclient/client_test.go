package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchModels_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"id":"openai/gpt-4o","label":"GPT-4o","isAvailable":true,"tokensPerSecond":30.5,"rank":2}]}`))
	}))
	defer srv.Close()

	models, err := New(srv.URL+"/").FetchModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "GPT-4o", models[0].Label)
	require.NotNil(t, models[0].Rank)
	assert.Equal(t, 2, *models[0].Rank)
}

func TestFetchModels_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	models, err := New(srv.URL, WithRetry(3, 0)).FetchModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, models)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchModels_FallsBackToDefaults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to fetch models"}`))
	}))
	defer srv.Close()

	models, err := New(srv.URL, WithRetry(3, 0)).FetchModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to fetch models")
	assert.EqualValues(t, 4, calls.Load(), "first attempt plus three retries")

	assert.Equal(t, DefaultModels(), models)
	for _, m := range models {
		assert.True(t, m.IsAvailable, m.ID)
	}
}

func TestFetchModels_WaitsBetweenAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"id":"xai/grok-3-beta","label":"Grok 3 Beta","isAvailable":true}]}`))
	}))
	defer srv.Close()

	clock := quartz.NewMock(t)
	client := New(srv.URL, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := client.FetchModels(context.Background())
		done <- err
	}()

	var wait time.Duration
	require.Eventually(t, func() bool {
		d, ok := clock.Peek()
		wait = d
		return ok
	}, time.Second, time.Millisecond)
	assert.Equal(t, DefaultRetryDelay, wait)
	assert.EqualValues(t, 1, calls.Load())

	clock.Advance(wait).MustWait(context.Background())
	require.NoError(t, <-done)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetchModels_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	models, err := New(srv.URL, WithClock(quartz.NewMock(t))).FetchModels(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, models, 4)
}

func TestFetchLeaderboardAndBenchmarks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/leaderboard":
			_, _ = w.Write([]byte(`{"data":[{"model":"gpt-4o","provider":"openai","tokensPerSecond":30.5,"rank":1}]}`))
		case "/api/benchmarks":
			_, _ = w.Write([]byte(`{"source":"cache","data":[{"modelId":"openai/gpt-4o","modelName":"GPT-4o","provider":"openai","tokensPerSecond":31}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	client := New(srv.URL)

	board, err := client.FetchLeaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "gpt-4o", board[0].Model)

	entries, source, err := client.FetchBenchmarks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cache", source)
	require.Len(t, entries, 1)
	assert.Equal(t, "GPT-4o", entries[0].ModelName)
}

func TestRunBenchmarks(t *testing.T) {
	var gotBody map[string][]string
	var gotRefresh string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotRefresh = r.URL.Query().Get("refresh")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"success":true,"results":[{"modelId":"openai/gpt-4o","tokensPerSecond":31,"timeToFirstToken":0.3,"totalTime":3.5,"timestamp":1}]}`))
	}))
	defer srv.Close()
	client := New(srv.URL)

	results, err := client.RunBenchmarks(context.Background(), []string{"openai/gpt-4o"}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 31, results[0].TokensPerSecond, 1e-9)
	assert.Equal(t, []string{"openai/gpt-4o"}, gotBody["models"])
	assert.Equal(t, "true", gotRefresh)

	_, err = client.RunBenchmarks(context.Background(), nil, false)
	require.NoError(t, err)
	assert.NotNil(t, gotBody["models"])
	assert.Empty(t, gotBody["models"])
	assert.Empty(t, gotRefresh)
}

func TestErrorBodyDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Failed to run benchmark","details":"slow down"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).RunBenchmarks(context.Background(), nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429 Failed to run benchmark: slow down")
}
