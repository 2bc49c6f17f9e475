// Package leaderboard fetches the public LLM throughput leaderboard and
// matches catalog model ids against it.
//
// Upstream failures never surface to callers: they are logged and a
// built-in table is served instead. The built-in table is not cached, so
// the next call tries upstream again.
package leaderboard

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/singleflight"

	"gatewaybench/internal/cache"
	"gatewaybench/internal/core"
	"gatewaybench/internal/observability"
)

// fetchTimeout bounds a shared upstream request when the client sets no
// timeout of its own.
const fetchTimeout = 10 * time.Second

// Config configures a Fetcher.
type Config struct {
	// URL of the leaderboard document. Empty serves the built-in table.
	URL string
	TTL time.Duration
}

// Fetcher retrieves and caches the leaderboard.
type Fetcher struct {
	url     string
	client  *http.Client
	entries *cache.Value[[]core.LeaderboardEntry]
	group   singleflight.Group
}

// New creates a Fetcher. A nil clock means real time.
func New(cfg Config, client *http.Client, clock quartz.Clock) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{
		url:     cfg.URL,
		client:  client,
		entries: cache.NewValue[[]core.LeaderboardEntry](cfg.TTL, clock),
	}
}

// Fetch returns the leaderboard, from cache while it is fresh. Concurrent
// misses share one upstream request, which outlives the cancellation of
// the caller that started it.
func (f *Fetcher) Fetch(ctx context.Context) []core.LeaderboardEntry {
	if entries, ok := f.entries.Get(); ok {
		observability.RecordLeaderboardFetch("cache")
		return slices.Clone(entries)
	}
	if f.url == "" {
		observability.RecordLeaderboardFetch("fallback")
		return Fallback()
	}

	v, _, _ := f.group.Do("leaderboard", func() (any, error) {
		timeout := f.client.Timeout
		if timeout <= 0 {
			timeout = fetchTimeout
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return f.refresh(ctx), nil
	})
	return slices.Clone(v.([]core.LeaderboardEntry))
}

func (f *Fetcher) refresh(ctx context.Context) []core.LeaderboardEntry {
	raw, err := fetchRaw(ctx, f.client, f.url)
	if err == nil {
		var entries []core.LeaderboardEntry
		entries, err = Parse(raw)
		if err == nil {
			f.entries.Set(entries)
			observability.RecordLeaderboardFetch("upstream")
			slog.Debug("leaderboard fetched", "url", f.url, "entries", len(entries))
			return entries
		}
	}

	slog.Warn("leaderboard unavailable, serving built-in table", "url", f.url, "error", err)
	observability.RecordLeaderboardFetch("fallback")
	return Fallback()
}

// Invalidate drops the cached leaderboard so the next Fetch goes upstream.
func (f *Fetcher) Invalidate() {
	f.entries.Clear()
}
