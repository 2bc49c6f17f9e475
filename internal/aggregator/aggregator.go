// Package aggregator merges the model catalog, the public leaderboard and
// the benchmark cache into the payloads served by the API.
package aggregator

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coder/quartz"

	"gatewaybench/internal/benchmark"
	"gatewaybench/internal/cache"
	"gatewaybench/internal/catalog"
	"gatewaybench/internal/core"
	"gatewaybench/internal/leaderboard"
)

// Listing sources reported alongside benchmark listings.
const (
	SourceCache     = "cache"
	SourceBenchmark = "benchmark"
)

// DefaultListingTTL is how long a benchmark listing snapshot is served.
const DefaultListingTTL = 5 * time.Minute

// Leaderboard is the subset of leaderboard.Fetcher the aggregator needs.
type Leaderboard interface {
	Fetch(ctx context.Context) []core.LeaderboardEntry
	Invalidate()
}

type invalidator interface {
	Invalidate()
}

// Aggregator builds the merged views.
type Aggregator struct {
	catalog catalog.Provider
	board   Leaderboard
	runner  *benchmark.Runner
	listing *cache.Value[[]core.BenchmarkEntry]
}

// New creates an Aggregator. A nil clock means real time.
func New(cat catalog.Provider, board Leaderboard, runner *benchmark.Runner, listingTTL time.Duration, clock quartz.Clock) *Aggregator {
	return &Aggregator{
		catalog: cat,
		board:   board,
		runner:  runner,
		listing: cache.NewValue[[]core.BenchmarkEntry](listingTTL, clock),
	}
}

// knownPerformance holds published tokens/second figures for models that
// have neither a benchmark nor a leaderboard row.
var knownPerformance = map[string]float64{
	"xai/grok-3-beta":              32.7,
	"anthropic/claude-3-7-sonnet":  28.5,
	"anthropic/claude-3-opus":      22.1,
	"anthropic/claude-3-5-sonnet":  25.8,
	"groq/llama-3.1-70b-versatile": 90.4,
	"groq/mixtral-8x7b-32768":      75.6,
	"google/gemini-2.0-flash-002":  26.8,
	"google/gemini-2.0-pro-002":    24.3,
	"openai/gpt-4o":                30.5,
	"openai/gpt-4o-mini":           35.2,
	"openai/gpt-4-turbo":           27.6,
	"openai/gpt-3.5-turbo":         40.3,
	"mistral/mistral-large-2":      29.8,
	"mistral/mistral-medium":       38.5,
	"mistral/mistral-small":        42.7,
	"meta/llama-3-8b":              45.2,
	"meta/llama-3-70b":             31.9,
}

// sizeDefault guesses throughput from a size word in the id.
func sizeDefault(id string) float64 {
	switch {
	case strings.Contains(id, "small"):
		return 40
	case strings.Contains(id, "medium"):
		return 35
	case strings.Contains(id, "large"):
		return 30
	default:
		return 25
	}
}

// Models returns the catalog with performance attached, fastest first.
// Tokens/second comes from the first of: a cached benchmark result, the
// matched leaderboard row, the known-performance table, a size default.
// Rank comes from the leaderboard. Timings are attached only from a cached
// benchmark. Ties sort by id.
func (a *Aggregator) Models(ctx context.Context) ([]core.DisplayModel, error) {
	models, err := a.catalog.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	board := a.board.Fetch(ctx)

	for i := range models {
		m := &models[i]
		var boardTPS *float64
		if entry, ok := leaderboard.Match(board, m.ID); ok {
			m.Rank = entry.Rank
			boardTPS = entry.TokensPerSecond
		}

		var tps float64
		if res, ok := a.runner.Cached(m.ID); ok {
			tps = res.TokensPerSecond
			ttft, total := res.TimeToFirstToken, res.TotalTime
			m.TimeToFirstToken, m.TotalTime = &ttft, &total
		} else if boardTPS != nil {
			tps = *boardTPS
		} else if known, ok := knownPerformance[m.ID]; ok {
			tps = known
		} else {
			tps = sizeDefault(m.ID)
		}
		m.TokensPerSecond = &tps
	}

	slices.SortStableFunc(models, func(x, y core.DisplayModel) int {
		if c := cmp.Compare(*y.TokensPerSecond, *x.TokensPerSecond); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return models, nil
}

// Benchmarks lists one entry per catalog model. A live snapshot is served
// as-is (source "cache"); otherwise every model's cached or simulated result
// is collected and snapshotted (source "benchmark").
func (a *Aggregator) Benchmarks(ctx context.Context) ([]core.BenchmarkEntry, string, error) {
	if entries, ok := a.listing.Get(); ok && len(entries) > 0 {
		return slices.Clone(entries), SourceCache, nil
	}

	models, err := a.catalog.Models(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("loading catalog: %w", err)
	}
	labels := catalog.Labels(models)
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	results := a.runner.All(ctx, ids)
	entries := make([]core.BenchmarkEntry, len(results))
	for i, res := range results {
		entries[i] = core.NewBenchmarkEntry(res, labels[res.ModelID])
	}
	a.listing.Set(slices.Clone(entries))
	return entries, SourceBenchmark, nil
}

// RunBenchmark benchmarks one model. With force unset a fresh cached result
// is returned as-is. Nil means the benchmark failed.
func (a *Aggregator) RunBenchmark(ctx context.Context, modelID string, force bool) *core.BenchmarkResult {
	var res *core.BenchmarkResult
	if force {
		res = a.runner.Refresh(ctx, modelID)
	} else {
		res = a.runner.Result(ctx, modelID)
	}
	if res != nil {
		a.refreshListing(ctx, []*core.BenchmarkResult{res})
	}
	return res
}

// RunBenchmarks benchmarks several models concurrently. An empty ids list
// means every available catalog model. Block-listed catalog models are
// skipped.
func (a *Aggregator) RunBenchmarks(ctx context.Context, ids []string, force bool) ([]*core.BenchmarkResult, error) {
	models, err := a.catalog.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	if len(ids) == 0 {
		for _, m := range catalog.Available(models) {
			ids = append(ids, m.ID)
		}
	} else {
		unavailable := make(map[string]bool)
		for _, m := range models {
			if !m.IsAvailable {
				unavailable[m.ID] = true
			}
		}
		ids = slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return unavailable[id] })
	}

	results := a.runner.RunMany(ctx, ids, force)
	a.refreshListing(ctx, results)
	return results, nil
}

// Leaderboard returns the public leaderboard.
func (a *Aggregator) Leaderboard(ctx context.Context) []core.LeaderboardEntry {
	return a.board.Fetch(ctx)
}

// Invalidate drops the cached catalog, leaderboard and benchmark listing.
// Benchmark results are kept: they expire on their own TTL.
func (a *Aggregator) Invalidate() {
	if c, ok := a.catalog.(invalidator); ok {
		c.Invalidate()
	}
	a.board.Invalidate()
	a.listing.Clear()
}

// refreshListing writes new results into a live listing snapshot without
// extending its lifetime.
func (a *Aggregator) refreshListing(ctx context.Context, results []*core.BenchmarkResult) {
	if len(results) == 0 {
		return
	}
	var labels map[string]string
	if models, err := a.catalog.Models(ctx); err == nil {
		labels = catalog.Labels(models)
	}

	a.listing.Update(func(entries []core.BenchmarkEntry) []core.BenchmarkEntry {
		updated := slices.Clone(entries)
		for _, res := range results {
			idx := slices.IndexFunc(updated, func(e core.BenchmarkEntry) bool { return e.ModelID == res.ModelID })
			if idx >= 0 {
				updated[idx] = core.NewBenchmarkEntry(res, updated[idx].ModelName)
				continue
			}
			updated = append(updated, core.NewBenchmarkEntry(res, labels[res.ModelID]))
		}
		return updated
	})
}
