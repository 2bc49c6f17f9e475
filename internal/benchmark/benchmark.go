// Package benchmark produces and caches per-model throughput results.
//
// Results are cached per model id for a fixed TTL (24 h by default). A
// failed generation is logged and reported as a nil result; it never
// replaces or evicts a cached one.
package benchmark

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"gatewaybench/internal/cache"
	"gatewaybench/internal/core"
	"gatewaybench/internal/observability"
)

// Generator produces a fresh benchmark result for a model.
type Generator interface {
	Name() string
	Generate(ctx context.Context, modelID string) (*core.BenchmarkResult, error)
}

// DefaultResultTTL is how long a result stays fresh.
const DefaultResultTTL = 24 * time.Hour

// Options configures a Runner.
type Options struct {
	// TTL of cached results. Zero means DefaultResultTTL; negative disables caching.
	TTL time.Duration
	// Concurrency bounds RunMany. Values below 1 mean 1.
	Concurrency int
	Clock       quartz.Clock
	// Fallback fills in models that have no cached result when listing.
	// Nil means a Simulated generator.
	Fallback Generator
	// Store optionally persists results beyond this process.
	Store Store
}

// Store is a shared result store consulted on local cache misses.
type Store interface {
	// Load returns nil, nil when nothing is stored for modelID.
	Load(ctx context.Context, modelID string) (*core.BenchmarkResult, error)
	Save(ctx context.Context, res *core.BenchmarkResult, ttl time.Duration) error
}

// Runner owns the result cache and runs generators on misses.
type Runner struct {
	gen         Generator
	fallback    Generator
	results     *cache.TTLCache[string, *core.BenchmarkResult]
	store       Store
	concurrency int
}

// NewRunner creates a Runner around gen.
func NewRunner(gen Generator, opts Options) *Runner {
	if opts.TTL == 0 {
		opts.TTL = DefaultResultTTL
	}
	if opts.Fallback == nil {
		if sim, ok := gen.(*Simulated); ok {
			opts.Fallback = sim
		} else {
			opts.Fallback = NewSimulated(opts.Clock, nil)
		}
	}
	return &Runner{
		gen:         gen,
		fallback:    opts.Fallback,
		results:     cache.New[string, *core.BenchmarkResult](opts.TTL, opts.Clock),
		store:       opts.Store,
		concurrency: max(opts.Concurrency, 1),
	}
}

// Cached returns the live cached result for modelID without generating.
func (r *Runner) Cached(modelID string) (*core.BenchmarkResult, bool) {
	return r.results.Get(modelID)
}

// Result returns the cached result for modelID, generating one on a miss.
// Repeated calls inside the TTL return the identical value. Nil means the
// generator failed.
func (r *Runner) Result(ctx context.Context, modelID string) *core.BenchmarkResult {
	if res, ok := r.lookup(ctx, modelID); ok {
		observability.RecordBenchmarkCache(true)
		return res
	}
	observability.RecordBenchmarkCache(false)
	return r.run(ctx, r.gen, modelID)
}

// Refresh generates a new result for modelID regardless of the cache. On
// success it supersedes the cached entry.
func (r *Runner) Refresh(ctx context.Context, modelID string) *core.BenchmarkResult {
	return r.run(ctx, r.gen, modelID)
}

// All returns one result per model id, in order: the cached one when fresh,
// else a fallback-generated one, which is cached.
func (r *Runner) All(ctx context.Context, modelIDs []string) []*core.BenchmarkResult {
	out := make([]*core.BenchmarkResult, 0, len(modelIDs))
	for _, id := range modelIDs {
		res, ok := r.lookup(ctx, id)
		if !ok {
			res = r.run(ctx, r.fallback, id)
		}
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

// RunMany benchmarks every id concurrently and waits for all of them.
// Duplicate ids run once. Results keep input order; failures are omitted.
// With force unset, fresh cached results are reused.
func (r *Runner) RunMany(ctx context.Context, modelIDs []string, force bool) []*core.BenchmarkResult {
	ids := dedupe(modelIDs)
	results := make([]*core.BenchmarkResult, len(ids))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			// Queued models are skipped once the caller goes away.
			if err := ctx.Err(); err != nil {
				return err
			}
			if force {
				results[i] = r.Refresh(ctx, id)
			} else {
				results[i] = r.Result(ctx, id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("benchmark batch cut short", "requested", len(ids), "error", err)
	}

	out := make([]*core.BenchmarkResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

func (r *Runner) run(ctx context.Context, gen Generator, modelID string) *core.BenchmarkResult {
	res, err := gen.Generate(ctx, modelID)
	if err != nil {
		observability.RecordBenchmarkRun(gen.Name(), 0, err)
		slog.Error("benchmark failed", "model", modelID, "generator", gen.Name(), "error", err)
		return nil
	}
	observability.RecordBenchmarkRun(gen.Name(), res.TokensPerSecond, nil)
	r.results.Set(modelID, res)
	if r.store != nil && r.results.TTL() > 0 {
		if err := r.store.Save(ctx, res, r.results.TTL()); err != nil {
			slog.Warn("failed to persist benchmark result", "model", modelID, "error", err)
		}
	}
	slog.Debug("benchmark completed", "model", modelID, "generator", gen.Name(),
		"tokens_per_second", res.TokensPerSecond, "ttft", res.TimeToFirstToken)
	return res
}

// lookup checks the local cache, then the shared store. A stored result is
// adopted locally so later calls return the same value.
func (r *Runner) lookup(ctx context.Context, modelID string) (*core.BenchmarkResult, bool) {
	if res, ok := r.results.Get(modelID); ok {
		return res, true
	}
	if r.store == nil || r.results.TTL() <= 0 {
		return nil, false
	}
	res, err := r.store.Load(ctx, modelID)
	if err != nil {
		slog.Warn("failed to load stored benchmark result", "model", modelID, "error", err)
		return nil, false
	}
	if res == nil {
		return nil, false
	}
	r.results.Set(modelID, res)
	return res, true
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
