// Package observability exposes the Prometheus metrics recorded by the service.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatewaybench"

var (
	benchmarkCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "benchmark_cache_lookups_total",
		Help:      "Benchmark result cache lookups by outcome (hit or miss).",
	}, []string{"outcome"})

	benchmarkRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "benchmark_runs_total",
		Help:      "Benchmark generations by generator and outcome.",
	}, []string{"generator", "outcome"})

	// Labelled by generator only: model ids come from request bodies.
	benchmarkTokensPerSecond = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "benchmark_tokens_per_second",
		Help:      "Tokens/second of successful benchmark runs by generator.",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 7),
	}, []string{"generator"})

	leaderboardFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leaderboard_fetches_total",
		Help:      "Leaderboard lookups by outcome (cache, upstream, fallback).",
	}, []string{"outcome"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RecordBenchmarkCache counts a result cache lookup.
func RecordBenchmarkCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	benchmarkCacheLookups.WithLabelValues(outcome).Inc()
}

// RecordBenchmarkRun counts a generation attempt. tps is only observed on success.
func RecordBenchmarkRun(generator string, tps float64, err error) {
	if err != nil {
		benchmarkRuns.WithLabelValues(generator, "error").Inc()
		return
	}
	benchmarkRuns.WithLabelValues(generator, "success").Inc()
	benchmarkTokensPerSecond.WithLabelValues(generator).Observe(tps)
}

// RecordLeaderboardFetch counts a leaderboard lookup by where the data came from.
func RecordLeaderboardFetch(outcome string) {
	leaderboardFetches.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, seconds float64) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
