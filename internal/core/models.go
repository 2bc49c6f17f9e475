package core

import "strings"

// DisplayModel is the catalog view of a "provider/model" pair.
// Only the performance fields change after a benchmark completes.
type DisplayModel struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	IsAvailable     bool     `json:"isAvailable"`
	TokensPerSecond *float64 `json:"tokensPerSecond,omitempty"`
	Rank            *int     `json:"rank,omitempty"`

	// Set only when a benchmark result is cached for the model.
	TimeToFirstToken *float64 `json:"timeToFirstToken,omitempty"`
	TotalTime        *float64 `json:"totalTime,omitempty"`
}

// BenchmarkResult is one throughput measurement. Times are in seconds,
// Timestamp in unix milliseconds. A result is never modified; a newer one
// replaces it.
type BenchmarkResult struct {
	ModelID          string  `json:"modelId"`
	TokensPerSecond  float64 `json:"tokensPerSecond"`
	TimeToFirstToken float64 `json:"timeToFirstToken"`
	TotalTime        float64 `json:"totalTime"`
	Timestamp        int64   `json:"timestamp"`
}

// BenchmarkEntry is a BenchmarkResult decorated with catalog metadata.
type BenchmarkEntry struct {
	ModelID          string  `json:"modelId"`
	ModelName        string  `json:"modelName"`
	Provider         string  `json:"provider"`
	TokensPerSecond  float64 `json:"tokensPerSecond"`
	TimeToFirstToken float64 `json:"timeToFirstToken"`
	TotalTime        float64 `json:"totalTime"`
	Timestamp        int64   `json:"timestamp"`
}

// NewBenchmarkEntry builds the listing row for a result.
func NewBenchmarkEntry(result *BenchmarkResult, label string) BenchmarkEntry {
	if label == "" {
		label = result.ModelID
	}
	provider, _ := SplitModelID(result.ModelID)
	return BenchmarkEntry{
		ModelID:          result.ModelID,
		ModelName:        label,
		Provider:         provider,
		TokensPerSecond:  result.TokensPerSecond,
		TimeToFirstToken: result.TimeToFirstToken,
		TotalTime:        result.TotalTime,
		Timestamp:        result.Timestamp,
	}
}

// LeaderboardEntry is a row of the public throughput leaderboard.
type LeaderboardEntry struct {
	Model           string   `json:"model"`
	Provider        string   `json:"provider,omitempty"`
	TokensPerSecond *float64 `json:"tokensPerSecond,omitempty"`
	Rank            *int     `json:"rank,omitempty"`
}

// SplitModelID splits "provider/model" into its parts. An id without a
// slash has an empty model part.
func SplitModelID(id string) (provider, model string) {
	provider, model, _ = strings.Cut(id, "/")
	return provider, model
}
