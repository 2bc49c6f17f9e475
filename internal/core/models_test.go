package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitModelID(t *testing.T) {
	tests := []struct {
		id, provider, model string
	}{
		{"openai/gpt-4o", "openai", "gpt-4o"},
		{"groq/llama-3.1-70b-versatile", "groq", "llama-3.1-70b-versatile"},
		{"gpt-4o", "gpt-4o", ""},
		{"a/b/c", "a", "b/c"},
		{"", "", ""},
	}
	for _, tt := range tests {
		provider, model := SplitModelID(tt.id)
		assert.Equal(t, tt.provider, provider, tt.id)
		assert.Equal(t, tt.model, model, tt.id)
	}
}

func TestNewBenchmarkEntry(t *testing.T) {
	result := &BenchmarkResult{
		ModelID:          "xai/grok-3-beta",
		TokensPerSecond:  33,
		TimeToFirstToken: 0.3,
		TotalTime:        0.3 + 100.0/33,
		Timestamp:        1700000000000,
	}

	entry := NewBenchmarkEntry(result, "Grok 3 Beta")
	assert.Equal(t, "Grok 3 Beta", entry.ModelName)
	assert.Equal(t, "xai", entry.Provider)
	assert.Equal(t, result.TotalTime, entry.TotalTime)

	unlabeled := NewBenchmarkEntry(result, "")
	assert.Equal(t, "xai/grok-3-beta", unlabeled.ModelName)
}
