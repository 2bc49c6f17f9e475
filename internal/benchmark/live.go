package benchmark

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/tidwall/gjson"

	"gatewaybench/internal/core"
)

const (
	livePrompt    = "Explain the principles of quantum computing to a high school student."
	liveMaxTokens = 100
)

// Providers the live benchmark knows how to reach through the gateway.
var liveProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"mistral":   true,
	"groq":      true,
	"google":    true,
	"xai":       true,
}

// ErrUnsupportedProvider is returned for models whose provider the live
// benchmark cannot reach.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Live measures a model by streaming one completion through the gateway.
// Time to first token is measured to the first chunk carrying content;
// tokens/second divides completion tokens by the time spent after it.
type Live struct {
	provider core.ChatProvider
	clock    quartz.Clock
}

// NewLive creates a live generator. A nil clock means real time.
func NewLive(provider core.ChatProvider, clock quartz.Clock) *Live {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Live{provider: provider, clock: clock}
}

// Name implements Generator.
func (l *Live) Name() string { return "live" }

// Generate implements Generator.
func (l *Live) Generate(ctx context.Context, modelID string) (*core.BenchmarkResult, error) {
	provider, _ := core.SplitModelID(modelID)
	if !liveProviders[strings.ToLower(provider)] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	maxTokens := liveMaxTokens
	req := &core.ChatRequest{
		Model:         modelID,
		Messages:      []core.Message{{Role: "user", Content: livePrompt}},
		MaxTokens:     &maxTokens,
		StreamOptions: &core.StreamOptions{IncludeUsage: true},
	}

	start := l.clock.Now()
	stream, err := l.provider.StreamChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", modelID, err)
	}
	defer stream.Close()

	var (
		ttft      time.Duration
		gotFirst  bool
		chunks    int
		usageToks int64
	)

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		payload, ok := bytes.CutPrefix(scanner.Bytes(), []byte("data:"))
		if !ok {
			continue
		}
		payload = bytes.TrimSpace(payload)
		if string(payload) == "[DONE]" {
			break
		}

		if content := gjson.GetBytes(payload, "choices.0.delta.content").String(); content != "" {
			if !gotFirst {
				ttft = l.clock.Since(start)
				gotFirst = true
			}
			chunks++
		}
		if n := gjson.GetBytes(payload, "usage.completion_tokens").Int(); n > 0 {
			usageToks = n
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("benchmark %s: reading stream: %w", modelID, err)
	}
	total := l.clock.Since(start)

	if !gotFirst {
		return nil, fmt.Errorf("benchmark %s: stream carried no content", modelID)
	}

	tokens := float64(chunks)
	if usageToks > 0 {
		tokens = float64(usageToks)
	}
	generation := total - ttft
	if generation <= 0 {
		generation = total
	}

	var tps float64
	if generation > 0 {
		tps = tokens / generation.Seconds()
	}

	return &core.BenchmarkResult{
		ModelID:          modelID,
		TokensPerSecond:  tps,
		TimeToFirstToken: ttft.Seconds(),
		TotalTime:        total.Seconds(),
		Timestamp:        l.clock.Now().UnixMilli(),
	}, nil
}
