package benchmark

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/coder/quartz"

	"gatewaybench/internal/core"
)

// Source supplies uniform random numbers in [0, 1).
type Source interface {
	Float64() float64
}

const seedSalt = 0x9e3779b97f4a7c15

// SeededSource returns the deterministic stream for the seq-th draw of a
// simulator for modelID, so a fresh process replaying the same requests
// reports the same results.
func SeededSource(modelID string, seq uint64) Source {
	return rand.New(rand.NewPCG(xxhash.Sum64String(modelID), seedSalt+seq))
}

// simulatedCompletionTokens is the response length the simulation assumes.
const simulatedCompletionTokens = 100

type profile struct {
	keyword string
	tps     float64
	ttft    float64
}

// Checked in order; the first keyword found in the lowercased id wins.
var profiles = []profile{
	{"small", 40, 0.2},
	{"medium", 30, 0.3},
	{"large", 25, 0.4},
	{"llama", 85, 0.25},
	{"gpt-4", 30, 0.35},
	{"gpt-3.5", 40, 0.3},
	{"claude", 25, 0.4},
	{"gemini", 25, 0.4},
	{"mistral", 30, 0.35},
	{"grok", 33, 0.3},
}

var defaultProfile = profile{tps: 30, ttft: 0.4}

func profileFor(modelID string) profile {
	id := strings.ToLower(modelID)
	for _, p := range profiles {
		if strings.Contains(id, p.keyword) {
			return p
		}
	}
	return defaultProfile
}

// Simulated produces plausible results from per-family base figures with
// random jitter: tokens/second within ±15 % and time to first token within
// ±10 %. It never fails, unknown models get the default profile.
type Simulated struct {
	clock     quartz.Clock
	newSource func(modelID string, seq uint64) Source
	// seq numbers draws across all models; no state is kept per model id.
	seq atomic.Uint64
}

// NewSimulated creates a simulator. newSource builds the random stream for
// one draw; nil means SeededSource. A nil clock means real time.
func NewSimulated(clock quartz.Clock, newSource func(modelID string, seq uint64) Source) *Simulated {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if newSource == nil {
		newSource = SeededSource
	}
	return &Simulated{clock: clock, newSource: newSource}
}

// Name implements Generator.
func (s *Simulated) Name() string { return "simulated" }

// Generate implements Generator.
func (s *Simulated) Generate(_ context.Context, modelID string) (*core.BenchmarkResult, error) {
	base := profileFor(modelID)
	tpsJitter, ttftJitter := s.draw(modelID)

	tps := base.tps * (0.85 + 0.3*tpsJitter)
	ttft := base.ttft * (0.9 + 0.2*ttftJitter)

	return &core.BenchmarkResult{
		ModelID:          modelID,
		TokensPerSecond:  tps,
		TimeToFirstToken: ttft,
		TotalTime:        ttft + simulatedCompletionTokens/tps,
		Timestamp:        s.clock.Now().UnixMilli(),
	}, nil
}

func (s *Simulated) draw(modelID string) (float64, float64) {
	src := s.newSource(modelID, s.seq.Add(1)-1)
	return src.Float64(), src.Float64()
}
