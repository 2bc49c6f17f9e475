// Package catalog supplies the list of models a user can pick from.
//
// Every source marks block-listed ids unavailable, so a model on the block
// list is never offered as enabled no matter where the list came from.
package catalog

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/coder/quartz"

	"gatewaybench/internal/cache"
	"gatewaybench/internal/core"
)

// Provider yields the current model catalog.
type Provider interface {
	Models(ctx context.Context) ([]core.DisplayModel, error)
}

// DefaultUnavailable lists the models simulated as down.
var DefaultUnavailable = []string{
	"google/gemini-2.0-pro-002",
	"xai/grok-3-beta",
	"mistral/mistral-medium",
}

// BlockList is an immutable set of model ids that must never be offered.
type BlockList struct {
	ids map[string]struct{}
}

// NewBlockList builds a block list from ids.
func NewBlockList(ids []string) BlockList {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return BlockList{ids: set}
}

// Blocked reports whether id is on the list.
func (b BlockList) Blocked(id string) bool {
	_, ok := b.ids[id]
	return ok
}

func (b BlockList) apply(models []core.DisplayModel) []core.DisplayModel {
	for i := range models {
		models[i].IsAvailable = !b.Blocked(models[i].ID)
	}
	return models
}

type entry struct {
	id, label string
}

var staticModels = []entry{
	{"xai/grok-3-beta", "Grok 3 Beta"},
	{"xai/grok-3-fast-beta", "Grok 3 Fast Beta"},
	{"anthropic/claude-3-7-sonnet", "Claude 3.7 Sonnet"},
	{"groq/llama-3.1-70b-versatile", "Llama 3.1 70B"},
	{"google/gemini-2.0-flash-002", "Gemini 2.0 Flash"},
	{"google/gemini-2.0-pro-002", "Gemini 2.0 Pro"},
	{"openai/gpt-4o", "GPT-4o"},
	{"openai/gpt-4o-mini", "GPT-4o Mini"},
	{"mistral/mistral-large-2", "Mistral Large 2"},
	{"mistral/mistral-small", "Mistral Small"},
}

// Static is the built-in catalog of ten models.
type Static struct {
	blocked BlockList
}

// NewStatic returns the built-in catalog filtered through blocked.
func NewStatic(blocked BlockList) *Static {
	return &Static{blocked: blocked}
}

// Models returns a fresh copy of the built-in list.
func (s *Static) Models(context.Context) ([]core.DisplayModel, error) {
	models := make([]core.DisplayModel, len(staticModels))
	for i, e := range staticModels {
		models[i] = core.DisplayModel{ID: e.id, Label: e.label}
	}
	return s.blocked.apply(models), nil
}

// Gateway derives the catalog from the gateway's model list, falling back to
// the static list when the gateway fails or lists nothing.
type Gateway struct {
	lister   core.ModelLister
	fallback *Static
	blocked  BlockList
}

// NewGateway creates a gateway-backed catalog.
func NewGateway(lister core.ModelLister, blocked BlockList) *Gateway {
	return &Gateway{lister: lister, fallback: NewStatic(blocked), blocked: blocked}
}

// Models lists the gateway's models. Labels come from the gateway's display
// name, or the id when it has none.
func (g *Gateway) Models(ctx context.Context) ([]core.DisplayModel, error) {
	resp, err := g.lister.ListModels(ctx)
	if err != nil {
		slog.Warn("gateway model list failed, using built-in catalog", "error", err)
		return g.fallback.Models(ctx)
	}
	if len(resp.Data) == 0 {
		slog.Warn("gateway listed no models, using built-in catalog")
		return g.fallback.Models(ctx)
	}

	models := make([]core.DisplayModel, 0, len(resp.Data))
	for _, m := range resp.Data {
		if m.ID == "" {
			continue
		}
		label := m.Name
		if label == "" {
			label = m.ID
		}
		models = append(models, core.DisplayModel{ID: m.ID, Label: label})
	}
	return g.blocked.apply(models), nil
}

// Cached keeps a snapshot of another provider for a fixed TTL.
type Cached struct {
	inner    Provider
	snapshot *cache.Value[[]core.DisplayModel]
}

// NewCached wraps inner with a snapshot cache. A nil clock means real time.
func NewCached(inner Provider, ttl time.Duration, clock quartz.Clock) *Cached {
	return &Cached{inner: inner, snapshot: cache.NewValue[[]core.DisplayModel](ttl, clock)}
}

// Models returns a copy of the cached snapshot, refreshing it when stale.
// Errors are not cached.
func (c *Cached) Models(ctx context.Context) ([]core.DisplayModel, error) {
	if models, ok := c.snapshot.Get(); ok {
		return slices.Clone(models), nil
	}
	models, err := c.inner.Models(ctx)
	if err != nil {
		return nil, err
	}
	c.snapshot.Set(slices.Clone(models))
	return models, nil
}

// Invalidate drops the snapshot.
func (c *Cached) Invalidate() {
	c.snapshot.Clear()
}

// Available filters models down to those with IsAvailable set.
func Available(models []core.DisplayModel) []core.DisplayModel {
	out := make([]core.DisplayModel, 0, len(models))
	for _, m := range models {
		if m.IsAvailable {
			out = append(out, m)
		}
	}
	return out
}

// Labels indexes model labels by id.
func Labels(models []core.DisplayModel) map[string]string {
	labels := make(map[string]string, len(models))
	for _, m := range models {
		labels[m.ID] = m.Label
	}
	return labels
}
