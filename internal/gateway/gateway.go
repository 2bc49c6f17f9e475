// Package gateway talks to the unified OpenAI-compatible LLM gateway that
// fronts every "provider/model" pair.
package gateway

import (
	"context"
	"io"
	"net/http"
	"strings"

	"gatewaybench/internal/core"
	"gatewaybench/internal/llmclient"
)

const name = "gateway"

// Provider implements core.ChatProvider and core.ModelLister against the gateway.
type Provider struct {
	client *llmclient.Client
	apiKey string
}

// New creates a gateway provider. The API key may be empty for gateways that
// do not authenticate.
func New(baseURL, apiKey string, opts ...llmclient.Option) *Provider {
	p := &Provider{apiKey: apiKey}
	p.client = llmclient.New(llmclient.DefaultConfig(name, strings.TrimRight(baseURL, "/")), p.setHeaders, opts...)
	return p
}

// NewWithConfig creates a provider with explicit retry and breaker settings.
func NewWithConfig(cfg llmclient.Config, apiKey string, opts ...llmclient.Option) *Provider {
	p := &Provider{apiKey: apiKey}
	p.client = llmclient.New(cfg, p.setHeaders, opts...)
	return p
}

func (p *Provider) setHeaders(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

// ChatCompletion sends a non-streaming chat completion request.
func (p *Provider) ChatCompletion(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	var resp core.ChatResponse
	err := p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     req,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return &resp, nil
}

// StreamChatCompletion returns the raw SSE body (caller must close).
func (p *Provider) StreamChatCompletion(ctx context.Context, req *core.ChatRequest) (io.ReadCloser, error) {
	return p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     req.WithStreaming(),
	})
}

// ListModels retrieves the gateway's model list.
func (p *Provider) ListModels(ctx context.Context) (*core.ModelsResponse, error) {
	var resp core.ModelsResponse
	err := p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

var (
	_ core.ChatProvider = (*Provider)(nil)
	_ core.ModelLister  = (*Provider)(nil)
)
