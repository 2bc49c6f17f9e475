package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewaybench/internal/catalog"
	"gatewaybench/internal/core"
)

type recordingProvider struct {
	last *core.ChatRequest
	err  error
}

func (p *recordingProvider) ChatCompletion(_ context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &core.ChatResponse{ID: "chatcmpl-1", Model: req.Model}, nil
}

func (p *recordingProvider) StreamChatCompletion(_ context.Context, req *core.ChatRequest) (io.ReadCloser, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return io.NopCloser(strings.NewReader("data: [DONE]\n\n")), nil
}

func newService(p core.ChatProvider) *Service {
	return New(p, catalog.NewBlockList(catalog.DefaultUnavailable), "", "")
}

func TestResolveModel(t *testing.T) {
	s := newService(&recordingProvider{})
	assert.Equal(t, DefaultModel, s.ResolveModel(""))
	assert.Equal(t, DefaultModel, s.ResolveModel("xai/grok-3-beta"))
	assert.Equal(t, "anthropic/claude-3-7-sonnet", s.ResolveModel("anthropic/claude-3-7-sonnet"))

	custom := New(&recordingProvider{}, catalog.NewBlockList(nil), "groq/llama-3.1-70b-versatile", "")
	assert.Equal(t, "groq/llama-3.1-70b-versatile", custom.ResolveModel(""))
	assert.Equal(t, "xai/grok-3-beta", custom.ResolveModel("xai/grok-3-beta"))
}

func TestStream(t *testing.T) {
	p := &recordingProvider{}
	stream, model, err := newService(p).Stream(context.Background(), Request{
		Messages: []core.Message{{Role: "user", Content: "What is a qubit?"}},
		ModelID:  "google/gemini-2.0-pro-002",
	})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, DefaultModel, model)
	require.Len(t, p.last.Messages, 2)
	assert.Equal(t, core.Message{Role: "system", Content: DefaultSystemPrompt}, p.last.Messages[0])
	assert.Equal(t, "What is a qubit?", p.last.Messages[1].Content)

	body, _ := io.ReadAll(stream)
	assert.Equal(t, "data: [DONE]\n\n", string(body))
}

func TestComplete(t *testing.T) {
	p := &recordingProvider{}
	resp, err := newService(p).Complete(context.Background(), Request{
		Messages: []core.Message{{Role: "user", Content: "hi"}},
		ModelID:  "openai/gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", resp.Model)
	assert.Equal(t, "system", p.last.Messages[0].Role)
}

func TestErrors(t *testing.T) {
	t.Run("no messages", func(t *testing.T) {
		p := &recordingProvider{}
		_, _, err := newService(p).Stream(context.Background(), Request{ModelID: "openai/gpt-4o"})
		var gwErr *core.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, core.ErrorTypeInvalidRequest, gwErr.Type)
		assert.Nil(t, p.last)
	})

	t.Run("upstream failure", func(t *testing.T) {
		upstream := core.NewProviderError("gateway", 502, "bad gateway", nil)
		_, err := newService(&recordingProvider{err: upstream}).Complete(context.Background(), Request{
			Messages: []core.Message{{Role: "user", Content: "hi"}},
		})
		assert.ErrorIs(t, err, upstream)
	})
}
