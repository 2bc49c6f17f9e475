// Package chat forwards user conversations to the gateway, substituting the
// default model when the requested one is unavailable.
package chat

import (
	"context"
	"io"
	"log/slog"

	"gatewaybench/internal/catalog"
	"gatewaybench/internal/core"
)

// Defaults applied when the configuration leaves them empty.
const (
	DefaultModel        = "openai/gpt-4o-mini"
	DefaultSystemPrompt = "You are a software engineer exploring Generative AI."
)

// Request is one chat turn: the conversation so far and the model to use.
type Request struct {
	Messages []core.Message `json:"messages"`
	ModelID  string         `json:"modelId"`
}

// Service sends chat requests through the gateway.
type Service struct {
	provider     core.ChatProvider
	blocked      catalog.BlockList
	defaultModel string
	systemPrompt string
}

// New creates a chat service.
func New(provider core.ChatProvider, blocked catalog.BlockList, defaultModel, systemPrompt string) *Service {
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Service{
		provider:     provider,
		blocked:      blocked,
		defaultModel: defaultModel,
		systemPrompt: systemPrompt,
	}
}

// ResolveModel returns the model a request will actually use.
func (s *Service) ResolveModel(modelID string) string {
	if modelID == "" {
		return s.defaultModel
	}
	if s.blocked.Blocked(modelID) {
		slog.Warn("model unavailable, falling back to default", "model", modelID, "fallback", s.defaultModel)
		return s.defaultModel
	}
	return modelID
}

func (s *Service) build(req Request) (*core.ChatRequest, error) {
	if len(req.Messages) == 0 {
		return nil, core.NewInvalidRequestError("messages are required", nil)
	}
	messages := make([]core.Message, 0, len(req.Messages)+1)
	messages = append(messages, core.Message{Role: "system", Content: s.systemPrompt})
	messages = append(messages, req.Messages...)
	return &core.ChatRequest{
		Model:    s.ResolveModel(req.ModelID),
		Messages: messages,
	}, nil
}

// Stream starts a streamed completion and returns the raw SSE body (caller
// must close) along with the model used.
func (s *Service) Stream(ctx context.Context, req Request) (io.ReadCloser, string, error) {
	chatReq, err := s.build(req)
	if err != nil {
		return nil, "", err
	}
	stream, err := s.provider.StreamChatCompletion(ctx, chatReq)
	if err != nil {
		slog.Error("chat stream failed", "model", chatReq.Model, "error", err)
		return nil, chatReq.Model, err
	}
	return stream, chatReq.Model, nil
}

// Complete runs a non-streamed completion.
func (s *Service) Complete(ctx context.Context, req Request) (*core.ChatResponse, error) {
	chatReq, err := s.build(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.provider.ChatCompletion(ctx, chatReq)
	if err != nil {
		slog.Error("chat completion failed", "model", chatReq.Model, "error", err)
		return nil, err
	}
	return resp, nil
}
