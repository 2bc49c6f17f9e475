// Package core defines the types and interfaces shared across gatewaybench.
package core

import (
	"context"
	"io"
)

// ChatProvider is the upstream gateway surface used for chat and live benchmarks.
type ChatProvider interface {
	// ChatCompletion executes a chat completion request
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamChatCompletion returns a raw SSE stream (caller must close)
	StreamChatCompletion(ctx context.Context, req *ChatRequest) (io.ReadCloser, error)
}

// ModelLister lists the models exposed by the gateway.
type ModelLister interface {
	ListModels(ctx context.Context) (*ModelsResponse, error)
}
