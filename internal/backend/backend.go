// Package backend defines the model-provider contract the engine consumes.
// Provider wire protocols stay behind this boundary: the engine sees one
// message/tool shape and usage counts that are always present.
package backend

import (
	"context"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
)

// Completion is one model response. Usage counts default to 0 when the
// provider omits them; they are never absent.
type Completion struct {
	// Content is the assistant text, empty when the model only called tools.
	Content string

	// ToolCalls are the normalized tool invocations, in request order.
	ToolCalls []*entity.ToolCall

	// InputTokens and OutputTokens are the usage reported by the provider.
	InputTokens  int64
	OutputTokens int64

	// FinishReason is the provider's stop reason, when reported.
	FinishReason string

	// Model is the model that actually served the request.
	Model string
}

// StreamReader yields a finite sequence of text chunks. It is not
// restartable; Recv returns io.EOF when the stream ends.
type StreamReader interface {
	Recv() (string, error)
	Close()
}

// Backend is the provider adapter contract. Implementations must never
// raise on malformed tool-call payloads from the provider: arguments are
// normalized into a valid mapping before they cross this boundary.
type Backend interface {
	// Complete performs one blocking completion.
	Complete(ctx context.Context, messages []*entity.Message, tools []*entity.ToolDefinition) (*Completion, error)

	// Stream performs one streaming completion.
	Stream(ctx context.Context, messages []*entity.Message, tools []*entity.ToolDefinition) (StreamReader, error)

	// ModelName reports the configured model identifier.
	ModelName() string
}
