package entity

import (
	"context"
)

// ToolCall represents a model's request to execute a tool.
//
// Arguments is always a valid mapping: malformed provider payloads are
// normalized at the backend boundary (empty input becomes an empty map,
// undecodable input becomes a map carrying "_error" and "_raw" keys) and
// never surface as a raised fault.
type ToolCall struct {
	// ID is the unique identifier for the tool call.
	ID string `json:"id"`
	// Name is the tool name to invoke.
	Name string `json:"name"`
	// Arguments is the decoded tool argument mapping.
	Arguments map[string]any `json:"arguments"`
}

// ToolResult represents the outcome of one tool call, fed back into the
// conversation as a tool message.
type ToolResult struct {
	// ToolCallID is the ID of the tool call this result corresponds to.
	ToolCallID string `json:"tool_call_id"`
	// Name is the tool name that was invoked.
	Name string `json:"name"`
	// Output is the textual result of the tool call.
	Output string `json:"output"`
	// IsError reports whether the tool call failed.
	IsError bool `json:"is_error"`
}

// ToolDefinition describes one tool offered to the model: a name, a short
// description, and a JSON-Schema-like parameter description.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolHandler resolves a caller-supplied tool call into output text.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)
