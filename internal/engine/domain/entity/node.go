package entity

import (
	"time"
)

// CallNode records one orchestration step in a completion tree.
//
// A node is created when the orchestrator begins a step, becomes immutable
// once the step's backend call returns, and is appended to the trajectory
// sink exactly once. Every node in one tree shares a TrajectoryID; the root
// has an empty ParentID and Depth 0.
type CallNode struct {
	// CallID is the unique identifier of this step.
	CallID string `json:"call_id"`

	// TrajectoryID identifies the whole completion tree.
	TrajectoryID string `json:"trajectory_id"`

	// ParentID is the delegating step, empty for the root.
	ParentID string `json:"parent_id,omitempty"`

	// Depth is the recursion depth, 0 at the root.
	Depth int `json:"depth"`

	// Prompt is the user-visible input that started this step.
	Prompt string `json:"prompt"`

	// Response is the assistant content this step produced.
	Response string `json:"response"`

	// ToolCalls are the tool invocations the model requested in this step.
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"`

	// InputTokens and OutputTokens are the usage charged for this step.
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	// DurationMS is the wall time of the step.
	DurationMS int64 `json:"duration_ms"`

	// Error holds the failure description when the step did not complete.
	Error string `json:"error,omitempty"`

	// CreatedAt is when the step began.
	CreatedAt time.Time `json:"created_at"`
}

// TotalTokens returns the combined usage of this step.
func (n *CallNode) TotalTokens() int64 {
	return n.InputTokens + n.OutputTokens
}
