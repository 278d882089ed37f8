package entity

import (
	"fmt"
	"time"
)

// RunStatus represents the lifecycle state of an agent run.
//
// State machine: Created → InProgress → Completed | Failed | Cancelled
type RunStatus string

const (
	RunStatusCreated    RunStatus = "created"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
)

// IsTerminal returns true if the run has reached a terminal state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// Run represents one agent-loop execution over a task.
type Run struct {
	// ID is the unique run identifier.
	ID string `json:"id"`

	// Task is the user task that started this run.
	Task string `json:"task"`

	// Status is the current lifecycle state.
	Status RunStatus `json:"status"`

	// Answer is the final answer (populated on completion).
	Answer string `json:"answer,omitempty"`

	// Usage tracks token usage across all iterations.
	Usage *TokenUsage `json:"usage,omitempty"`

	// Cost is the accumulated dollar cost across all iterations.
	Cost float64 `json:"cost,omitempty"`

	// Iterations is the number of completed observe-think-act iterations.
	Iterations int `json:"iterations,omitempty"`

	// ModelRef records which model served this run.
	ModelRef string `json:"model_ref,omitempty"`

	// Error holds error details if the run failed.
	Error *RunError `json:"error,omitempty"`

	// CreatedAt is when this run was created.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when this run reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunError holds structured error information for a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RunError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
