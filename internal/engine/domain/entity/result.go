package entity

// TokenUsage tracks token consumption for one step or one aggregate.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Add accumulates another usage sample.
func (u *TokenUsage) Add(in, out int64) {
	u.InputTokens += in
	u.OutputTokens += out
	u.TotalTokens += in + out
}

// CompletionResult is the terminal aggregate of one recursive completion
// tree. It is always returned, even on failure: Success reports the
// outcome and Error carries the explanation when false.
type CompletionResult struct {
	// TrajectoryID identifies the tree that produced this result.
	TrajectoryID string `json:"trajectory_id"`

	// Response is the final answer text.
	Response string `json:"response"`

	// Success reports whether the completion finished without a terminal error.
	Success bool `json:"success"`

	// BudgetTerminated reports that a resource limit, not the model,
	// ended the completion.
	BudgetTerminated bool `json:"budget_terminated,omitempty"`

	// AnswerSource records how the final answer was produced.
	AnswerSource AnswerSource `json:"answer_source,omitempty"`

	// TotalCalls is the number of call nodes in the tree.
	TotalCalls int `json:"total_calls"`

	// TotalToolCalls is the number of tool invocations across the tree.
	TotalToolCalls int `json:"total_tool_calls"`

	// TotalTokens is the tree-wide token usage.
	TotalTokens int64 `json:"total_tokens"`

	// DurationMS is the wall time of the whole completion.
	DurationMS int64 `json:"duration_ms"`

	// Error describes the terminal failure when Success is false.
	Error string `json:"error,omitempty"`

	// Trajectory holds the ordered call nodes when the caller asked for them.
	Trajectory []*CallNode `json:"trajectory,omitempty"`
}

// AnswerSource records where an agent run's final answer came from.
type AnswerSource string

const (
	// AnswerSourceFinal means the model invoked an explicit terminate tool.
	AnswerSourceFinal AnswerSource = "final"
	// AnswerSourcePlain means the model answered without tool calls.
	AnswerSourcePlain AnswerSource = "plain"
	// AnswerSourcePartial means a hard stop fired and the last non-empty
	// assistant content was promoted to the answer.
	AnswerSourcePartial AnswerSource = "partial"
	// AnswerSourceFallback means no usable content existed at the hard stop.
	AnswerSourceFallback AnswerSource = "fallback"
)

// IterationSummary records one observe-think-act iteration of an agent run.
type IterationSummary struct {
	Iteration  int     `json:"iteration"`
	Tokens     int64   `json:"tokens"`
	Cost       float64 `json:"cost"`
	ToolCalls  int     `json:"tool_calls"`
	DurationMS int64   `json:"duration_ms"`
	Terminal   bool    `json:"terminal,omitempty"`
}

// AgentResult is the terminal aggregate of one agent run.
type AgentResult struct {
	RunID              string              `json:"run_id"`
	Answer             string              `json:"answer"`
	AnswerSource       AnswerSource        `json:"answer_source"`
	Success            bool                `json:"success"`
	ForcedTermination  bool                `json:"forced_termination"`
	Iterations         int                 `json:"iterations"`
	TotalTokens        int64               `json:"total_tokens"`
	TotalCost          float64             `json:"total_cost"`
	DurationMS         int64               `json:"duration_ms"`
	Error              string              `json:"error,omitempty"`
	IterationSummaries []*IterationSummary `json:"iteration_summaries,omitempty"`
}
