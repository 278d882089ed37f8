package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arborworks/arbor/internal/backend"
	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/internal/sandbox"
	"github.com/arborworks/arbor/pkg/logger"
)

// CompletionOptions bounds one recursive completion tree.
type CompletionOptions struct {
	// System is the optional system prompt for the root node.
	System string
	// MaxDepth caps recursion; 0 disables delegation entirely.
	MaxDepth int
	// TokenBudget is shared across the whole tree.
	TokenBudget int
	// Timeout is the wall-clock limit for the whole tree.
	Timeout time.Duration
	// MaxSubCallsPerTurn caps tool dispatch per turn.
	MaxSubCallsPerTurn int
	// IncludeTrajectory returns the full ordered call tree in the result.
	IncludeTrajectory bool
	// DisableSubCalls removes the delegate tool regardless of depth.
	DisableSubCalls bool
}

func (o *CompletionOptions) withDefaults() CompletionOptions {
	opts := CompletionOptions{}
	if o != nil {
		opts = *o
	}
	if opts.MaxDepth == 0 && o == nil {
		opts.MaxDepth = 4
	}
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = 8000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxSubCallsPerTurn <= 0 {
		opts.MaxSubCallsPerTurn = 12
	}
	return opts
}

// Orchestrator drives one logical completion: message assembly, backend
// invocation, tool dispatch (including recursive self-invocation), budget
// enforcement and result assembly.
type Orchestrator struct {
	backend     backend.Backend
	repl        sandbox.REPL
	sink        repo.TrajectorySink
	handlers    map[string]entity.ToolHandler
	extraTools  []*entity.ToolDefinition
	estimator   *TokenEstimator
	execTimeout time.Duration
}

// NewOrchestrator wires the engine. The backend should already carry its
// retry policy; the sink may be nil for callers that don't persist.
func NewOrchestrator(b backend.Backend, repl sandbox.REPL, sink repo.TrajectorySink) *Orchestrator {
	return &Orchestrator{
		backend:     b,
		repl:        repl,
		sink:        sink,
		handlers:    map[string]entity.ToolHandler{},
		estimator:   NewTokenEstimator(0),
		execTimeout: 30 * time.Second,
	}
}

// RegisterTool adds a caller-supplied tool to every offered toolset.
func (o *Orchestrator) RegisterTool(def *entity.ToolDefinition, handler entity.ToolHandler) {
	o.extraTools = append(o.extraTools, def)
	o.handlers[def.Name] = handler
}

// SetExecTimeout overrides the default per-execution sandbox timeout.
func (o *Orchestrator) SetExecTimeout(d time.Duration) {
	o.execTimeout = d
}

// REPL exposes the session so callers can seed or inspect its context.
func (o *Orchestrator) REPL() sandbox.REPL {
	return o.repl
}

// tree is the state shared by every node of one completion.
type tree struct {
	trajectoryID string
	budget       *Budget
	opts         CompletionOptions

	mu         sync.Mutex
	nodes      []*entity.CallNode
	toolCalls  int
	terminated bool
}

func (t *tree) record(node *entity.CallNode) {
	t.mu.Lock()
	t.nodes = append(t.nodes, node)
	t.toolCalls += len(node.ToolCalls)
	t.mu.Unlock()
}

func (t *tree) markBudgetTerminated() {
	t.mu.Lock()
	t.terminated = true
	t.mu.Unlock()
}

// Completion runs one full recursive completion and always returns a
// structured result; err is non-nil only for faults that invalidate the
// whole tree (configuration, exhausted retries at the root).
func (o *Orchestrator) Completion(ctx context.Context, prompt string, copts *CompletionOptions) (*entity.CompletionResult, error) {
	opts := copts.withDefaults()
	start := time.Now()

	t := &tree{
		trajectoryID: uuid.NewString(),
		budget:       NewBudget(int64(opts.TokenBudget), opts.MaxDepth, opts.MaxSubCallsPerTurn, opts.Timeout),
		opts:         opts,
	}

	ac := NewAbortController(ctx, t.trajectoryID, opts.Timeout)
	defer ac.CleanUp()

	logger.InfoX("engine", "completion %s start (max_depth=%d token_budget=%d)",
		t.trajectoryID, opts.MaxDepth, opts.TokenBudget)

	answer, source, err := o.complete(ac.Context(), t, "", 0, prompt, opts.System)

	result := &entity.CompletionResult{
		TrajectoryID:     t.trajectoryID,
		Response:         answer,
		Success:          err == nil,
		BudgetTerminated: t.terminated,
		AnswerSource:     source,
		TotalCalls:       len(t.nodes),
		TotalToolCalls:   t.toolCalls,
		TotalTokens:      t.budget.TokensUsed(),
		DurationMS:       time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	if opts.IncludeTrajectory {
		result.Trajectory = t.nodes
	}
	return result, err
}

// complete executes one call node's turn loop at the given depth and
// returns its final answer and how it was produced. Delegated descendants
// recurse through here sharing the same tree.
func (o *Orchestrator) complete(ctx context.Context, t *tree, parentID string, depth int, prompt, system string) (string, entity.AnswerSource, error) {
	msgs := make([]*entity.Message, 0, 4)
	if system != "" {
		msgs = append(msgs, entity.NewSystemMessage(system))
	}
	msgs = append(msgs, entity.NewUserMessage(prompt))

	lastContent := ""
	for {
		// Budget gate before starting a new call. Non-fatal: the branch
		// finalizes with the best content observed so far.
		if admitErr := t.budget.Admit(depth); admitErr != nil {
			logger.InfoX("engine", "trajectory %s depth %d halting: %v", t.trajectoryID, depth, admitErr)
			t.markBudgetTerminated()
			return lastContent, entity.AnswerSourcePartial, nil
		}
		if ctx.Err() != nil {
			return lastContent, entity.AnswerSourcePartial, fmt.Errorf("%w: %v", errno.ErrAborted, ctx.Err())
		}

		tools := buildToolset(depth, t.budget, t.opts.DisableSubCalls, o.extraTools)

		node := &entity.CallNode{
			CallID:       uuid.NewString(),
			TrajectoryID: t.trajectoryID,
			ParentID:     parentID,
			Depth:        depth,
			Prompt:       prompt,
			CreatedAt:    time.Now(),
		}

		resp, err := o.backend.Complete(ctx, msgs, tools)
		node.DurationMS = time.Since(node.CreatedAt).Milliseconds()
		if err != nil {
			node.Error = err.Error()
			o.append(ctx, t, node)
			return lastContent, entity.AnswerSourcePartial, fmt.Errorf("%w: %v", errno.ErrBackend, err)
		}

		node.Response = resp.Content
		node.ToolCalls = resp.ToolCalls
		node.InputTokens = resp.InputTokens
		node.OutputTokens = resp.OutputTokens
		if node.InputTokens == 0 && node.OutputTokens == 0 {
			// Provider reported no usage; estimate so the budget still moves.
			node.InputTokens = int64(o.estimator.EstimateMessages(msgs))
			node.OutputTokens = int64(o.estimator.EstimateString(resp.Content))
		}
		o.append(ctx, t, node)

		if resp.Content != "" {
			lastContent = resp.Content
		}

		// Each token charge is applied exactly once, on the node that
		// incurred it. Crossing the limit finishes this response but
		// blocks any further dispatch.
		if !t.budget.ChargeTokens(node.TotalTokens()) {
			logger.InfoX("engine", "trajectory %s budget exhausted after %d tokens", t.trajectoryID, t.budget.TokensUsed())
			t.markBudgetTerminated()
			return lastContent, entity.AnswerSourcePartial, nil
		}

		if len(resp.ToolCalls) == 0 {
			// Plain answer.
			return resp.Content, entity.AnswerSourcePlain, nil
		}

		// Terminate tools end the turn immediately, before any other
		// dispatch.
		if answer, ok := o.checkTerminate(resp.ToolCalls); ok {
			return answer, entity.AnswerSourceFinal, nil
		}

		results := o.dispatchToolCalls(ctx, t, node.CallID, depth, resp.ToolCalls)

		msgs = append(msgs, &entity.Message{
			Role:      entity.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
			CreatedAt: time.Now(),
		})
		for _, r := range results {
			msgs = append(msgs, entity.NewToolMessage(r.ToolCallID, r.Name, r.Output))
		}
	}
}

// checkTerminate resolves FINAL / FINAL_VAR invocations. FINAL_VAR reads
// the named variable from the executor session; a missing variable falls
// through to an error-shaped answer rather than a raised fault.
func (o *Orchestrator) checkTerminate(calls []*entity.ToolCall) (string, bool) {
	for _, tc := range calls {
		switch tc.Name {
		case ToolFinal:
			answer, _ := tc.Arguments["answer"].(string)
			return answer, true
		case ToolFinalVar:
			name, _ := tc.Arguments["name"].(string)
			if o.repl != nil {
				if v, ok := o.repl.GetContext()[name]; ok {
					return fmt.Sprintf("%v", v), true
				}
			}
			return fmt.Sprintf("error: no session variable named %q", name), true
		}
	}
	return "", false
}

func (o *Orchestrator) append(ctx context.Context, t *tree, node *entity.CallNode) {
	t.record(node)
	if o.sink == nil {
		return
	}
	if err := o.sink.Append(ctx, node); err != nil {
		logger.WarnX("engine", "trajectory append failed for %s: %v", node.CallID, err)
	}
}
