package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/backend"
	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/store/inmemory"
)

func TestCompletionPlainAnswer(t *testing.T) {
	fb := scripted(reply("4", 10, 2))
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	result, err := o.Completion(context.Background(), "What is 2+2?", nil)
	require.NoError(t, err)

	require.True(t, result.Success)
	require.Equal(t, "4", result.Response)
	require.Equal(t, entity.AnswerSourcePlain, result.AnswerSource)
	require.Equal(t, 1, result.TotalCalls)
	require.Equal(t, 0, result.TotalToolCalls)
	require.EqualValues(t, 12, result.TotalTokens)
	require.False(t, result.BudgetTerminated)
}

func TestCompletionFinalTool(t *testing.T) {
	fb := scripted(
		reply("", 10, 5, toolCall("tc-1", ToolFinal, map[string]any{"answer": "done"})),
	)
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	result, err := o.Completion(context.Background(), "finish", nil)
	require.NoError(t, err)

	require.Equal(t, "done", result.Response)
	require.Equal(t, entity.AnswerSourceFinal, result.AnswerSource)
	require.Equal(t, 1, fb.callCount())
}

func TestCompletionFinalVarResolvesFromSession(t *testing.T) {
	repl := newFakeREPL()
	repl.SetContext("answer", 42)

	fb := scripted(
		reply("", 10, 5, toolCall("tc-1", ToolFinalVar, map[string]any{"name": "answer"})),
	)
	o := NewOrchestrator(fb, repl, nil)

	result, err := o.Completion(context.Background(), "finish via variable", nil)
	require.NoError(t, err)
	require.Equal(t, "42", result.Response)
	require.Equal(t, entity.AnswerSourceFinal, result.AnswerSource)
}

func TestCompletionFinalVarMissingVariable(t *testing.T) {
	fb := scripted(
		reply("", 10, 5, toolCall("tc-1", ToolFinalVar, map[string]any{"name": "nope"})),
	)
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	result, err := o.Completion(context.Background(), "finish", nil)
	require.NoError(t, err)
	require.Contains(t, result.Response, `no session variable named "nope"`)
	require.Equal(t, entity.AnswerSourceFinal, result.AnswerSource)
}

func TestCompletionCodeRoundtrip(t *testing.T) {
	repl := newFakeREPL()
	repl.exec = func(code string) *replResult {
		return &replResult{output: "result = 42", success: true}
	}

	var sawToolOutput bool
	fb := scripted(
		reply("", 10, 5, toolCall("tc-1", ToolExecuteCode, map[string]any{"code": "6 * 7"})),
		func(msgs []*entity.Message, tools []*entity.ToolDefinition) (*backend.Completion, error) {
			for _, m := range msgs {
				if m.Role == entity.RoleTool && m.Content == "result = 42" {
					sawToolOutput = true
				}
			}
			return &backend.Completion{Content: "42", InputTokens: 20, OutputTokens: 2}, nil
		},
	)
	o := NewOrchestrator(fb, repl, nil)

	result, err := o.Completion(context.Background(), "compute 6*7 with code", nil)
	require.NoError(t, err)

	require.Equal(t, "42", result.Response)
	require.True(t, sawToolOutput, "second turn should see the tool result message")
	require.Equal(t, []string{"6 * 7"}, repl.execs)
	require.Equal(t, 1, result.TotalToolCalls)
	require.Equal(t, 2, result.TotalCalls)
}

func TestCompletionDelegation(t *testing.T) {
	// Root delegates once; the child at depth 1 must not be offered the
	// delegate tool because max depth is 1.
	var childTools []string
	fb := scripted(
		reply("", 10, 5, toolCall("tc-1", ToolDelegate, map[string]any{"prompt": "count the primes"})),
		func(msgs []*entity.Message, tools []*entity.ToolDefinition) (*backend.Completion, error) {
			childTools = toolNames(tools)
			return &backend.Completion{Content: "there are 4", InputTokens: 8, OutputTokens: 4}, nil
		},
		reply("", 10, 5, toolCall("tc-2", ToolFinal, map[string]any{"answer": "4 primes"})),
	)

	sink := inmemory.NewTrajectoryStore()
	o := NewOrchestrator(fb, newFakeREPL(), sink)

	result, err := o.Completion(context.Background(), "how many primes below 10?", &CompletionOptions{
		MaxDepth:          1,
		TokenBudget:       8000,
		IncludeTrajectory: true,
	})
	require.NoError(t, err)

	require.Equal(t, "4 primes", result.Response)
	require.Equal(t, 3, result.TotalCalls)
	require.NotContains(t, childTools, ToolDelegate)

	// Every call node landed in the sink under one trajectory, parent
	// links intact.
	nodes, err := sink.Load(context.Background(), result.TrajectoryID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.Equal(t, 0, nodes[0].Depth)
	require.Equal(t, 1, nodes[1].Depth)
	require.Equal(t, nodes[0].CallID, nodes[1].ParentID)
}

func TestCompletionDepthZeroDisablesDelegation(t *testing.T) {
	var rootTools []string
	fb := scripted(func(msgs []*entity.Message, tools []*entity.ToolDefinition) (*backend.Completion, error) {
		rootTools = toolNames(tools)
		return &backend.Completion{Content: "ok", InputTokens: 5, OutputTokens: 1}, nil
	})
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	_, err := o.Completion(context.Background(), "no recursion", &CompletionOptions{
		MaxDepth:    0,
		TokenBudget: 8000,
	})
	require.NoError(t, err)
	require.NotContains(t, rootTools, ToolDelegate)
	require.Contains(t, rootTools, ToolExecuteCode)
}

func TestCompletionBudgetTerminatesPartial(t *testing.T) {
	// The first response overshoots the token budget while still asking
	// for tools; the tree must finish that response, then stop without
	// dispatching anything.
	repl := newFakeREPL()
	fb := scripted(
		reply("partial progress", 50, 20, toolCall("tc-1", ToolExecuteCode, map[string]any{"code": "x = 1"})),
	)
	o := NewOrchestrator(fb, repl, nil)

	result, err := o.Completion(context.Background(), "big task", &CompletionOptions{
		MaxDepth:    4,
		TokenBudget: 10,
	})
	require.NoError(t, err)

	require.True(t, result.BudgetTerminated)
	require.Equal(t, "partial progress", result.Response)
	require.Equal(t, entity.AnswerSourcePartial, result.AnswerSource)
	require.Empty(t, repl.execs, "no tool may be dispatched after exhaustion")
	require.Equal(t, 1, fb.callCount())
}

func TestCompletionBackendErrorIsTerminal(t *testing.T) {
	fb := scripted(func([]*entity.Message, []*entity.ToolDefinition) (*backend.Completion, error) {
		return nil, context.DeadlineExceeded
	})
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	result, err := o.Completion(context.Background(), "doomed", nil)
	require.Error(t, err)
	require.NotNil(t, result)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}

func TestCompletionUsageEstimatedWhenMissing(t *testing.T) {
	// Provider reports zero usage; the estimator keeps the budget moving.
	fb := scripted(reply("a perfectly reasonable answer", 0, 0))
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	result, err := o.Completion(context.Background(), "estimate me", nil)
	require.NoError(t, err)
	require.Positive(t, result.TotalTokens)
}

func TestCompletionRegisteredTool(t *testing.T) {
	fb := scripted(
		reply("", 10, 5, toolCall("tc-1", "lookup", map[string]any{"key": "k1"})),
		reply("found v1", 10, 2),
	)
	o := NewOrchestrator(fb, newFakeREPL(), nil)
	o.RegisterTool(&entity.ToolDefinition{Name: "lookup", Description: "Key-value lookup."},
		func(ctx context.Context, args map[string]any) (string, error) {
			key, _ := args["key"].(string)
			require.Equal(t, "k1", key)
			return "v1", nil
		})

	result, err := o.Completion(context.Background(), "look up k1", nil)
	require.NoError(t, err)
	require.Equal(t, "found v1", result.Response)
}
