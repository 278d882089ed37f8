package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/backend"
	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/store/inmemory"
	"github.com/arborworks/arbor/internal/pkg/options"
)

func pricedTable(modelID string, input, output float64) *PriceTable {
	mo := options.NewModelOptions()
	mo.Providers["test"] = &options.ProviderConfig{
		Models: []options.ModelDefinition{
			{ID: modelID, Cost: options.ModelCost{Input: input, Output: output}},
		},
	}
	return NewPriceTable(mo)
}

func TestRunnerSucceedsOnPlainAnswer(t *testing.T) {
	fb := scripted(reply("the answer is 7", 100, 20))
	o := NewOrchestrator(fb, newFakeREPL(), nil)
	runs := inmemory.NewRunStore()

	runner := NewAgentRunner(o, nil, runs)
	result, err := runner.Run(context.Background(), "compute something", nil)
	require.NoError(t, err)

	require.True(t, result.Success)
	require.False(t, result.ForcedTermination)
	require.Equal(t, "the answer is 7", result.Answer)
	require.Equal(t, entity.AnswerSourcePlain, result.AnswerSource)
	require.Equal(t, 1, result.Iterations)

	run, err := runs.Get(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Equal(t, entity.RunStatusCompleted, run.Status)
	require.Equal(t, "the answer is 7", run.Answer)
}

func TestRunnerIterationCapForcesTermination(t *testing.T) {
	// Every iteration's completion is budget-terminated, so the runner
	// keeps continuing until the iteration cap fires.
	fb := scripted(reply("made some progress", 50, 20))
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	runner := NewAgentRunner(o, nil, nil)
	result, err := runner.Run(context.Background(), "never finishes", &RunnerConfig{
		MaxIterations: 3,
		TokenBudget:   1_000_000,
		CostLimit:     100,
		Timeout:       time.Minute,
		// Tiny per-iteration budget: the single response overshoots it.
		Completion: CompletionOptions{MaxDepth: 4, TokenBudget: 10},
	})
	require.NoError(t, err)

	require.True(t, result.ForcedTermination)
	require.False(t, result.Success)
	require.Equal(t, 3, result.Iterations)
	require.Contains(t, result.Error, "iteration limit")
	require.Equal(t, "made some progress", result.Answer)
	require.Equal(t, entity.AnswerSourcePartial, result.AnswerSource)
	require.Len(t, result.IterationSummaries, 3)
}

func TestRunnerCostLimitForcesTermination(t *testing.T) {
	fb := scripted(reply("burning money", 50, 20))
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	// $10 per output token makes the very first iteration blow the limit.
	prices := pricedTable("test-model", 0, 10_000_000)

	runner := NewAgentRunner(o, prices, nil)
	result, err := runner.Run(context.Background(), "expensive task", &RunnerConfig{
		MaxIterations: 50,
		TokenBudget:   1_000_000,
		CostLimit:     1.0,
		Timeout:       time.Minute,
		Completion:    CompletionOptions{MaxDepth: 4, TokenBudget: 10},
	})
	require.NoError(t, err)

	require.True(t, result.ForcedTermination)
	require.Equal(t, 1, result.Iterations)
	require.Contains(t, result.Error, "cost limit")
}

func TestRunnerTokenBudgetForcesTermination(t *testing.T) {
	fb := scripted(reply("chewing tokens", 500, 100))
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	runner := NewAgentRunner(o, nil, nil)
	result, err := runner.Run(context.Background(), "token heavy", &RunnerConfig{
		MaxIterations: 50,
		TokenBudget:   400,
		CostLimit:     100,
		Timeout:       time.Minute,
		Completion:    CompletionOptions{MaxDepth: 4, TokenBudget: 10},
	})
	require.NoError(t, err)

	require.True(t, result.ForcedTermination)
	require.Contains(t, result.Error, "token budget")
}

func TestRunnerFallbackAnswerWhenNoContent(t *testing.T) {
	// The model never produces content before the caps fire.
	fb := scripted(reply("", 50, 20))
	o := NewOrchestrator(fb, newFakeREPL(), nil)

	runner := NewAgentRunner(o, nil, nil)
	result, err := runner.Run(context.Background(), "silent model", &RunnerConfig{
		MaxIterations: 2,
		TokenBudget:   1_000_000,
		CostLimit:     100,
		Timeout:       time.Minute,
		Completion:    CompletionOptions{MaxDepth: 4, TokenBudget: 10},
	})
	require.NoError(t, err)

	require.True(t, result.ForcedTermination)
	require.Equal(t, entity.AnswerSourceFallback, result.AnswerSource)
	require.NotEmpty(t, result.Answer)
}

func TestRunnerBackendFailureIsStructured(t *testing.T) {
	fb := scripted(func(msgs []*entity.Message, tools []*entity.ToolDefinition) (*backend.Completion, error) {
		return nil, context.DeadlineExceeded
	})
	o := NewOrchestrator(fb, newFakeREPL(), nil)
	runs := inmemory.NewRunStore()

	runner := NewAgentRunner(o, nil, runs)
	result, err := runner.Run(context.Background(), "doomed", nil)
	require.NoError(t, err, "failures come back structured, not raised")

	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)

	run, err := runs.Get(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Equal(t, entity.RunStatusFailed, run.Status)
}
