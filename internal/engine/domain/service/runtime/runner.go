package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/pkg/logger"
)

// fallbackAnswer is returned when a hard stop fires before any assistant
// content was observed.
const fallbackAnswer = "The agent was stopped before it produced an answer."

// RunnerConfig caps one agent run.
type RunnerConfig struct {
	MaxIterations int
	TokenBudget   int64
	CostLimit     float64
	Timeout       time.Duration
	// Completion bounds each iteration's completion tree.
	Completion CompletionOptions
}

func (c *RunnerConfig) withDefaults() RunnerConfig {
	cfg := RunnerConfig{}
	if c != nil {
		cfg = *c
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = 50000
	}
	if cfg.CostLimit <= 0 {
		cfg.CostLimit = 2.0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	return cfg
}

// AgentRunner drives the outer observe-think-act-terminate loop on top of
// the orchestrator. Each iteration is one completion; hard stop
// conditions are evaluated before starting each iteration.
type AgentRunner struct {
	orch    *Orchestrator
	prices  *PriceTable
	runRepo repo.RunRepository
}

// NewAgentRunner wires the runner. runRepo may be nil for callers that
// don't persist runs.
func NewAgentRunner(orch *Orchestrator, prices *PriceTable, runRepo repo.RunRepository) *AgentRunner {
	if prices == nil {
		prices = NewPriceTable(nil)
	}
	return &AgentRunner{orch: orch, prices: prices, runRepo: runRepo}
}

// Run executes the agent loop for one task. The result is always
// structured: a hard stop yields ForcedTermination=true with the best
// available partial content, never an unexplained failure.
func (r *AgentRunner) Run(ctx context.Context, task string, rcfg *RunnerConfig) (*entity.AgentResult, error) {
	cfg := rcfg.withDefaults()
	start := time.Now()

	run := &entity.Run{
		ID:        uuid.NewString(),
		Task:      task,
		Status:    entity.RunStatusCreated,
		ModelRef:  r.orch.backend.ModelName(),
		CreatedAt: start,
	}
	sm := NewRunStateMachine(run)
	r.persistCreate(ctx, run)

	ac := NewAbortController(ctx, run.ID, cfg.Timeout)
	defer ac.CleanUp()

	if err := sm.TransitionToInProgress(); err != nil {
		return nil, err
	}
	r.persistUpdate(ctx, run)

	result := &entity.AgentResult{RunID: run.ID}
	usage := &entity.TokenUsage{}
	lastContent := ""
	prompt := task

	for {
		// Hard stops, checked before each iteration starts.
		if stop := r.hardStop(&cfg, result, ac); stop != "" {
			r.finishForced(ctx, sm, result, usage, lastContent, stop, start)
			return result, nil
		}

		iterStart := time.Now()
		comp, err := r.orch.Completion(ac.Context(), prompt, &cfg.Completion)

		summary := &entity.IterationSummary{
			Iteration:  result.Iterations + 1,
			DurationMS: time.Since(iterStart).Milliseconds(),
		}
		if comp != nil {
			summary.Tokens = comp.TotalTokens
			summary.ToolCalls = comp.TotalToolCalls
			summary.Cost = r.iterationCost(comp)
			usage.Add(comp.TotalTokens, 0)
			result.TotalTokens += comp.TotalTokens
			result.TotalCost += summary.Cost
			if comp.Response != "" {
				lastContent = comp.Response
			}
		}
		result.Iterations++
		result.IterationSummaries = append(result.IterationSummaries, summary)

		if err != nil {
			sm.TransitionToFailed("backend", err.Error())
			r.persistUpdate(ctx, sm.Run())
			result.Success = false
			result.Error = err.Error()
			result.Answer = bestAnswer(lastContent)
			result.AnswerSource = answerSourceFor(lastContent)
			result.DurationMS = time.Since(start).Milliseconds()
			return result, nil
		}

		// The model finished this task: explicit terminate tool or a
		// plain answer ends the loop.
		if comp.AnswerSource == entity.AnswerSourceFinal || comp.AnswerSource == entity.AnswerSourcePlain {
			summary.Terminal = true
			result.Success = true
			result.Answer = comp.Response
			result.AnswerSource = comp.AnswerSource
			result.DurationMS = time.Since(start).Milliseconds()
			sm.TransitionToCompleted(result.Answer, usage, result.TotalCost)
			run.Iterations = result.Iterations
			r.persistUpdate(ctx, run)
			logger.InfoX("engine", "run %s done in %d iteration(s), %d tokens, $%.4f",
				run.ID, result.Iterations, result.TotalTokens, result.TotalCost)
			return result, nil
		}

		// Budget-terminated iteration: observe the partial result and
		// continue with a follow-up prompt.
		prompt = continuationPrompt(task, comp.Response)
	}
}

// hardStop returns a non-empty reason when the run may not start another
// iteration.
func (r *AgentRunner) hardStop(cfg *RunnerConfig, result *entity.AgentResult, ac *AbortController) string {
	switch {
	case result.Iterations >= cfg.MaxIterations:
		return fmt.Sprintf("iteration limit reached (%d)", cfg.MaxIterations)
	case ac.IsAborted():
		return "time limit reached"
	case result.TotalCost >= cfg.CostLimit:
		return fmt.Sprintf("cost limit reached ($%.4f >= $%.4f)", result.TotalCost, cfg.CostLimit)
	case result.TotalTokens >= cfg.TokenBudget:
		return fmt.Sprintf("token budget reached (%d >= %d)", result.TotalTokens, cfg.TokenBudget)
	default:
		return ""
	}
}

func (r *AgentRunner) finishForced(ctx context.Context, sm *RunStateMachine, result *entity.AgentResult, usage *entity.TokenUsage, lastContent, reason string, start time.Time) {
	result.ForcedTermination = true
	result.Success = false
	result.Error = fmt.Sprintf("%v: %s", errno.ErrBudgetExhausted, reason)
	result.Answer = bestAnswer(lastContent)
	result.AnswerSource = answerSourceFor(lastContent)
	result.DurationMS = time.Since(start).Milliseconds()

	run := sm.Run()
	run.Iterations = result.Iterations
	sm.TransitionToCompleted(result.Answer, usage, result.TotalCost)
	r.persistUpdate(ctx, run)
	logger.InfoX("engine", "run %s forced termination: %s", run.ID, reason)
}

func (r *AgentRunner) iterationCost(comp *entity.CompletionResult) float64 {
	cost := 0.0
	for _, node := range comp.Trajectory {
		cost += r.prices.Cost(r.orch.backend.ModelName(), node.InputTokens, node.OutputTokens)
	}
	if cost == 0 && len(comp.Trajectory) == 0 {
		// Trajectory omitted from the result; price the aggregate as
		// output tokens, the conservative direction.
		cost = r.prices.Cost(r.orch.backend.ModelName(), 0, comp.TotalTokens)
	}
	return cost
}

func bestAnswer(lastContent string) string {
	if lastContent != "" {
		return lastContent
	}
	return fallbackAnswer
}

func answerSourceFor(lastContent string) entity.AnswerSource {
	if lastContent != "" {
		return entity.AnswerSourcePartial
	}
	return entity.AnswerSourceFallback
}

func continuationPrompt(task, partial string) string {
	if partial == "" {
		return "Continue working on this task: " + task
	}
	return fmt.Sprintf("Continue working on this task: %s\n\nProgress so far:\n%s", task, partial)
}

func (r *AgentRunner) persistCreate(ctx context.Context, run *entity.Run) {
	if r.runRepo == nil {
		return
	}
	if err := r.runRepo.Create(ctx, run); err != nil {
		logger.WarnX("engine", "persist run %s: %v", run.ID, err)
	}
}

func (r *AgentRunner) persistUpdate(ctx context.Context, run *entity.Run) {
	if r.runRepo == nil {
		return
	}
	if err := r.runRepo.Update(ctx, run); err != nil {
		logger.WarnX("engine", "update run %s: %v", run.ID, err)
	}
}
