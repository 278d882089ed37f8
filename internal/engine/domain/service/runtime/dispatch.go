package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/pkg/utils/safego"
)

// dispatchToolCalls runs one turn's tool calls. Siblings are dispatched
// onto parallel workers bounded by the per-turn quota; results come back
// in the original request order regardless of completion order, so the
// conversation the model sees next turn is deterministic.
func (o *Orchestrator) dispatchToolCalls(ctx context.Context, t *tree, nodeID string, depth int, calls []*entity.ToolCall) []*entity.ToolResult {
	results := make([]*entity.ToolResult, len(calls))
	defer t.budget.ReleaseTurn(nodeID)

	var wg sync.WaitGroup
	for i, tc := range calls {
		// Quota is reserved in request order, so the calls that run are
		// always a prefix of what the model asked for.
		if !t.budget.ReserveSubCall(nodeID) {
			results[i] = &entity.ToolResult{
				ToolCallID: tc.ID,
				Name:       tc.Name,
				Output:     "error: per-turn sub-call quota exceeded, call not dispatched",
				IsError:    true,
			}
			continue
		}

		i, tc := i, tc
		wg.Add(1)
		safego.Go(ctx, func() {
			defer wg.Done()
			results[i] = o.dispatchOne(ctx, t, nodeID, depth, tc)
		})
	}
	wg.Wait()

	// A panicked worker leaves its slot empty; fill it so the model
	// always receives one result per call.
	for i, tc := range calls {
		if results[i] == nil {
			results[i] = &entity.ToolResult{
				ToolCallID: tc.ID,
				Name:       tc.Name,
				Output:     "error: tool execution did not produce a result",
				IsError:    true,
			}
		}
	}
	return results
}

// dispatchOne routes a single tool call. Faults local to the call are
// absorbed into an error-flagged result the model can react to.
func (o *Orchestrator) dispatchOne(ctx context.Context, t *tree, nodeID string, depth int, tc *entity.ToolCall) *entity.ToolResult {
	res := &entity.ToolResult{ToolCallID: tc.ID, Name: tc.Name}

	if errMsg, ok := tc.Arguments["_error"].(string); ok {
		res.Output = "error: " + errMsg
		res.IsError = true
		return res
	}

	switch tc.Name {
	case ToolExecuteCode:
		o.runCode(ctx, tc, res)
	case ToolDelegate:
		o.runDelegate(ctx, t, nodeID, depth, tc, res)
	default:
		if handler, ok := o.handlers[tc.Name]; ok {
			out, err := handler(ctx, tc.Arguments)
			if err != nil {
				res.Output = "error: " + err.Error()
				res.IsError = true
			} else {
				res.Output = out
			}
			return res
		}
		res.Output = fmt.Sprintf("error: %v: %q", errno.ErrUnknownTool, tc.Name)
		res.IsError = true
	}
	return res
}

func (o *Orchestrator) runCode(ctx context.Context, tc *entity.ToolCall, res *entity.ToolResult) {
	if o.repl == nil {
		res.Output = "error: no executor tier configured"
		res.IsError = true
		return
	}
	code, _ := tc.Arguments["code"].(string)
	if code == "" {
		res.Output = "error: execute_code requires a non-empty \"code\" argument"
		res.IsError = true
		return
	}

	timeout := o.execTimeout
	if secs, ok := toSeconds(tc.Arguments["timeout"]); ok && secs > 0 {
		timeout = secs
	}

	r := o.repl.Execute(ctx, code, timeout)
	if r.Success {
		res.Output = r.Output
		return
	}
	res.IsError = true
	res.Output = r.Error
	if r.Output != "" {
		res.Output = r.Output + "\n" + r.Error
	}
}

// runDelegate recurses into a sub-completion at depth+1, sharing the same
// budget and trajectory. A failed descendant becomes an error result on
// the parent, never a fault.
func (o *Orchestrator) runDelegate(ctx context.Context, t *tree, nodeID string, depth int, tc *entity.ToolCall, res *entity.ToolResult) {
	prompt, _ := tc.Arguments["prompt"].(string)
	if prompt == "" {
		res.Output = "error: delegate requires a non-empty \"prompt\" argument"
		res.IsError = true
		return
	}
	if extra, _ := tc.Arguments["context"].(string); extra != "" {
		prompt = extra + "\n\n" + prompt
	}

	answer, _, err := o.complete(ctx, t, nodeID, depth+1, prompt, "")
	if err != nil {
		res.Output = "error: delegated sub-completion failed: " + err.Error()
		res.IsError = true
		return
	}
	res.Output = answer
}

func toSeconds(v any) (time.Duration, bool) {
	switch x := v.(type) {
	case float64:
		return time.Duration(x * float64(time.Second)), true
	case int:
		return time.Duration(x) * time.Second, true
	case int64:
		return time.Duration(x) * time.Second, true
	default:
		return 0, false
	}
}
