package runtime

import (
	"github.com/arborworks/arbor/internal/engine/domain/entity"
)

// Built-in tool names recognized by the dispatcher.
const (
	ToolExecuteCode = "execute_code"
	ToolDelegate    = "delegate"
	ToolFinal       = "FINAL"
	ToolFinalVar    = "FINAL_VAR"
)

func executeCodeTool() *entity.ToolDefinition {
	return &entity.ToolDefinition{
		Name:        ToolExecuteCode,
		Description: "Run code in the sandboxed interpreter. Variables persist across calls; assign to `result` to echo a value.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute.",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Optional per-execution timeout in seconds.",
				},
			},
			"required": []string{"code"},
		},
	}
}

func delegateTool() *entity.ToolDefinition {
	return &entity.ToolDefinition{
		Name:        ToolDelegate,
		Description: "Delegate a focused sub-task to a recursive sub-completion. The sub-call shares your budget; use it for work that benefits from a clean context.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "The sub-task prompt.",
				},
				"context": map[string]any{
					"type":        "string",
					"description": "Optional background the sub-call needs.",
				},
			},
			"required": []string{"prompt"},
		},
	}
}

func finalTool() *entity.ToolDefinition {
	return &entity.ToolDefinition{
		Name:        ToolFinal,
		Description: "Finish immediately with the given answer.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"answer": map[string]any{
					"type":        "string",
					"description": "The final answer.",
				},
			},
			"required": []string{"answer"},
		},
	}
}

func finalVarTool() *entity.ToolDefinition {
	return &entity.ToolDefinition{
		Name:        ToolFinalVar,
		Description: "Finish immediately with the value of a variable from the code session.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "The session variable holding the final answer.",
				},
			},
			"required": []string{"name"},
		},
	}
}

// buildToolset assembles the schema offered to the model for one node.
// The delegate tool appears only when the budget admits a node at
// depth+1 and the caller has not disabled sub-calls; terminate tools and
// the code tool are always present, followed by caller-supplied extras.
func buildToolset(depth int, budget *Budget, disableSubCalls bool, extra []*entity.ToolDefinition) []*entity.ToolDefinition {
	tools := []*entity.ToolDefinition{
		executeCodeTool(),
		finalTool(),
		finalVarTool(),
	}
	if !disableSubCalls && budget.CanDescend(depth+1) {
		tools = append(tools, delegateTool())
	}
	return append(tools, extra...)
}
