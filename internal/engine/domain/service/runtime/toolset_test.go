package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
)

func toolNames(tools []*entity.ToolDefinition) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestBuildToolsetDelegateByDepth(t *testing.T) {
	b := NewBudget(1000, 2, 12, time.Minute)

	// Below the depth limit the delegate tool is offered.
	for depth := 0; depth < 2; depth++ {
		names := toolNames(buildToolset(depth, b, false, nil))
		require.Contains(t, names, ToolDelegate, "depth %d", depth)
	}

	// At the maximum depth a child would exceed the limit, so the tool
	// disappears from the schema instead of failing at dispatch.
	names := toolNames(buildToolset(2, b, false, nil))
	require.NotContains(t, names, ToolDelegate)
}

func TestBuildToolsetAlwaysPresent(t *testing.T) {
	b := NewBudget(1000, 0, 12, time.Minute)
	names := toolNames(buildToolset(0, b, false, nil))

	require.Contains(t, names, ToolExecuteCode)
	require.Contains(t, names, ToolFinal)
	require.Contains(t, names, ToolFinalVar)
	require.NotContains(t, names, ToolDelegate)
}

func TestBuildToolsetDisableSubCalls(t *testing.T) {
	b := NewBudget(1000, 4, 12, time.Minute)
	names := toolNames(buildToolset(0, b, true, nil))
	require.NotContains(t, names, ToolDelegate)
}

func TestBuildToolsetExtraTools(t *testing.T) {
	b := NewBudget(1000, 4, 12, time.Minute)
	extra := []*entity.ToolDefinition{{Name: "search", Description: "Search the index."}}

	names := toolNames(buildToolset(0, b, false, extra))
	require.Contains(t, names, "search")
	require.Equal(t, "search", names[len(names)-1])
}
