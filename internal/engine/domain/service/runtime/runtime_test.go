package runtime

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/arborworks/arbor/internal/backend"
	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/sandbox"
	"github.com/arborworks/arbor/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type completeFunc func(msgs []*entity.Message, tools []*entity.ToolDefinition) (*backend.Completion, error)

// fakeBackend replays a scripted sequence of completions. When the script
// runs out the last step repeats, so open-ended loops stay deterministic.
type fakeBackend struct {
	mu    sync.Mutex
	calls int
	steps []completeFunc
}

func scripted(steps ...completeFunc) *fakeBackend {
	return &fakeBackend{steps: steps}
}

func reply(content string, in, out int64, toolCalls ...*entity.ToolCall) completeFunc {
	return func([]*entity.Message, []*entity.ToolDefinition) (*backend.Completion, error) {
		return &backend.Completion{
			Content:      content,
			ToolCalls:    toolCalls,
			InputTokens:  in,
			OutputTokens: out,
		}, nil
	}
}

func (f *fakeBackend) Complete(ctx context.Context, msgs []*entity.Message, tools []*entity.ToolDefinition) (*backend.Completion, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	step := f.steps[i]
	f.mu.Unlock()
	return step(msgs, tools)
}

func (f *fakeBackend) Stream(ctx context.Context, msgs []*entity.Message, tools []*entity.ToolDefinition) (backend.StreamReader, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) ModelName() string { return "test-model" }

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeREPL is a scriptable execution tier with a real session context.
type fakeREPL struct {
	mu      sync.Mutex
	ctxVals map[string]any
	execs   []string
	exec    func(code string) *replResult
}

type replResult struct {
	output  string
	err     string
	success bool
}

func newFakeREPL() *fakeREPL {
	return &fakeREPL{ctxVals: map[string]any{}}
}

func (r *fakeREPL) Execute(ctx context.Context, code string, timeout time.Duration) *sandbox.REPLResult {
	r.mu.Lock()
	r.execs = append(r.execs, code)
	fn := r.exec
	r.mu.Unlock()

	if fn == nil {
		return &sandbox.REPLResult{Success: true}
	}
	res := fn(code)
	return &sandbox.REPLResult{Output: res.output, Error: res.err, Success: res.success}
}

func (r *fakeREPL) GetContext() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]any, len(r.ctxVals))
	for k, v := range r.ctxVals {
		out[k] = v
	}
	return out
}

func (r *fakeREPL) SetContext(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxVals[key] = value
}

func (r *fakeREPL) ClearContext() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxVals = map[string]any{}
}

func (r *fakeREPL) Close() error { return nil }

func toolCall(id, name string, args map[string]any) *entity.ToolCall {
	if args == nil {
		args = map[string]any{}
	}
	return &entity.ToolCall{ID: id, Name: name, Arguments: args}
}
