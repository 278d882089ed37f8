// Package restricted implements the restricted executor tier: code runs in
// an embedded Starlark interpreter with no filesystem, process, network or
// introspection access. Denied operations yield a sandbox-violation result,
// never a crash.
package restricted

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/internal/sandbox"
)

func init() {
	sandbox.Register(sandbox.TierRestricted, func(cfg sandbox.Config) (sandbox.REPL, error) {
		return New(), nil
	})
}

// deniedPatterns are scanned before execution. The interpreter itself has
// no hostile builtins, but an explicit denial gives the model a precise
// violation message instead of an undefined-symbol error.
var deniedPatterns = []struct {
	re   *regexp.Regexp
	what string
}{
	{regexp.MustCompile(`(?m)^\s*import\s`), "module import"},
	{regexp.MustCompile(`(?m)^\s*from\s+\S+\s+import\s`), "module import"},
	{regexp.MustCompile(`\bload\s*\(`), "module load"},
	{regexp.MustCompile(`\bopen\s*\(`), "file access"},
	{regexp.MustCompile(`\bexec\s*\(`), "dynamic execution"},
	{regexp.MustCompile(`\beval\s*\(`), "dynamic execution"},
	{regexp.MustCompile(`\bcompile\s*\(`), "dynamic execution"},
	{regexp.MustCompile(`__[a-zA-Z]+__`), "dunder introspection"},
	{regexp.MustCompile(`\bos\s*\.`), "os access"},
	{regexp.MustCompile(`\bsys\s*\.`), "sys access"},
	{regexp.MustCompile(`\bsubprocess\b`), "subprocess access"},
	{regexp.MustCompile(`\bsocket\b`), "network access"},
}

// REPL is one restricted session. The session context doubles as the
// interpreter's global namespace, so values set via SetContext are visible
// to executed code and assignments made by code persist across calls.
type REPL struct {
	globals starlark.StringDict
}

// New creates an empty restricted session.
func New() *REPL {
	return &REPL{globals: starlark.StringDict{}}
}

// Execute runs code against the persistent session namespace.
func (r *REPL) Execute(ctx context.Context, code string, timeout time.Duration) *sandbox.REPLResult {
	start := time.Now()

	for _, p := range deniedPatterns {
		if loc := p.re.FindStringIndex(code); loc != nil {
			line := 1 + strings.Count(code[:loc[0]], "\n")
			return &sandbox.REPLResult{
				Success: false,
				Error: fmt.Sprintf("%s: denied operation (%s) at line %d",
					errno.ErrSandboxViolation, p.what, line),
				ExecutionTimeMS: time.Since(start).Milliseconds(),
			}
		}
	}

	var stdout strings.Builder
	thread := &starlark.Thread{
		Name: "repl",
		Print: func(_ *starlark.Thread, msg string) {
			stdout.WriteString(msg)
			stdout.WriteByte('\n')
		},
	}

	// The watchdog reclaims the interpreter on timeout or caller
	// cancellation. Cancel is safe to call from another goroutine.
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	timedOut := false
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-time.After(timeout):
			timedOut = true
			thread.Cancel("timeout")
		case <-watchCtx.Done():
			if ctx.Err() != nil {
				thread.Cancel("aborted")
			}
		}
	}()

	opts := &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
	}
	globals, err := starlark.ExecFileOptions(opts, thread, "<repl>", code, r.globals)
	stopWatch()
	<-done

	elapsed := time.Since(start).Milliseconds()
	out := stdout.String()

	if err != nil {
		res := &sandbox.REPLResult{
			Success:         false,
			ExecutionTimeMS: elapsed,
		}
		res.Output, res.Truncated = sandbox.Truncate(out)
		switch {
		case timedOut:
			res.Error = sandbox.TimeoutError(timeout)
		case ctx.Err() != nil:
			res.Error = errno.ErrAborted.Error()
		default:
			res.Error = formatEvalError(err, code)
		}
		return res
	}

	for name, v := range globals {
		r.globals[name] = v
	}
	if v, ok := r.globals["result"]; ok {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += "result = " + v.String()
	}

	res := &sandbox.REPLResult{
		Success:         true,
		ExecutionTimeMS: elapsed,
	}
	res.Output, res.Truncated = sandbox.Truncate(out)
	return res
}

// formatEvalError renders a fault the way the model can act on: kind,
// offending line, then the interpreter's full backtrace.
func formatEvalError(err error, code string) string {
	lines := strings.Split(code, "\n")
	switch e := err.(type) {
	case *starlark.EvalError:
		msg := fmt.Sprintf("EvalError: %s", e.Msg)
		if pos := e.CallStack.At(0).Pos; int(pos.Line) >= 1 && int(pos.Line) <= len(lines) {
			msg += fmt.Sprintf("\n  Line %d: %s", pos.Line, strings.TrimSpace(lines[pos.Line-1]))
		}
		return msg + "\n\nFull traceback:\n" + e.Backtrace()
	case syntax.Error:
		msg := fmt.Sprintf("SyntaxError: %s", e.Msg)
		if int(e.Pos.Line) >= 1 && int(e.Pos.Line) <= len(lines) {
			msg += fmt.Sprintf("\n  Line %d: %s", e.Pos.Line, strings.TrimSpace(lines[e.Pos.Line-1]))
		}
		return msg
	default:
		return err.Error()
	}
}

// GetContext snapshots the session globals as plain Go values.
func (r *REPL) GetContext() map[string]any {
	out := make(map[string]any, len(r.globals))
	for name, v := range r.globals {
		out[name] = fromStarlark(v)
	}
	return out
}

// SetContext injects one named value into the session namespace.
func (r *REPL) SetContext(key string, value any) {
	r.globals[key] = toStarlark(value)
}

// ClearContext wipes the session namespace.
func (r *REPL) ClearContext() {
	r.globals = starlark.StringDict{}
}

// Close is a no-op for the in-process tier.
func (r *REPL) Close() error { return nil }

func toStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(x)
	case int:
		return starlark.MakeInt(x)
	case int64:
		return starlark.MakeInt64(x)
	case float64:
		return starlark.Float(x)
	case string:
		return starlark.String(x)
	case []any:
		elems := make([]starlark.Value, len(x))
		for i, e := range x {
			elems[i] = toStarlark(e)
		}
		return starlark.NewList(elems)
	case map[string]any:
		d := starlark.NewDict(len(x))
		for k, e := range x {
			_ = d.SetKey(starlark.String(k), toStarlark(e))
		}
		return d
	case starlark.Value:
		return x
	default:
		return starlark.String(fmt.Sprintf("%v", x))
	}
}

func fromStarlark(v starlark.Value) any {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(x)
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i
		}
		return x.String()
	case starlark.Float:
		return float64(x)
	case starlark.String:
		return string(x)
	case *starlark.List:
		out := make([]any, 0, x.Len())
		for i := 0; i < x.Len(); i++ {
			out = append(out, fromStarlark(x.Index(i)))
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, x.Len())
		for _, item := range x.Items() {
			if key, ok := starlark.AsString(item[0]); ok {
				out[key] = fromStarlark(item[1])
			}
		}
		return out
	default:
		return v.String()
	}
}
