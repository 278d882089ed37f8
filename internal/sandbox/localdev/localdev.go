// Package localdev implements the unrestricted executor tier: code runs as
// a python3 subprocess with full host access. It requires an explicit
// trust opt-in and writes every execution to an audit log.
package localdev

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/internal/sandbox"
	"github.com/arborworks/arbor/pkg/logger"
	"github.com/arborworks/arbor/pkg/utils/json"
)

func init() {
	sandbox.Register(sandbox.TierLocalDev, func(cfg sandbox.Config) (sandbox.REPL, error) {
		return New(cfg)
	})
}

// harness runs inside the interpreter: execute the payload code against
// the injected context, then report streams, result and the surviving
// JSON-serializable namespace on stdout.
const harness = `
import sys, json, io, traceback
payload = json.load(sys.stdin)
ns = dict(payload.get("context") or {})
out, errbuf = io.StringIO(), io.StringIO()
resp = {"success": True, "error": None}
real_out, real_err = sys.stdout, sys.stderr
sys.stdout, sys.stderr = out, errbuf
try:
    exec(compile(payload["code"], "<repl>", "exec"), ns)
except BaseException as exc:
    tb = traceback.format_exc()
    lineno = None
    for fr in traceback.extract_tb(sys.exc_info()[2]):
        if fr.filename == "<repl>":
            lineno = fr.lineno
    lines = payload["code"].splitlines()
    msg = "%s: %s" % (type(exc).__name__, exc)
    if lineno and 1 <= lineno <= len(lines):
        msg += "\n  Line %d: %s" % (lineno, lines[lineno - 1].strip())
    resp["success"] = False
    resp["error"] = msg + "\n\nFull traceback:\n" + tb
finally:
    sys.stdout, sys.stderr = real_out, real_err
resp["stdout"] = out.getvalue()
resp["stderr"] = errbuf.getvalue()
if "result" in ns:
    try:
        resp["result_repr"] = repr(ns["result"])
    except Exception:
        pass
ctx = {}
for k, v in ns.items():
    if k.startswith("__"):
        continue
    try:
        json.dumps(v)
        ctx[k] = v
    except (TypeError, ValueError):
        pass
resp["context"] = ctx
json.dump(resp, real_out)
`

type harnessPayload struct {
	Code    string         `json:"code"`
	Context map[string]any `json:"context"`
}

type harnessResponse struct {
	Success    bool           `json:"success"`
	Error      *string        `json:"error"`
	Stdout     string         `json:"stdout"`
	Stderr     string         `json:"stderr"`
	ResultRepr *string        `json:"result_repr"`
	Context    map[string]any `json:"context"`
}

type auditRecord struct {
	ExecutionCount int64     `json:"execution_count"`
	Timestamp      time.Time `json:"timestamp"`
	Code           string    `json:"code"`
	Success        bool      `json:"success"`
	DurationMS     int64     `json:"duration_ms"`
	Error          string    `json:"error,omitempty"`
}

// REPL is one unrestricted host session. The session context lives on the
// Go side and round-trips through each interpreter process as JSON, so
// only JSON-serializable values survive between executions.
type REPL struct {
	python    string
	auditPath string

	mu        sync.Mutex
	context   map[string]any
	execCount int64
	auditFile *os.File
}

// New builds the tier. The trust flag is mandatory: this tier grants the
// model full host access, so it must never be reachable by accident.
func New(cfg sandbox.Config) (*REPL, error) {
	if !cfg.TrustUnrestricted {
		return nil, fmt.Errorf("%w: localdev tier requires trust_unrestricted=true", errno.ErrConfiguration)
	}
	python := cfg.PythonPath
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		return nil, fmt.Errorf("%w: interpreter %q not found: %v", errno.ErrConfiguration, python, err)
	}

	r := &REPL{
		python:    python,
		auditPath: cfg.AuditLogPath,
		context:   map[string]any{},
	}
	if r.auditPath != "" {
		f, err := os.OpenFile(r.auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("%w: open audit log: %v", errno.ErrConfiguration, err)
		}
		r.auditFile = f
	}
	return r, nil
}

// Execute runs code in a fresh interpreter process with the session
// context injected. Every execution is audited regardless of outcome.
func (r *REPL) Execute(ctx context.Context, code string, timeout time.Duration) *sandbox.REPLResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	r.execCount++

	res := r.run(ctx, code, timeout)
	res.ExecutionTimeMS = time.Since(start).Milliseconds()

	r.audit(&auditRecord{
		ExecutionCount: r.execCount,
		Timestamp:      start,
		Code:           code,
		Success:        res.Success,
		DurationMS:     res.ExecutionTimeMS,
		Error:          res.Error,
	})
	return res
}

func (r *REPL) run(ctx context.Context, code string, timeout time.Duration) *sandbox.REPLResult {
	payload, err := json.Marshal(&harnessPayload{Code: code, Context: r.context})
	if err != nil {
		return &sandbox.REPLResult{Success: false, Error: fmt.Sprintf("encode context: %v", err)}
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(execCtx, r.python, "-c", harness)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	runErr := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		out, truncated := sandbox.Truncate(stdout.String())
		return &sandbox.REPLResult{
			Success:   false,
			Error:     sandbox.TimeoutError(timeout),
			Output:    out,
			Truncated: truncated,
		}
	}
	if ctx.Err() != nil {
		return &sandbox.REPLResult{Success: false, Error: errno.ErrAborted.Error()}
	}
	if runErr != nil {
		return &sandbox.REPLResult{
			Success: false,
			Error:   fmt.Sprintf("interpreter failed: %v\n%s", runErr, stderr.String()),
		}
	}

	var resp harnessResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return &sandbox.REPLResult{
			Success: false,
			Error:   fmt.Sprintf("decode interpreter response: %v", err),
		}
	}

	if resp.Context != nil {
		r.context = resp.Context
	}

	merged := sandbox.MergeStreams(resp.Stdout, resp.Stderr)
	if resp.ResultRepr != nil {
		if merged != "" && !strings.HasSuffix(merged, "\n") {
			merged += "\n"
		}
		merged += "result = " + *resp.ResultRepr
	}

	res := &sandbox.REPLResult{Success: resp.Success}
	res.Output, res.Truncated = sandbox.Truncate(merged)
	if resp.Error != nil {
		res.Error = *resp.Error
	}
	fillRusage(cmd, res)
	return res
}

// fillRusage reports CPU time and peak memory when the platform exposes
// them through wait4. Callers must tolerate both staying nil.
func fillRusage(cmd *exec.Cmd, res *sandbox.REPLResult) {
	state := cmd.ProcessState
	if state == nil {
		return
	}
	cpu := (state.UserTime() + state.SystemTime()).Milliseconds()
	res.CPUTimeMS = &cpu
	if ru, ok := state.SysUsage().(*syscall.Rusage); ok && ru != nil {
		// Maxrss is KiB on Linux.
		peak := ru.Maxrss * 1024
		res.MemoryPeakBytes = &peak
	}
}

func (r *REPL) audit(rec *auditRecord) {
	if r.auditFile == nil {
		return
	}
	line, err := json.Marshal(rec)
	if err != nil {
		logger.WarnX("sandbox", "audit encode failed: %v", err)
		return
	}
	if _, err := r.auditFile.Write(append(line, '\n')); err != nil {
		logger.WarnX("sandbox", "audit write failed: %v", err)
	}
}

// GetContext snapshots the session context.
func (r *REPL) GetContext() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]any, len(r.context))
	for k, v := range r.context {
		out[k] = v
	}
	return out
}

// SetContext stores one named value into the session.
func (r *REPL) SetContext(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.context[key] = value
}

// ClearContext wipes the session context.
func (r *REPL) ClearContext() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.context = map[string]any{}
}

// Close flushes and closes the audit log.
func (r *REPL) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.auditFile != nil {
		err := r.auditFile.Close()
		r.auditFile = nil
		return err
	}
	return nil
}
