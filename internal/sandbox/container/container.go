// Package container implements the containerized executor tier: each
// execution runs in an ephemeral docker container with CPU/memory limits
// and no network, and teardown is guaranteed after the timeout even when
// the process inside ignores signals.
package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/internal/sandbox"
	"github.com/arborworks/arbor/pkg/logger"
	"github.com/arborworks/arbor/pkg/utils/json"
)

func init() {
	sandbox.Register(sandbox.TierContainerized, func(cfg sandbox.Config) (sandbox.REPL, error) {
		return New(cfg)
	})
}

const (
	defaultImage  = "python:3.11-slim"
	defaultCPUs   = 1.0
	defaultMemory = "512m"
)

// harness mirrors the localdev tier's in-interpreter protocol: context in
// on stdin, streams/result/surviving namespace out as JSON on stdout.
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

// REPL is one containerized session. Containers are per-execution and
// ephemeral; only the JSON context survives between calls, held on the
// host side.
type REPL struct {
	image  string
	cpus   float64
	memory string

	mu      sync.Mutex
	context map[string]any
}

// New builds the tier. Image availability is a deployment concern; the
// constructor only validates configuration shape, never probes the
// daemon.
func New(cfg sandbox.Config) (*REPL, error) {
	if _, err := exec.LookPath("docker"); err != nil {
		return nil, fmt.Errorf("%w: docker CLI not found: %v", errno.ErrConfiguration, err)
	}
	r := &REPL{
		image:   cfg.DockerImage,
		cpus:    cfg.DockerCPUs,
		memory:  cfg.DockerMemory,
		context: map[string]any{},
	}
	if r.image == "" {
		r.image = defaultImage
	}
	if r.cpus <= 0 {
		r.cpus = defaultCPUs
	}
	if r.memory == "" {
		r.memory = defaultMemory
	}
	return r, nil
}

// Execute runs code in a fresh container. The container gets a known name
// so the watchdog can kill it by force after the timeout, independent of
// whatever the code inside is doing.
func (r *REPL) Execute(ctx context.Context, code string, timeout time.Duration) *sandbox.REPLResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	res := r.run(ctx, code, timeout)
	res.ExecutionTimeMS = time.Since(start).Milliseconds()
	return res
}

func (r *REPL) run(ctx context.Context, code string, timeout time.Duration) *sandbox.REPLResult {
	payload, err := json.Marshal(&harnessPayload{Code: code, Context: r.context})
	if err != nil {
		return &sandbox.REPLResult{Success: false, Error: fmt.Sprintf("encode context: %v", err)}
	}

	name := "arbor-exec-" + uuid.NewString()[:8]
	args := []string{
		"run", "--rm", "-i",
		"--name", name,
		"--network", "none",
		"--cpus", strconv.FormatFloat(r.cpus, 'f', -1, 64),
		"--memory", r.memory,
		r.image,
		"python3", "-c", harness,
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command("docker", args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return &sandbox.REPLResult{Success: false, Error: fmt.Sprintf("start container: %v", err)}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var runErr error
	timedOut := false
	select {
	case runErr = <-done:
	case <-time.After(timeout):
		timedOut = true
		kill(name)
		<-done
	case <-ctx.Done():
		kill(name)
		<-done
		return &sandbox.REPLResult{Success: false, Error: errno.ErrAborted.Error()}
	}

	if timedOut {
		out, truncated := sandbox.Truncate(stdout.String())
		return &sandbox.REPLResult{
			Success:   false,
			Error:     sandbox.TimeoutError(timeout),
			Output:    out,
			Truncated: truncated,
		}
	}
	if runErr != nil {
		return &sandbox.REPLResult{
			Success: false,
			Error:   fmt.Sprintf("container failed: %v\n%s", runErr, stderr.String()),
		}
	}

	var resp harnessResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return &sandbox.REPLResult{
			Success: false,
			Error:   fmt.Sprintf("decode container response: %v", err),
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
	return res
}

// kill tears the container down by name. SIGKILL via the daemon works
// even when PID 1 inside ignores signals; --rm then removes the
// container.
func kill(name string) {
	killCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if out, err := exec.CommandContext(killCtx, "docker", "kill", name).CombinedOutput(); err != nil {
		logger.WarnX("sandbox", "docker kill %s: %v (%s)", name, err, strings.TrimSpace(string(out)))
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

// Close is a no-op; containers are per-execution.
func (r *REPL) Close() error { return nil }
