// Package wasm implements the WASM-sandboxed executor tier: code runs
// inside a memory-isolated wazero virtual machine with no syscall surface
// beyond captured stdio. It is the strongest isolation tier, at the cost
// of library availability.
package wasm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	wazerosys "github.com/tetratelabs/wazero/sys"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/internal/sandbox"
	"github.com/arborworks/arbor/pkg/utils/json"
)

func init() {
	sandbox.Register(sandbox.TierWASM, func(cfg sandbox.Config) (sandbox.REPL, error) {
		return New(cfg)
	})
}

// 64 MiB of linear memory unless configured otherwise.
const defaultMemoryPages = 1024

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

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

// REPL is one WASM session. Source code is executed by a configured
// interpreter module that speaks the same stdin/stdout JSON protocol as
// the subprocess tiers; a payload that is itself a wasm binary is
// instantiated directly instead. With no interpreter configured, only
// wasm binaries are accepted — the tier never probes for runtimes on the
// execution path.
type REPL struct {
	interp      []byte
	memoryPages uint32

	mu      sync.Mutex
	context map[string]any
}

// New builds the tier, loading the interpreter module once up front.
func New(cfg sandbox.Config) (*REPL, error) {
	r := &REPL{
		memoryPages: cfg.WASMMemoryPages,
		context:     map[string]any{},
	}
	if r.memoryPages == 0 {
		r.memoryPages = defaultMemoryPages
	}
	if cfg.WASMModulePath != "" {
		mod, err := os.ReadFile(cfg.WASMModulePath)
		if err != nil {
			return nil, fmt.Errorf("%w: read wasm interpreter module: %v", errno.ErrConfiguration, err)
		}
		if !bytes.HasPrefix(mod, wasmMagic) {
			return nil, fmt.Errorf("%w: %s is not a wasm binary", errno.ErrConfiguration, cfg.WASMModulePath)
		}
		r.interp = mod
	}
	return r, nil
}

// Execute runs code inside a fresh VM instance. The VM is closed with the
// context, so the timeout reclaims it even mid-execution.
func (r *REPL) Execute(ctx context.Context, code string, timeout time.Duration) *sandbox.REPLResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	res := r.run(ctx, code, timeout)
	res.ExecutionTimeMS = time.Since(start).Milliseconds()
	return res
}

func (r *REPL) run(ctx context.Context, code string, timeout time.Duration) *sandbox.REPLResult {
	direct := bytes.HasPrefix([]byte(code), wasmMagic)
	if !direct && r.interp == nil {
		return &sandbox.REPLResult{
			Success: false,
			Error:   fmt.Sprintf("%s: wasm tier has no interpreter module configured and the payload is not a wasm binary", errno.ErrConfiguration),
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rcfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(r.memoryPages).
		WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(execCtx, rcfg)
	defer rt.Close(context.Background())

	wasi_snapshot_preview1.MustInstantiate(execCtx, rt)

	var stdin bytes.Buffer
	module := r.interp
	if direct {
		module = []byte(code)
	} else {
		payload, err := json.Marshal(&harnessPayload{Code: code, Context: r.context})
		if err != nil {
			return &sandbox.REPLResult{Success: false, Error: fmt.Sprintf("encode context: %v", err)}
		}
		stdin.Write(payload)
	}

	var stdout, stderr bytes.Buffer
	mcfg := wazero.NewModuleConfig().
		WithName("sandbox").
		WithStdin(&stdin).
		WithStdout(&stdout).
		WithStderr(&stderr)

	_, runErr := rt.InstantiateWithConfig(execCtx, module, mcfg)

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
		if exitErr, ok := runErr.(*wazerosys.ExitError); !ok || exitErr.ExitCode() != 0 {
			res := &sandbox.REPLResult{
				Success: false,
				Error:   fmt.Sprintf("wasm module failed: %v", runErr),
			}
			res.Output, res.Truncated = sandbox.Truncate(sandbox.MergeStreams(stdout.String(), stderr.String()))
			return res
		}
	}

	if direct {
		res := &sandbox.REPLResult{Success: true}
		res.Output, res.Truncated = sandbox.Truncate(sandbox.MergeStreams(stdout.String(), stderr.String()))
		return res
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
	return res
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

// Close is a no-op; runtimes are per-execution.
func (r *REPL) Close() error { return nil }
