// Package sandbox defines the code-execution tier contract and its four
// isolation variants: restricted interpreter, unrestricted local host,
// ephemeral container, and WASM virtual machine.
package sandbox

import (
	"context"
	"fmt"
	"time"
)

// MaxOutputChars caps REPL output. Longer output is elided in the middle
// and the result is flagged Truncated.
const MaxOutputChars = 10000

// Tier selects one concrete isolation level. Selection is explicit
// configuration; no variant probes for runtime availability on the
// execution path.
type Tier string

const (
	TierRestricted    Tier = "restricted"
	TierLocalDev      Tier = "localdev"
	TierContainerized Tier = "container"
	TierWASM          Tier = "wasm"
)

// REPLResult is the outcome of one Execute call. Faults inside the sandbox
// never propagate as raised errors: they are folded into Error with
// Success=false.
type REPLResult struct {
	// Output is merged stdout and stderr, stderr under a "[stderr]" marker.
	Output string `json:"output"`

	// Error describes the fault when Success is false: the fault kind, the
	// offending source line when resolvable, and a full trace.
	Error string `json:"error,omitempty"`

	// Success reports whether the code ran to completion.
	Success bool `json:"success"`

	// Truncated reports that Output was cut at MaxOutputChars.
	Truncated bool `json:"truncated"`

	// ExecutionTimeMS is the wall time of the execution.
	ExecutionTimeMS int64 `json:"execution_time_ms"`

	// MemoryPeakBytes is the peak resident memory, nil when the platform
	// does not expose it.
	MemoryPeakBytes *int64 `json:"memory_peak_bytes,omitempty"`

	// CPUTimeMS is consumed CPU time, nil when unavailable.
	CPUTimeMS *int64 `json:"cpu_time_ms,omitempty"`
}

// REPL is the contract every execution tier satisfies. One REPL owns one
// session: a named-value context that persists across Execute calls until
// ClearContext. A REPL is not safe for concurrent Execute calls; callers
// serialize access per session.
type REPL interface {
	// Execute compiles and runs code against the session namespace. A hard
	// timeout forcibly reclaims the execution boundary; the result then
	// reports Success=false with a timeout marker and any partial stdout.
	Execute(ctx context.Context, code string, timeout time.Duration) *REPLResult

	// GetContext returns a snapshot of the session's named values.
	GetContext() map[string]any

	// SetContext stores one named value into the session.
	SetContext(key string, value any)

	// ClearContext wipes the session namespace.
	ClearContext()

	// Close releases the tier's resources.
	Close() error
}

// TimeoutError formats the tier-uniform timeout marker.
func TimeoutError(timeout time.Duration) string {
	return fmt.Sprintf("Execution timed out after %g seconds", timeout.Seconds())
}

// Truncate enforces MaxOutputChars with a middle elision so both the head
// and the tail of long output survive.
func Truncate(s string) (string, bool) {
	if len(s) <= MaxOutputChars {
		return s, false
	}
	const marker = "\n... [output truncated] ...\n"
	head := MaxOutputChars * 2 / 3
	tail := MaxOutputChars - head - len(marker)
	return s[:head] + marker + s[len(s)-tail:], true
}

// MergeStreams joins captured stdout and stderr into one output string,
// stderr under a distinguishable marker.
func MergeStreams(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return "[stderr]\n" + stderr
	}
	return stdout + "\n[stderr]\n" + stderr
}
