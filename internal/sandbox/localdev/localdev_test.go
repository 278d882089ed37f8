package localdev

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/internal/sandbox"
	"github.com/arborworks/arbor/pkg/utils/json"
)

const testTimeout = 10 * time.Second

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func newTestREPL(t *testing.T, auditPath string) *REPL {
	t.Helper()
	requirePython(t)
	r, err := New(sandbox.Config{TrustUnrestricted: true, AuditLogPath: auditPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNewRequiresTrustOptIn(t *testing.T) {
	_, err := New(sandbox.Config{})
	require.ErrorIs(t, err, errno.ErrConfiguration)
}

func TestExecuteCapturesStreamsAndResult(t *testing.T) {
	r := newTestREPL(t, "")

	res := r.Execute(context.Background(), `
print("to stdout")
import sys
print("to stderr", file=sys.stderr)
result = 6 * 7
`, testTimeout)

	require.True(t, res.Success)
	require.Contains(t, res.Output, "to stdout")
	require.Contains(t, res.Output, "[stderr]")
	require.Contains(t, res.Output, "to stderr")
	require.Contains(t, res.Output, "result = 42")
	require.NotNil(t, res.CPUTimeMS)
}

func TestContextSurvivesAcrossProcesses(t *testing.T) {
	r := newTestREPL(t, "")

	res := r.Execute(context.Background(), "x = {'a': 1}", testTimeout)
	require.True(t, res.Success)

	res = r.Execute(context.Background(), "result = x['a'] + 41", testTimeout)
	require.True(t, res.Success)
	require.Contains(t, res.Output, "result = 42")
}

func TestNonSerializableValuesDropFromContext(t *testing.T) {
	r := newTestREPL(t, "")

	res := r.Execute(context.Background(), "keep = 1\nf = open('/dev/null')", testTimeout)
	require.True(t, res.Success)

	ctxVals := r.GetContext()
	require.Contains(t, ctxVals, "keep")
	require.NotContains(t, ctxVals, "f")
}

func TestExecuteErrorReportsLineAndTraceback(t *testing.T) {
	r := newTestREPL(t, "")

	res := r.Execute(context.Background(), "x = 1\ny = 1 / 0", testTimeout)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "ZeroDivisionError")
	require.Contains(t, res.Error, "Line 2")
	require.Contains(t, res.Error, "Full traceback:")
}

func TestExecuteTimeout(t *testing.T) {
	r := newTestREPL(t, "")

	res := r.Execute(context.Background(), "while True:\n    pass", 500*time.Millisecond)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "timed out after 0.5 seconds")
}

func TestAuditLogRecordsEveryExecution(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.log")
	r := newTestREPL(t, auditPath)

	r.Execute(context.Background(), "result = 1", testTimeout)
	r.Execute(context.Background(), "raise ValueError('x')", testTimeout)
	require.NoError(t, r.Close())

	f, err := os.Open(auditPath)
	require.NoError(t, err)
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)
	require.EqualValues(t, 1, records[0]["execution_count"])
	require.EqualValues(t, 2, records[1]["execution_count"])
	require.Equal(t, true, records[0]["success"])
	require.Equal(t, false, records[1]["success"])
}
