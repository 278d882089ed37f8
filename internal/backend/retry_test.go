package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type flakyBackend struct {
	attempts    atomic.Int32
	failUntil   int32
	terminalErr error
}

func (f *flakyBackend) Complete(ctx context.Context, msgs []*entity.Message, tools []*entity.ToolDefinition) (*Completion, error) {
	n := f.attempts.Add(1)
	if f.terminalErr != nil {
		return nil, f.terminalErr
	}
	if n <= f.failUntil {
		return nil, errors.New("transient: connection reset")
	}
	return &Completion{Content: "ok"}, nil
}

func (f *flakyBackend) Stream(ctx context.Context, msgs []*entity.Message, tools []*entity.ToolDefinition) (StreamReader, error) {
	return nil, errors.New("not implemented")
}

func (f *flakyBackend) ModelName() string { return "flaky" }

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	inner := &flakyBackend{failUntil: 2}
	b := Retrying(inner, 3, time.Millisecond)

	resp, err := b.Complete(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Content)
	require.EqualValues(t, 3, inner.attempts.Load())
}

func TestRetryingExhaustionIsBackendError(t *testing.T) {
	inner := &flakyBackend{failUntil: 100}
	b := Retrying(inner, 3, time.Millisecond)

	_, err := b.Complete(context.Background(), nil, nil)
	require.ErrorIs(t, err, errno.ErrBackend)
	require.EqualValues(t, 3, inner.attempts.Load())
}

func TestRetryingDoesNotRetryConfigurationFaults(t *testing.T) {
	inner := &flakyBackend{terminalErr: fmt.Errorf("%w: missing API key", errno.ErrConfiguration)}
	b := Retrying(inner, 3, time.Millisecond)

	_, err := b.Complete(context.Background(), nil, nil)
	require.ErrorIs(t, err, errno.ErrConfiguration)
	require.EqualValues(t, 1, inner.attempts.Load())
}

func TestRetryingDoesNotRetryCancellation(t *testing.T) {
	inner := &flakyBackend{terminalErr: context.Canceled}
	b := Retrying(inner, 3, time.Millisecond)

	_, err := b.Complete(context.Background(), nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 1, inner.attempts.Load())
}
