package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arborworks/arbor/internal/engine/domain/entity"
	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/pkg/logger"
)

const (
	// DefaultMaxAttempts bounds the retry loop per backend invocation.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay seeds the exponential backoff.
	DefaultBaseDelay = 500 * time.Millisecond
)

// retryingBackend wraps a Backend with bounded exponential backoff.
// Provider and network failures are transient often enough that one
// completion attempt is the wrong policy, but the bound keeps a dead
// provider from stalling the tree.
type retryingBackend struct {
	inner       Backend
	maxAttempts int
	baseDelay   time.Duration
}

// Retrying wraps b so that Complete retries transient failures up to
// maxAttempts with exponential backoff, terminal after exhaustion.
func Retrying(b Backend, maxAttempts int, baseDelay time.Duration) Backend {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &retryingBackend{inner: b, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

func (r *retryingBackend) Complete(ctx context.Context, messages []*entity.Message, tools []*entity.ToolDefinition) (*Completion, error) {
	var lastErr error
	delay := r.baseDelay
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		resp, err := r.inner.Complete(ctx, messages, tools)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		if attempt == r.maxAttempts {
			break
		}
		logger.WarnX("backend", "attempt %d/%d failed, retrying in %s: %v",
			attempt, r.maxAttempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
	}
	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", errno.ErrBackend, r.maxAttempts, lastErr)
}

// Stream is not retried: the contract says streams are not restartable,
// so a mid-stream failure cannot be transparently resumed.
func (r *retryingBackend) Stream(ctx context.Context, messages []*entity.Message, tools []*entity.ToolDefinition) (StreamReader, error) {
	return r.inner.Stream(ctx, messages, tools)
}

func (r *retryingBackend) ModelName() string {
	return r.inner.ModelName()
}

// retryable classifies failures. Cancellation and configuration faults
// are terminal; everything else from a provider is assumed transient.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errno.ErrConfiguration) {
		return false
	}
	return true
}
