package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/pkg/logger"
)

// AbortController manages trajectory cancellation and timeout.
//
// It wraps context.WithCancel/WithTimeout so that a top-level timeout or
// an explicit Abort propagates to every in-flight descendant completion
// and every outstanding executor boundary through the derived context.
type AbortController struct {
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.Mutex
	down         bool
	trajectoryID string
}

// NewAbortController creates a controller scoped to one trajectory. A
// timeout greater than 0 arms automatic cancellation.
func NewAbortController(parent context.Context, trajectoryID string, timeout time.Duration) *AbortController {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &AbortController{
		ctx:          ctx,
		cancel:       cancel,
		trajectoryID: trajectoryID,
	}
}

// Context returns the controlled context.
// Use this context for all downstream operations.
func (ac *AbortController) Context() context.Context {
	return ac.ctx
}

// Abort cancels the trajectory and marks it as aborted.
//
// It is safe to call Abort multiple times.
func (ac *AbortController) Abort() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.down {
		return
	}
	ac.down = true
	ac.cancel()
	logger.InfoX("engine", "abort trajectory %s", ac.trajectoryID)
}

// IsAborted returns true if the trajectory is aborted.
func (ac *AbortController) IsAborted() bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.down {
		return true
	}
	select {
	case <-ac.ctx.Done():
		return true
	default:
		return false
	}
}

// CheckAborted returns errno.ErrAborted if the trajectory is aborted.
func (ac *AbortController) CheckAborted() error {
	if ac.IsAborted() {
		return errno.ErrAborted
	}
	return nil
}

// CleanUp releases the controller's context resources.
func (ac *AbortController) CleanUp() {
	ac.cancel()
}
