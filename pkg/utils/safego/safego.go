// Package safego launches goroutines with panic recovery so a single
// misbehaving task cannot take down the process.
package safego

import (
	"context"
	"runtime/debug"

	"github.com/arborworks/arbor/pkg/logger"
)

// Go runs fn on a new goroutine. A panic inside fn is recovered and logged
// with the stack trace instead of crashing the process.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorX("safego", "goroutine panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}
