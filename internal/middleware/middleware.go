package middleware

import (
	"runtime/debug"
	"time"

	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

type Middleware func(next func()) func()

// SlowThreshold is the run time above which a handler is logged at info.
const SlowThreshold = 100 * time.Millisecond

// Recover keeps a panicking command from taking down the update loop.
func Recover(name string) Middleware {
	return func(next func()) func() {
		return func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic recovered", "handler", name, "error", r, "stack", string(debug.Stack()))
				}
			}()
			next()
		}
	}
}

func Logger(name string) Middleware {
	return func(next func()) func() {
		return func() {
			start := time.Now()
			defer func() {
				duration := time.Since(start)
				if duration > SlowThreshold {
					logger.Info("Handler completed (slow)", "name", name, "duration", duration)
				} else {
					logger.Debug("Handler completed", "name", name, "duration", duration)
				}
			}()
			next()
		}
	}
}

// Chain wraps f so that the first middleware runs outermost.
func Chain(f func(), middlewares ...Middleware) func() {
	for i := len(middlewares) - 1; i >= 0; i-- {
		f = middlewares[i](f)
	}
	return f
}
