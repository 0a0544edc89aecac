package utils

import (
	"context"
	"log"
	"runtime/debug"

	"stock-dashboard/pkg/logger"
)

// GoSafe runs fn on a new goroutine and keeps a panic in fn from taking the
// process down. Used for fire-and-forget work such as write-behind persistence.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic in goroutine: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// ShouldContinue reports whether the context is still live, logging when it
// is not so loops that poll it leave a trace of why they stopped.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		log.Info("context done, stopping", logger.ErrorField(ctx.Err()))
		return false
	default:
		return true
	}
}
