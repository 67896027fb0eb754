package recovery

import (
	"runtime/debug"

	"github.com/vanpelt/rpsh/internal/logger"
)

// SafeGo runs a function in a goroutine with automatic panic recovery.
// A panicking socket pump or reader must not take the terminal down with it.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Logger.Error().
					Str("goroutine", name).
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Msg("🚨 panic recovered")
			}
		}()
		fn()
	}()
}

// SafeGoWithCleanup runs a function in a goroutine with panic recovery and cleanup.
// cleanup runs whether fn returns normally or panics.
func SafeGoWithCleanup(name string, fn func(), cleanup func()) {
	go func() {
		defer func() {
			if cleanup != nil {
				cleanup()
			}
			if r := recover(); r != nil {
				logger.Logger.Error().
					Str("goroutine", name).
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Msg("🚨 panic recovered")
			}
		}()
		fn()
	}()
}
