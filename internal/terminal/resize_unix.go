//go:build !windows

package terminal

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/vanpelt/rpsh/internal/recovery"
)

// WatchResize calls fn on every SIGWINCH until remove is called
func WatchResize(fn func()) (remove func()) {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, syscall.SIGWINCH)

	recovery.SafeGo("resize-watch", func() {
		for {
			select {
			case <-ch:
				fn()
			case <-done:
				return
			}
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
