//go:build windows

package terminal

// WatchResize is a no-op where SIGWINCH does not exist
func WatchResize(fn func()) (remove func()) {
	return func() {}
}
