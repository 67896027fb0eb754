// Package terminal holds the renderers a session bridge streams into.
package terminal

import (
	"fmt"
	"io"
)

// Size is a terminal geometry in character cells
type Size struct {
	Cols int
	Rows int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Cols, s.Rows)
}

// Valid reports whether both dimensions are positive
func (s Size) Valid() bool {
	return s.Cols > 0 && s.Rows > 0
}

// Mount is where a renderer draws
type Mount interface {
	io.Writer
	Size() (Size, error)
}

// Refresher is implemented by mounts that redraw on demand. Renderers that keep
// their own screen call Refresh after it changes.
type Refresher interface {
	Refresh()
}

// Renderer is a terminal display that streams output and produces input.
//
// A renderer is used for one session only: Attach once, Dispose once. After
// Dispose, Write is ignored and no more input is delivered.
type Renderer interface {
	Attach(m Mount) error
	Write(p []byte)
	OnInput(fn func([]byte))
	Fit() (Size, error)
	Dispose()
}

// Factory creates a fresh renderer for each session
type Factory func() Renderer
