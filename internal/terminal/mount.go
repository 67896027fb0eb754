package terminal

import (
	"errors"
	"os"

	"golang.org/x/term"
)

// DefaultSize is used when a mount cannot report its geometry
var DefaultSize = Size{Cols: 80, Rows: 24}

// ErrNotTerminal is returned when a mount's file is not a terminal
var ErrNotTerminal = errors.New("not a terminal")

// TTYMount is a Mount over a terminal file such as os.Stdout
type TTYMount struct {
	File *os.File
}

// NewTTYMount returns a mount writing to f
func NewTTYMount(f *os.File) *TTYMount {
	return &TTYMount{File: f}
}

func (m *TTYMount) Write(p []byte) (int, error) {
	return m.File.Write(p)
}

// Size reports the terminal's current geometry
func (m *TTYMount) Size() (Size, error) {
	fd := int(m.File.Fd())
	if !term.IsTerminal(fd) {
		return Size{}, ErrNotTerminal
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return Size{}, err
	}
	return Size{Cols: cols, Rows: rows}, nil
}
