package terminal

import (
	"bytes"
	"errors"
	"strings"
	"sync"

	"github.com/hinshun/vt10x"
	"github.com/vanpelt/rpsh/internal/recovery"
)

// Emulator is a headless vt10x screen. Remote output is interpreted into a cell
// grid that a UI draws with Render, and the UI hands keystrokes back with Type.
type Emulator struct {
	mu       sync.Mutex
	vt       vt10x.Terminal
	size     Size
	mount    Mount
	onInput  func([]byte)
	disposed bool
	// replies collects answers to terminal queries (DSR, CPR) while vt is written
	replies bytes.Buffer
}

// NewEmulator creates an emulator of the given size, DefaultSize when invalid
func NewEmulator(size Size) *Emulator {
	if !size.Valid() {
		size = DefaultSize
	}
	e := &Emulator{size: size}
	e.vt = vt10x.New(vt10x.WithSize(size.Cols, size.Rows), vt10x.WithWriter(&e.replies))
	return e
}

// Attach binds the emulator to the mount it sizes itself from
func (e *Emulator) Attach(m Mount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mount != nil || e.disposed {
		return ErrAlreadyAttached
	}
	e.mount = m
	return nil
}

// Write feeds remote output to the screen and refreshes the mount
func (e *Emulator) Write(p []byte) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	_, _ = e.vt.Write(p)
	m := e.mount
	var reply []byte
	if e.replies.Len() > 0 {
		reply = append([]byte(nil), e.replies.Bytes()...)
		e.replies.Reset()
	}
	fn := e.onInput
	e.mu.Unlock()

	// Write usually runs on the goroutine that consumes input, so replies are
	// handed over from a fresh one
	if reply != nil && fn != nil {
		recovery.SafeGo("emulator-reply", func() { fn(reply) })
	}
	if r, ok := m.(Refresher); ok {
		r.Refresh()
	}
}

// OnInput registers the callback receiving typed bytes
func (e *Emulator) OnInput(fn func([]byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onInput = fn
}

// Type delivers keystrokes from the UI as input
func (e *Emulator) Type(p []byte) {
	e.mu.Lock()
	fn := e.onInput
	disposed := e.disposed
	e.mu.Unlock()

	if disposed || fn == nil || len(p) == 0 {
		return
	}
	fn(p)
}

// Fit resizes the screen to the mount
func (e *Emulator) Fit() (Size, error) {
	e.mu.Lock()
	m := e.mount
	e.mu.Unlock()

	if m == nil {
		return Size{}, errors.New("renderer not attached")
	}
	size, err := m.Size()
	if err != nil {
		return Size{}, err
	}
	e.Resize(size)
	return size, nil
}

// Resize updates the screen dimensions
func (e *Emulator) Resize(size Size) {
	if !size.Valid() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if size == e.size {
		return
	}
	e.size = size
	e.vt.Resize(size.Cols, size.Rows)
}

// Size returns the current screen dimensions
func (e *Emulator) Size() Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size
}

// Dispose stops the emulator. The last screen stays readable.
func (e *Emulator) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.onInput = nil
}

// Render returns the visible screen as plain text with a block cursor.
// Trailing blank lines are trimmed.
func (e *Emulator) Render() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var buf bytes.Buffer
	cursor := e.vt.Cursor()
	cursorVisible := e.vt.CursorVisible() && !e.disposed

	for row := 0; row < e.size.Rows; row++ {
		if row > 0 {
			buf.WriteByte('\n')
		}
		for col := 0; col < e.size.Cols; col++ {
			cell := e.vt.Cell(col, row)
			switch {
			case cursorVisible && row == cursor.Y && col == cursor.X && (cell.Char == 0 || cell.Char == ' '):
				buf.WriteRune('█')
			case cell.Char == 0:
				buf.WriteByte(' ')
			default:
				buf.WriteRune(cell.Char)
			}
		}
	}

	lines := strings.Split(buf.String(), "\n")
	last := len(lines) - 1
	for last >= 0 && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	return strings.Join(lines[:last+1], "\n")
}
