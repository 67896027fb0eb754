package terminal

import (
	"errors"
	"os"
	"sync"

	"github.com/vanpelt/rpsh/internal/logger"
	"github.com/vanpelt/rpsh/internal/recovery"
	"golang.org/x/term"
)

// DefaultEscape is ctrl+], the byte that detaches from a Console session
const DefaultEscape byte = 0x1d

// ErrAlreadyAttached is returned by a second Attach
var ErrAlreadyAttached = errors.New("renderer already attached")

// ConsoleOption configures a Console
type ConsoleOption func(*Console)

// WithEscape calls fn instead of forwarding input when b is typed
func WithEscape(b byte, fn func()) ConsoleOption {
	return func(c *Console) {
		c.escape = b
		c.onEscape = fn
	}
}

// Console passes a local TTY straight through: input bytes are read raw from in,
// output is written verbatim to the mount.
type Console struct {
	in       *os.File
	escape   byte
	onEscape func()

	mu       sync.Mutex
	mount    Mount
	onInput  func([]byte)
	state    *term.State
	disposed bool
}

// NewConsole creates a Console reading from in
func NewConsole(in *os.File, opts ...ConsoleOption) *Console {
	c := &Console{in: in}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach puts in into raw mode when it is a terminal and starts reading input
func (c *Console) Attach(m Mount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mount != nil || c.disposed {
		return ErrAlreadyAttached
	}

	fd := int(c.in.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		c.state = state
	}
	c.mount = m

	recovery.SafeGo("console-input", c.readLoop)
	return nil
}

// readLoop blocks on the input file. A read already in progress when the
// console is disposed cannot be interrupted; its bytes are dropped.
func (c *Console) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := c.in.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !c.deliver(data) {
				return
			}
		}
		if err != nil {
			logger.Debugf("console input ended: %v", err)
			return
		}
	}
}

func (c *Console) deliver(data []byte) bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	fn := c.onInput
	onEscape := c.onEscape
	escape := c.escape
	c.mu.Unlock()

	if onEscape != nil {
		for i, b := range data {
			if b == escape {
				if i > 0 && fn != nil {
					fn(data[:i])
				}
				onEscape()
				return true
			}
		}
	}

	if fn != nil {
		fn(data)
	}
	return true
}

// Write sends remote output to the mount verbatim
func (c *Console) Write(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || c.mount == nil {
		return
	}
	if _, err := c.mount.Write(p); err != nil {
		logger.Debugf("console write failed: %v", err)
	}
}

// OnInput registers the callback receiving typed bytes
func (c *Console) OnInput(fn func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInput = fn
}

// Fit reports the mount's current geometry
func (c *Console) Fit() (Size, error) {
	c.mu.Lock()
	m := c.mount
	c.mu.Unlock()

	if m == nil {
		return Size{}, errors.New("renderer not attached")
	}
	return m.Size()
}

// Dispose restores the terminal and stops input delivery
func (c *Console) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.disposed = true
	c.onInput = nil

	if c.state != nil {
		if err := term.Restore(int(c.in.Fd()), c.state); err != nil {
			logger.Warnf("failed to restore terminal: %v", err)
		}
		c.state = nil
	}
}
