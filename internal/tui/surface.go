package tui

import (
	"sync"

	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/terminal"
)

// headerHeight is the terminal view's title bar
const headerHeight = 1

// Surface is the bubbletea side of a session. The controller calls it from its
// own goroutine, so every method only records state and wakes the program.
type Surface struct {
	mu       sync.Mutex
	display  models.DisplayMode
	size     terminal.Size
	emulator *terminal.Emulator
	resize   map[int]func()
	nextID   int

	changes chan struct{}
}

// NewSurface returns a surface showing the form
func NewSurface() *Surface {
	return &Surface{
		display: models.FormVisible,
		size:    terminal.DefaultSize,
		resize:  make(map[int]func()),
		changes: make(chan struct{}, 1),
	}
}

// Mount is the screen area below the title bar
func (s *Surface) Mount() terminal.Mount {
	return screen{s}
}

// SetDisplay records the mode the view should render
func (s *Surface) SetDisplay(mode models.DisplayMode) {
	s.mu.Lock()
	s.display = mode
	s.mu.Unlock()
	s.Notify()
}

// Display returns the mode last set by the controller
func (s *Surface) Display() models.DisplayMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// OnResize registers fn for window size changes
func (s *Surface) OnResize(fn func()) (remove func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.resize[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.resize, id)
			s.mu.Unlock()
		})
	}
}

// NewRenderer is the session's renderer factory. Each session gets a fresh
// emulator sized to the current screen.
func (s *Surface) NewRenderer() terminal.Renderer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emulator = terminal.NewEmulator(s.size)
	return s.emulator
}

// Emulator returns the latest session's emulator, nil before the first session
func (s *Surface) Emulator() *terminal.Emulator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emulator
}

// Notify wakes the program to redraw. It never blocks.
func (s *Surface) Notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Changes delivers a value whenever something needs redrawing
func (s *Surface) Changes() <-chan struct{} {
	return s.changes
}

// SetWindowSize records the window geometry and fires resize listeners when
// the screen area changed
func (s *Surface) SetWindowSize(width, height int) {
	size := terminal.Size{Cols: width, Rows: height - headerHeight}
	if !size.Valid() {
		return
	}

	s.mu.Lock()
	if size == s.size {
		s.mu.Unlock()
		return
	}
	s.size = size
	fns := make([]func(), 0, len(s.resize))
	for _, fn := range s.resize {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Surface) screenSize() terminal.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// screen is the Mount handed to emulators. Output is drawn from the emulator's
// grid, so bytes written here are dropped and only trigger a redraw.
type screen struct {
	s *Surface
}

func (m screen) Write(p []byte) (int, error) {
	m.s.Notify()
	return len(p), nil
}

func (m screen) Size() (terminal.Size, error) {
	return m.s.screenSize(), nil
}

func (m screen) Refresh() {
	m.s.Notify()
}
