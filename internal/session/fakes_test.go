package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/terminal"
	"github.com/vanpelt/rpsh/internal/transport"
)

// trace records side effects across fakes in the order they happened
type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.events))
	copy(out, t.events)
	return out
}

// since returns the events recorded after the first occurrence of marker
func (t *trace) since(marker string) []string {
	events := t.list()
	for i, e := range events {
		if e == marker {
			return events[i+1:]
		}
	}
	return nil
}

func (t *trace) count(event string) int {
	n := 0
	for _, e := range t.list() {
		if e == event {
			n++
		}
	}
	return n
}

type fakeMount struct {
	size terminal.Size
}

func (m *fakeMount) Write(p []byte) (int, error) { return len(p), nil }

func (m *fakeMount) Size() (terminal.Size, error) { return m.size, nil }

type fakeSurface struct {
	tr    *trace
	mount *fakeMount

	mu       sync.Mutex
	displays []models.DisplayMode
	resize   map[int]func()
	nextID   int
}

func newFakeSurface(tr *trace) *fakeSurface {
	return &fakeSurface{
		tr:     tr,
		mount:  &fakeMount{size: terminal.Size{Cols: 80, Rows: 24}},
		resize: make(map[int]func()),
	}
}

func (s *fakeSurface) Mount() terminal.Mount { return s.mount }

func (s *fakeSurface) SetDisplay(mode models.DisplayMode) {
	s.mu.Lock()
	s.displays = append(s.displays, mode)
	s.mu.Unlock()
	s.tr.add("display:%s", mode)
}

func (s *fakeSurface) OnResize(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.resize[id] = fn
	s.mu.Unlock()
	s.tr.add("resize:add")

	return func() {
		s.mu.Lock()
		delete(s.resize, id)
		s.mu.Unlock()
		s.tr.add("resize:remove")
	}
}

func (s *fakeSurface) lastDisplay() (models.DisplayMode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.displays) == 0 {
		return 0, false
	}
	return s.displays[len(s.displays)-1], true
}

func (s *fakeSurface) sawTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.displays {
		if d == models.TerminalVisible {
			return true
		}
	}
	return false
}

func (s *fakeSurface) listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resize)
}

func (s *fakeSurface) triggerResize() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.resize))
	for _, fn := range s.resize {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakeRenderer struct {
	tr *trace

	mu       sync.Mutex
	input    func([]byte)
	written  [][]byte
	fits     int
	disposed bool
}

func (r *fakeRenderer) Attach(m terminal.Mount) error {
	r.tr.add("renderer:attach")
	return nil
}

func (r *fakeRenderer) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written = append(r.written, p)
}

func (r *fakeRenderer) OnInput(fn func([]byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = fn
}

func (r *fakeRenderer) Fit() (terminal.Size, error) {
	r.mu.Lock()
	r.fits++
	r.mu.Unlock()
	r.tr.add("renderer:fit")
	return terminal.Size{Cols: 80, Rows: 24}, nil
}

func (r *fakeRenderer) Dispose() {
	r.mu.Lock()
	r.disposed = true
	r.mu.Unlock()
	r.tr.add("renderer:dispose")
}

// typeKeys calls the input callback even after dispose, like a late keystroke
func (r *fakeRenderer) typeKeys(p string) {
	r.mu.Lock()
	fn := r.input
	r.mu.Unlock()
	if fn != nil {
		fn([]byte(p))
	}
}

func (r *fakeRenderer) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.written))
	for i, w := range r.written {
		out[i] = string(w)
	}
	return out
}

func (r *fakeRenderer) fitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fits
}

func (r *fakeRenderer) isDisposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

type renderers struct {
	tr  *trace
	mu  sync.Mutex
	all []*fakeRenderer
}

func (rs *renderers) factory() terminal.Renderer {
	r := &fakeRenderer{tr: rs.tr}
	rs.mu.Lock()
	rs.all = append(rs.all, r)
	rs.mu.Unlock()
	return r
}

func (rs *renderers) last() *fakeRenderer {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.all) == 0 {
		return nil
	}
	return rs.all[len(rs.all)-1]
}

func (rs *renderers) count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.all)
}

type fakeConn struct {
	tr     *trace
	events chan transport.Event

	mu     sync.Mutex
	sent   []string
	closed bool
}

func newFakeConn(tr *trace) *fakeConn {
	return &fakeConn{tr: tr, events: make(chan transport.Event, 64)}
}

func (c *fakeConn) Events() <-chan transport.Event { return c.events }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.sent = append(c.sent, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()
	if !already {
		c.tr.add("socket:close")
	}
	return nil
}

func (c *fakeConn) sends() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	conn *fakeConn
	err  error

	mu   sync.Mutex
	urls []string
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func (d *fakeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.urls))
	copy(out, d.urls)
	return out
}

type fakeProvisioner struct {
	result models.ProvisioningResult
	err    error
	block  chan struct{}

	mu   sync.Mutex
	reqs []models.ConnectionRequest
}

func (p *fakeProvisioner) Submit(ctx context.Context, req models.ConnectionRequest) (models.ProvisioningResult, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return models.ProvisioningResult{}, ctx.Err()
		}
	}
	return p.result, p.err
}

func (p *fakeProvisioner) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reqs)
}
