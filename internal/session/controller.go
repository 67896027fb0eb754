package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vanpelt/rpsh/internal/handshake"
	"github.com/vanpelt/rpsh/internal/logger"
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/recovery"
	"github.com/vanpelt/rpsh/internal/terminal"
	"github.com/vanpelt/rpsh/internal/transport"
)

const (
	// DefaultFitDelay gives the surface one layout tick after the display flip
	DefaultFitDelay = 50 * time.Millisecond
	// DefaultErrorCloseGrace is how long to wait for a close after a socket error
	DefaultErrorCloseGrace = 2 * time.Second
	// DefaultDialTimeout bounds the websocket handshake
	DefaultDialTimeout = 10 * time.Second

	mailboxSize = 256
)

// ErrNotRunning is returned when the controller loop has exited
var ErrNotRunning = errors.New("session controller is not running")

// Config wires a Controller to its collaborators
type Config struct {
	// BaseURL is the page URL the provisioning server was reached at
	BaseURL     string
	Provisioner Provisioner
	Dialer      transport.Dialer
	NewRenderer terminal.Factory
	Surface     Surface

	// FitDelay defers the first fit after the terminal is shown, 0 fits immediately
	FitDelay        time.Duration
	ErrorCloseGrace time.Duration
	DialTimeout     time.Duration
}

// Controller runs one session at a time. All state is owned by the goroutine
// running Run; everything else talks to it through the mailbox.
type Controller struct {
	cfg   Config
	inbox chan input
	done  chan struct{}
	spawn func(name string, fn func())

	ctx    context.Context
	cancel context.CancelFunc

	// owned by the loop
	gen          uint64
	state        models.SessionState
	phase        models.BridgePhase
	ui           models.UIState
	sessionID    string
	conn         transport.Conn
	renderer     terminal.Renderer
	removeResize func()
	fitTimer     *time.Timer
	graceTimer   *time.Timer
	observers    []Observer
	published    models.Snapshot
	log          zerolog.Logger

	mu       sync.RWMutex
	snapshot models.Snapshot

	// stopMu orders post against the final drain in Run
	stopMu  sync.RWMutex
	stopped bool
}

// New validates cfg and returns an idle controller
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Provisioner == nil:
		return nil, errors.New("session: provisioner is required")
	case cfg.Dialer == nil:
		return nil, errors.New("session: dialer is required")
	case cfg.NewRenderer == nil:
		return nil, errors.New("session: renderer factory is required")
	case cfg.Surface == nil:
		return nil, errors.New("session: surface is required")
	}
	if _, err := transport.URL(cfg.BaseURL, "check"); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if cfg.FitDelay < 0 {
		cfg.FitDelay = 0
	}
	if cfg.ErrorCloseGrace <= 0 {
		cfg.ErrorCloseGrace = DefaultErrorCloseGrace
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:    cfg,
		inbox:  make(chan input, mailboxSize),
		done:   make(chan struct{}),
		spawn:  recovery.SafeGo,
		ctx:    ctx,
		cancel: cancel,
		state:  models.StateIdle,
		ui:     models.UIState{Status: models.StatusOK},
		log:    logger.Logger.With().Str("component", "session").Logger(),
	}
	c.published = c.currentSnapshot()
	c.snapshot = c.published
	return c, nil
}

// Subscribe registers an observer. Call before Run.
func (c *Controller) Subscribe(o Observer) {
	c.observers = append(c.observers, o)
}

// Snapshot returns the most recently published state
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Done is closed once Run has returned
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run processes the mailbox until ctx is cancelled. A live session is closed
// on the way out so the socket and renderer are always released.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stop()

	c.surface().SetDisplay(models.DisplayModeFor(c.state))
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case in := <-c.inbox:
			c.handle(in)
		}
	}
}

// Submit starts a connection attempt. It returns once the controller has
// accepted or rejected the request; the outcome arrives through observers.
func (c *Controller) Submit(ctx context.Context, req models.ConnectionRequest) error {
	reply := make(chan error, 1)
	if !c.post(submitInput{req: req, reply: reply}) {
		return ErrNotRunning
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}
}

// Disconnect ends the live session, if any, as if the server had closed it
func (c *Controller) Disconnect() {
	c.post(disconnectInput{})
}

func (c *Controller) post(in input) bool {
	c.stopMu.RLock()
	defer c.stopMu.RUnlock()
	if c.stopped {
		return false
	}
	select {
	case c.inbox <- in:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) surface() Surface {
	return c.cfg.Surface
}

func (c *Controller) handle(in input) {
	switch in := in.(type) {
	case submitInput:
		in.reply <- c.handleSubmit(in.req)
	case provisionedInput:
		c.handleProvisioned(in)
	case dialedInput:
		c.handleDialed(in)
	case connEventInput:
		c.handleConnEvent(in)
	case keyInput:
		c.handleKey(in)
	case resizeInput:
		c.handleFit(in.gen, "resize")
	case fitInput:
		c.handleFit(in.gen, "initial")
	case graceInput:
		if in.gen == c.gen && c.live() {
			c.log.Warn().Msg("no close after socket error, closing session")
			c.closeSession(models.MsgConnectionError)
		}
	case disconnectInput:
		if c.live() {
			c.closeSession("")
		}
	}
	c.publish()
}

// live reports whether a renderer and socket are held
func (c *Controller) live() bool {
	return c.state == models.StateStreaming
}

func (c *Controller) handleSubmit(req models.ConnectionRequest) error {
	if c.state.Busy() {
		return handshake.ErrAlreadyConnecting
	}

	if err := handshake.Validate(req); err != nil {
		c.setState(models.StateIdle)
		c.phase = models.PhaseNone
		c.ui = models.UIState{Status: models.StatusError, Message: err.Error()}
		return err
	}

	c.gen++
	gen := c.gen
	c.sessionID = ""
	c.phase = models.PhaseNone
	c.setState(models.StateRequesting)
	c.ui = models.UIState{Status: models.StatusOK, Message: models.MsgRequesting, Loading: true}
	c.log.Info().Uint64("session", gen).Str("hostname", req.Hostname).Msg("requesting new connection")

	ctx := c.ctx
	c.spawn("session-provision", func() {
		result, err := c.cfg.Provisioner.Submit(ctx, req)
		c.post(provisionedInput{gen: gen, result: result, err: err})
	})
	return nil
}

func (c *Controller) handleProvisioned(in provisionedInput) {
	if in.gen != c.gen || c.state != models.StateRequesting {
		return
	}

	if in.err != nil {
		switch {
		case handshake.IsValidation(in.err):
			c.setState(models.StateIdle)
			c.ui = models.UIState{Status: models.StatusError, Message: in.err.Error()}
		case handshake.IsTransport(in.err):
			c.log.Warn().Err(in.err).Msg("provisioning failed")
			c.setState(models.StateFailed)
			c.ui = models.UIState{Status: models.StatusError, Message: models.MsgServerUnreachable}
		default:
			c.log.Error().Err(in.err).Msg("provisioning failed")
			c.setState(models.StateFailed)
			c.ui = models.UIState{Status: models.StatusError, Message: in.err.Error()}
		}
		return
	}

	if !in.result.IsAllocated() {
		c.log.Info().Str("status", in.result.Status).Msg("provisioning denied")
		c.setState(models.StateFailed)
		c.ui = models.UIState{Status: models.StatusOK, Message: in.result.Status}
		return
	}

	wsURL, err := transport.URL(c.cfg.BaseURL, in.result.ID)
	if err != nil {
		c.log.Error().Err(err).Msg("cannot derive websocket url")
		c.setState(models.StateFailed)
		c.ui = models.UIState{Status: models.StatusError, Message: models.MsgTransportFailed}
		return
	}

	c.sessionID = in.result.ID
	c.phase = models.PhaseConnecting
	c.setState(models.StateAwaitingTransport)
	c.ui = models.UIState{Status: models.StatusOK, Message: models.MsgStartingWebsocket, Loading: true}
	c.log.Debug().Str("worker_id", in.result.ID).Str("url", wsURL).Msg("dialing worker")

	gen := in.gen
	ctx := c.ctx
	timeout := c.cfg.DialTimeout
	c.spawn("session-dial", func() {
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		conn, err := c.cfg.Dialer.Dial(dialCtx, wsURL)
		if !c.post(dialedInput{gen: gen, conn: conn, err: err}) && conn != nil {
			_ = conn.Close()
		}
	})
}

func (c *Controller) handleDialed(in dialedInput) {
	if in.gen != c.gen || c.state != models.StateAwaitingTransport {
		if in.conn != nil {
			_ = in.conn.Close()
		}
		return
	}

	if in.err != nil {
		c.log.Warn().Err(in.err).Msg("websocket dial failed")
		c.phase = models.PhaseNone
		c.setState(models.StateFailed)
		c.ui = models.UIState{Status: models.StatusError, Message: models.MsgTransportFailed}
		return
	}

	c.open(in.gen, in.conn)
}

// open runs the Open sequence: fresh renderer attached to the mount, display
// flipped to the terminal, resize listener registered, then fit.
func (c *Controller) open(gen uint64, conn transport.Conn) {
	c.phase = models.PhaseOpen

	renderer := c.cfg.NewRenderer()
	renderer.OnInput(func(p []byte) {
		data := make([]byte, len(p))
		copy(data, p)
		c.post(keyInput{gen: gen, data: data})
	})
	if err := renderer.Attach(c.surface().Mount()); err != nil {
		c.log.Error().Err(err).Msg("failed to attach renderer")
		renderer.Dispose()
		_ = conn.Close()
		c.phase = models.PhaseClosed
		c.setState(models.StateFailed)
		c.ui = models.UIState{Status: models.StatusError, Message: models.MsgTransportFailed}
		return
	}
	c.renderer = renderer
	c.conn = conn

	c.spawn("session-pump", func() {
		for ev := range conn.Events() {
			if !c.post(connEventInput{gen: gen, ev: ev}) {
				_ = conn.Close()
				return
			}
		}
	})

	c.phase = models.PhaseStreaming
	c.setState(models.StateStreaming)
	c.ui = models.UIState{Status: models.StatusOK, Message: models.MsgStartingWebsocket}
	c.log.Info().Str("worker_id", c.sessionID).Msg("✅ terminal session open")

	c.removeResize = c.surface().OnResize(func() {
		c.post(resizeInput{gen: gen})
	})

	if c.cfg.FitDelay == 0 {
		c.fit("initial")
		return
	}
	c.fitTimer = time.AfterFunc(c.cfg.FitDelay, func() {
		c.post(fitInput{gen: gen})
	})
}

func (c *Controller) handleConnEvent(in connEventInput) {
	if in.gen != c.gen || !c.live() {
		return
	}

	switch in.ev.Kind {
	case transport.EventMessage:
		c.renderer.Write(in.ev.Data)
	case transport.EventError:
		c.log.Warn().Err(in.ev.Err).Msg("websocket error")
		if c.graceTimer == nil {
			gen := in.gen
			c.graceTimer = time.AfterFunc(c.cfg.ErrorCloseGrace, func() {
				c.post(graceInput{gen: gen})
			})
		}
	case transport.EventClose:
		c.log.Info().Int("code", in.ev.Code).Str("reason", in.ev.Reason).Msg("websocket closed")
		c.closeSession(in.ev.Reason)
	}
}

func (c *Controller) handleKey(in keyInput) {
	if in.gen != c.gen || !c.live() {
		return
	}
	if err := c.conn.Send(in.data); err != nil {
		c.log.Debug().Err(err).Msg("failed to send input")
	}
}

func (c *Controller) handleFit(gen uint64, why string) {
	if gen != c.gen || !c.live() {
		return
	}
	c.fit(why)
}

func (c *Controller) fit(why string) {
	size, err := c.renderer.Fit()
	if err != nil {
		c.log.Debug().Err(err).Str("trigger", why).Msg("fit failed")
		return
	}
	c.log.Debug().Str("size", size.String()).Str("trigger", why).Msg("terminal fitted")
}

// closeSession runs the Closed sequence: display back to the form, dispose the
// renderer, report the reason, drop the resize listener, close the socket.
func (c *Controller) closeSession(reason string) {
	c.phase = models.PhaseClosed
	c.setState(models.StateClosed)

	if c.renderer != nil {
		c.renderer.Dispose()
		c.renderer = nil
	}

	c.ui = models.UIState{Status: models.StatusOK, Message: reason}

	if c.removeResize != nil {
		c.removeResize()
		c.removeResize = nil
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.log.Debug().Err(err).Msg("socket close")
		}
		c.conn = nil
	}

	c.stopTimers()
}

func (c *Controller) stopTimers() {
	if c.fitTimer != nil {
		c.fitTimer.Stop()
		c.fitTimer = nil
	}
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

// stop closes done, waits out posts already in progress and releases whatever
// they left in the mailbox
func (c *Controller) stop() {
	c.cancel()
	close(c.done)

	c.stopMu.Lock()
	c.stopped = true
	c.stopMu.Unlock()

	for {
		select {
		case in := <-c.inbox:
			c.discard(in)
		default:
			return
		}
	}
}

func (c *Controller) discard(in input) {
	switch in := in.(type) {
	case submitInput:
		in.reply <- ErrNotRunning
	case dialedInput:
		if in.conn != nil {
			c.log.Debug().Msg("closing socket dialed during shutdown")
			_ = in.conn.Close()
		}
	}
}

func (c *Controller) shutdown() {
	c.cancel()
	if c.live() {
		c.closeSession("")
	}
	c.stopTimers()
	c.publish()
}

// setState moves to s and hands the surface the matching absolute display mode
func (c *Controller) setState(s models.SessionState) {
	if s != c.state {
		c.log.Debug().Str("from", c.state.String()).Str("to", s.String()).Msg("session state")
	}
	c.state = s
	c.surface().SetDisplay(models.DisplayModeFor(s))
}

func (c *Controller) currentSnapshot() models.Snapshot {
	return models.Snapshot{
		State:     c.state,
		Phase:     c.phase,
		UI:        c.ui,
		Display:   models.DisplayModeFor(c.state),
		SessionID: c.sessionID,
	}
}

// publish notifies observers when anything changed since the last call
func (c *Controller) publish() {
	snap := c.currentSnapshot()

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	if snap == c.published {
		return
	}
	c.published = snap
	for _, o := range c.observers {
		o(snap)
	}
}
