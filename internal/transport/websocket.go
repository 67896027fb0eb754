package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vanpelt/rpsh/internal/logger"
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/recovery"
)

// EventKind identifies what happened on a connection
type EventKind int

const (
	EventMessage EventKind = iota
	EventError
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event is one inbound occurrence on a connection
type Event struct {
	Kind   EventKind
	Data   []byte // EventMessage
	Err    error  // EventError
	Code   int    // EventClose
	Reason string // EventClose, empty when none was given
}

// Conn is an established full-duplex byte stream.
//
// Events delivers frames in arrival order. Exactly one EventClose is delivered,
// always last, after which the channel is closed. An EventError is always
// followed by an EventClose.
type Conn interface {
	Events() <-chan Event
	Send(data []byte) error
	Close() error
}

// Dialer opens a Conn to a websocket URL
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialError is a failed websocket handshake
type DialError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("websocket dial %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("websocket dial %s: %v", e.URL, e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// closeWait is how long Close waits for the peer to answer the close frame
const closeWait = time.Second

// WebSocketDialer dials with gorilla/websocket
type WebSocketDialer struct {
	// Jar is shared with the provisioning client so the upgrade carries its cookies
	Jar              http.CookieJar
	HandshakeTimeout time.Duration
	Insecure         bool
	Header           http.Header
}

// Dial connects to url and starts delivering events
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		Jar:              d.Jar,
	}
	if d.Insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		dialErr := &DialError{URL: url, Err: err}
		if resp != nil {
			dialErr.StatusCode = resp.StatusCode
			resp.Body.Close()
		}
		return nil, dialErr
	}

	s := newSocket(conn)
	recovery.SafeGo("transport-read", s.readLoop)
	return s, nil
}

// socket is a Conn over a gorilla websocket
type socket struct {
	conn    *websocket.Conn
	events  chan Event
	writeMu sync.Mutex
	closing atomic.Bool
	// done is closed by Close, readDone once the read loop has exited
	done      chan struct{}
	readDone  chan struct{}
	closeOnce sync.Once
}

func newSocket(conn *websocket.Conn) *socket {
	return &socket{
		conn:     conn,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

func (s *socket) Events() <-chan Event {
	return s.events
}

func (s *socket) readLoop() {
	defer close(s.readDone)
	defer close(s.events)
	defer s.conn.Close()

	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}

		if messageType == websocket.BinaryMessage || messageType == websocket.TextMessage {
			if !s.emit(Event{Kind: EventMessage, Data: message}) {
				return
			}
		}
	}
}

// emit queues ev. Once Close has been called and the buffer is full, nobody is
// draining the events any more and ev is dropped.
func (s *socket) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// finish turns the terminal read error into the closing event sequence
func (s *socket) finish(err error) {
	var closeErr *websocket.CloseError
	switch {
	// 1006 is never sent on the wire, gorilla reports an unexpected EOF with it
	case errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure:
		s.emit(Event{Kind: EventClose, Code: closeErr.Code, Reason: closeErr.Text})
	case s.closing.Load():
		s.emit(Event{Kind: EventClose, Code: websocket.CloseNormalClosure})
	default:
		logger.Debugf("websocket read failed: %v", err)
		if s.emit(Event{Kind: EventError, Err: err}) {
			s.emit(Event{Kind: EventClose, Code: websocket.CloseAbnormalClosure, Reason: models.MsgConnectionError})
		}
	}
}

// Send writes data as one text frame, verbatim
func (s *socket) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closing.Load() {
		return errors.New("connection is closing")
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close starts the closing handshake. The read loop delivers the EventClose.
func (s *socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		close(s.done)

		s.writeMu.Lock()
		err = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWait))
		s.writeMu.Unlock()

		recovery.SafeGo("transport-close", func() {
			select {
			case <-s.readDone:
			case <-time.After(closeWait):
				_ = s.conn.Close()
			}
		})
	})
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
