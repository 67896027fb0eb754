// Package fakeserver is a scripted stand-in for a webssh provisioning server.
// It speaks the same wire protocol (POST <base> then GET <base>/ws?id=) and lets
// tests and the devserver command decide how each worker behaves.
package fakeserver

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/vanpelt/rpsh/internal/logger"
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/recovery"
)

// CookieName is set on provisioning responses and expected on the websocket upgrade
const CookieName = "rpsh_worker"

// DefaultRecycleAfter is how long an unclaimed worker is kept before it is recycled
const DefaultRecycleAfter = 3 * time.Second

// ProvisionFunc decides the answer to a ConnectionRequest. A zero status means 200.
type ProvisionFunc func(req models.ConnectionRequest) (result models.ProvisioningResult, status int)

// WorkerFunc drives one attached worker until it returns
type WorkerFunc func(w *Worker)

// Options configures a Server
type Options struct {
	// Addr defaults to 127.0.0.1:0
	Addr string
	// BasePath is where the page is mounted, default "/"
	BasePath string
	// Provision defaults to allocating a fresh uuid for every request
	Provision ProvisionFunc
	// Worker defaults to Echo
	Worker       WorkerFunc
	RecycleAfter time.Duration
}

// Server is a running fake provisioning server
type Server struct {
	app      *fiber.App
	listener net.Listener
	opts     Options
	url      string

	mu       sync.Mutex
	requests []models.ConnectionRequest
	pending  map[string]*time.Timer
	attached []string
	cookies  map[string]string
	done     chan struct{}
}

// Start listens and serves in the background
func Start(opts Options) (*Server, error) {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	if opts.BasePath == "" {
		opts.BasePath = "/"
	}
	if !strings.HasPrefix(opts.BasePath, "/") {
		opts.BasePath = "/" + opts.BasePath
	}
	if !strings.HasSuffix(opts.BasePath, "/") {
		opts.BasePath += "/"
	}
	if opts.Provision == nil {
		opts.Provision = AllocateAll
	}
	if opts.Worker == nil {
		opts.Worker = Echo
	}
	if opts.RecycleAfter == 0 {
		opts.RecycleAfter = DefaultRecycleAfter
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", opts.Addr, err)
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		listener: ln,
		opts:     opts,
		url:      fmt.Sprintf("http://%s%s", ln.Addr().String(), opts.BasePath),
		pending:  make(map[string]*time.Timer),
		cookies:  make(map[string]string),
		done:     make(chan struct{}),
	}
	s.registerRoutes()

	recovery.SafeGoWithCleanup("fakeserver", func() {
		if err := s.app.Listener(ln); err != nil {
			logger.Warnf("fake server stopped: %v", err)
		}
	}, func() {
		close(s.done)
	})
	logger.Infof("🧪 fake provisioning server at %s", s.url)

	return s, nil
}

func (s *Server) registerRoutes() {
	base := s.opts.BasePath
	s.app.Get(base+"ws", s.handleWebSocket)
	s.app.Get(base, func(c *fiber.Ctx) error {
		return c.SendString("rpsh fake provisioning server")
	})
	s.app.Post(base, s.handleProvision)
}

// URL is the page URL clients should be pointed at
func (s *Server) URL() string {
	return s.url
}

// Requests returns every ConnectionRequest received so far
func (s *Server) Requests() []models.ConnectionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConnectionRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Attached returns the worker ids that a websocket claimed, in order
func (s *Server) Attached() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.attached))
	copy(out, s.attached)
	return out
}

// CookieSeen returns the worker cookie presented on the websocket upgrade for id
func (s *Server) CookieSeen(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies[id]
}

// Close stops the server
func (s *Server) Close() error {
	s.mu.Lock()
	for id, timer := range s.pending {
		timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()

	err := s.app.Shutdown()
	<-s.done
	return err
}

func (s *Server) handleProvision(c *fiber.Ctx) error {
	var req models.ConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.Denied("Invalid request body"))
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	result, status := s.opts.Provision(req)
	if status == 0 {
		status = fiber.StatusOK
	}

	if result.IsAllocated() {
		s.register(result.ID)
		c.Cookie(&fiber.Cookie{Name: CookieName, Value: result.ID, Path: "/"})
	}

	return c.Status(status).JSON(result)
}

// register parks a worker until a websocket claims it or it is recycled
func (s *Server) register(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = time.AfterFunc(s.opts.RecycleAfter, func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		logger.Debugf("recycled unclaimed worker %s", id)
	})
}

// claim removes a pending worker, reporting whether it existed
func (s *Server) claim(id, cookie string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.pending[id]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.pending, id)
	s.attached = append(s.attached, id)
	s.cookies[id] = cookie
	return true
}

func (s *Server) handleWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	id := c.Query("id")
	cookie := c.Cookies(CookieName)

	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		if !s.claim(id, cookie) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, models.MsgInvalidWorkerID),
				time.Now().Add(time.Second))
			return
		}

		logger.Debugf("📡 worker %s attached from %s", id, conn.RemoteAddr())
		s.opts.Worker(&Worker{ID: id, conn: conn})
	})(c)
}

// AllocateAll grants every request a fresh worker id
func AllocateAll(models.ConnectionRequest) (models.ProvisioningResult, int) {
	return models.Allocated(uuid.New().String()), 0
}

// DenyAll refuses every request with status
func DenyAll(status string) ProvisionFunc {
	return func(models.ConnectionRequest) (models.ProvisioningResult, int) {
		return models.Denied(status), 0
	}
}

// Fixed grants every request the same worker id
func Fixed(id string) ProvisionFunc {
	return func(models.ConnectionRequest) (models.ProvisioningResult, int) {
		return models.Allocated(id), 0
	}
}

// Worker is the server side of one attached terminal session
type Worker struct {
	ID   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// Send writes one text frame to the client
func (w *Worker) Send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive blocks for the next frame from the client
func (w *Worker) Receive() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

// Close ends the session with a normal close frame carrying reason
func (w *Worker) Close(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(time.Second))
}

// Drop tears the TCP connection down without a close frame
func (w *Worker) Drop() error {
	return w.conn.UnderlyingConn().Close()
}

// Echo sends back every frame it receives. "exit" followed by a carriage return
// ends the session with reason "session ended".
func Echo(w *Worker) {
	var line []byte
	for {
		data, err := w.Receive()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, net.ErrClosed) {
				logger.Debugf("worker %s read ended: %v", w.ID, err)
			}
			return
		}
		if err := w.Send(data); err != nil {
			return
		}

		line = append(line, data...)
		for {
			i := bytes.IndexByte(line, '\r')
			if i < 0 {
				break
			}
			cmd := strings.TrimSpace(string(line[:i]))
			line = line[i+1:]
			if cmd == "exit" {
				_ = w.Close("session ended")
				return
			}
		}
	}
}
