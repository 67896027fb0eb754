package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vanpelt/rpsh/internal/handshake"
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/recovery"
	"github.com/vanpelt/rpsh/internal/session"
	"github.com/vanpelt/rpsh/internal/terminal"
)

var connectCmd = &cobra.Command{
	Use:   "connect [user@]host[:port]",
	Short: "🔌 Open a remote shell in this terminal",
	Long: `# 🔌 Connect

**Ask the provisioning server for a worker** and stream its shell straight into
your terminal. Your terminal is put in raw mode for the duration of the session.

## 🎯 Target
- Pass **user@host:port** as an argument, or use **--host**, **--user**, **--port**
- Settings missing on the command line come from the config file and `+"`RPSH_*`"+` variables

## 🔑 Authentication
- **--password** for password logins
- **--key** for a private key (at most 16 KiB); **--password** is then its passphrase

## ⌨️  Keys
- **ctrl+]** disconnects

Exits with status 1 when the server refuses the connection or cannot be reached.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

// parseTarget splits [user@]host[:port]
func parseTarget(target string) (user, host, port string) {
	if u, rest, ok := strings.Cut(target, "@"); ok {
		user = u
		target = rest
	}
	if h, p, err := net.SplitHostPort(target); err == nil {
		return user, h, p
	}
	return user, target, ""
}

func runConnect(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		user, host, port := parseTarget(args[0])
		settings.Hostname = host
		if user != "" {
			settings.Username = user
		}
		if port != "" {
			settings.Port = port
		}
	}
	if settings.Hostname == "" {
		return errors.New("no host given, pass [user@]host or set --host")
	}

	req, err := settings.Request()
	if err != nil {
		return err
	}
	warnAboutKey(cmd.ErrOrStderr(), req)

	closeLog, err := logToFile()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	surface := newConsoleSurface(terminal.NewTTYMount(os.Stdout), cmd.ErrOrStderr())

	var ctrl *session.Controller
	ctrl, err = newController(surface, func() terminal.Renderer {
		return terminal.NewConsole(os.Stdin, terminal.WithEscape(terminal.DefaultEscape, ctrl.Disconnect))
	})
	if err != nil {
		return err
	}

	finished := make(chan models.Snapshot, 1)
	ctrl.Subscribe(surface.Observe)
	ctrl.Subscribe(func(s models.Snapshot) {
		if s.State == models.StateClosed || s.State == models.StateFailed {
			select {
			case finished <- s:
			default:
			}
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	recovery.SafeGo("session-controller", func() {
		_ = ctrl.Run(runCtx)
	})
	defer func() {
		cancel()
		<-ctrl.Done()
	}()

	if err := ctrl.Submit(ctx, req); err != nil {
		return err
	}

	select {
	case snap := <-finished:
		return exitError(snap)
	case <-ctx.Done():
		return nil
	}
}

// exitError maps the final snapshot to the command's result
func exitError(snap models.Snapshot) error {
	if snap.State != models.StateFailed {
		return nil
	}
	return fmt.Errorf("connection failed: %s", snap.UI.Message)
}

func warnAboutKey(w io.Writer, req models.ConnectionRequest) {
	if !req.HasPrivateKey() || req.KeyTooLarge() {
		return
	}
	info, err := handshake.InspectKey(req.PrivateKey)
	if err != nil {
		fmt.Fprintf(w, "rpsh: warning: the key file does not look like a private key: %v\n", err)
		return
	}
	if !info.Encrypted {
		return
	}
	switch {
	case req.Password == "":
		fmt.Fprintln(w, "rpsh: warning: the key is passphrase protected, pass the passphrase with --password")
	case !handshake.CheckPassphrase(req.PrivateKey, req.Password):
		fmt.Fprintln(w, "rpsh: warning: --password does not decrypt the key")
	}
}

// consoleSurface is the surface of the connect command. The form is the
// command line, so while it is "visible" status changes are printed; while the
// terminal is visible the TTY belongs to the Console renderer.
type consoleSurface struct {
	mount  terminal.Mount
	status io.Writer

	mu      sync.Mutex
	display models.DisplayMode
	lastMsg string
}

func newConsoleSurface(mount terminal.Mount, status io.Writer) *consoleSurface {
	return &consoleSurface{mount: mount, status: status}
}

func (s *consoleSurface) Mount() terminal.Mount {
	return s.mount
}

func (s *consoleSurface) SetDisplay(mode models.DisplayMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = mode
}

func (s *consoleSurface) OnResize(fn func()) func() {
	return terminal.WatchResize(fn)
}

// Observe prints progress and close reasons. Failures are returned as the
// command's error instead.
func (s *consoleSurface) Observe(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Display == models.TerminalVisible {
		s.lastMsg = ""
		return
	}

	switch snap.State {
	case models.StateRequesting, models.StateAwaitingTransport, models.StateClosed:
	default:
		return
	}
	if snap.UI.Message == "" || snap.UI.Message == s.lastMsg {
		return
	}
	s.lastMsg = snap.UI.Message

	if snap.State == models.StateClosed {
		fmt.Fprintf(s.status, "rpsh: connection closed: %s\n", snap.UI.Message)
		return
	}
	fmt.Fprintf(s.status, "rpsh: %s\n", snap.UI.Message)
}
