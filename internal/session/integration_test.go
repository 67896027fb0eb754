package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/rpsh/internal/fakeserver"
	"github.com/vanpelt/rpsh/internal/handshake"
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/terminal"
	"github.com/vanpelt/rpsh/internal/transport"
)

func TestController_EndToEndWithFakeServer(t *testing.T) {
	srv, err := fakeserver.Start(fakeserver.Options{BasePath: "/console/"})
	require.NoError(t, err)
	defer srv.Close()

	jar, err := handshake.NewCookieJar()
	require.NoError(t, err)
	client, err := handshake.New(srv.URL(), handshake.WithHTTPClient(handshake.NewHTTPClient(jar, 5*time.Second, false)))
	require.NoError(t, err)

	var mu sync.Mutex
	var emulator *terminal.Emulator
	tr := &trace{}
	surface := newFakeSurface(tr)

	ctrl, err := New(Config{
		BaseURL:     srv.URL(),
		Provisioner: client,
		Dialer:      &transport.WebSocketDialer{Jar: jar, HandshakeTimeout: 2 * time.Second},
		NewRenderer: func() terminal.Renderer {
			mu.Lock()
			defer mu.Unlock()
			emulator = terminal.NewEmulator(terminal.Size{Cols: 40, Rows: 10})
			return emulator
		},
		Surface: surface,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	require.NoError(t, ctrl.Submit(ctx, models.ConnectionRequest{Hostname: "10.0.0.5", Username: "root", Password: "x"}))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().State == models.StateStreaming
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	e := emulator
	mu.Unlock()
	require.NotNil(t, e)
	assert.Equal(t, terminal.Size{Cols: 80, Rows: 24}, e.Size(), "fitted to the mount")

	e.Type([]byte("hello"))
	require.Eventually(t, func() bool {
		return strings.Contains(e.Render(), "hello")
	}, 3*time.Second, 10*time.Millisecond)

	e.Type([]byte("\rexit\r"))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().State == models.StateClosed
	}, 3*time.Second, 10*time.Millisecond)

	snap := ctrl.Snapshot()
	assert.Equal(t, "session ended", snap.UI.Message)
	assert.Equal(t, models.FormVisible, snap.Display)

	id := snap.SessionID
	assert.Equal(t, []string{id}, srv.Attached())
	assert.Equal(t, id, srv.CookieSeen(id))
}
