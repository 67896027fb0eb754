package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/rpsh/internal/fakeserver"
	"github.com/vanpelt/rpsh/internal/models"
)

func startServer(t *testing.T, worker fakeserver.WorkerFunc) *fakeserver.Server {
	t.Helper()
	srv, err := fakeserver.Start(fakeserver.Options{Worker: worker})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

// provision allocates a worker the way the handshake client would
func provision(t *testing.T, srv *fakeserver.Server, client *http.Client) string {
	t.Helper()
	body, err := json.Marshal(models.ConnectionRequest{Hostname: "h", Port: "22", Username: "u"})
	require.NoError(t, err)

	resp, err := client.Post(srv.URL(), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var result models.ProvisioningResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.True(t, result.IsAllocated())
	return result.ID
}

func dial(t *testing.T, srv *fakeserver.Server, jar http.CookieJar, id string) Conn {
	t.Helper()
	wsURL, err := URL(srv.URL(), id)
	require.NoError(t, err)

	d := &WebSocketDialer{Jar: jar, HandshakeTimeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), wsURL)
	require.NoError(t, err)
	return conn
}

func nextEvent(t *testing.T, conn Conn) Event {
	t.Helper()
	select {
	case ev, ok := <-conn.Events():
		require.True(t, ok, "events channel closed early")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertDrained(t *testing.T, conn Conn) {
	t.Helper()
	select {
	case _, ok := <-conn.Events():
		assert.False(t, ok, "no events expected after close")
	case <-time.After(3 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestWebSocket_EchoRoundTrip(t *testing.T) {
	srv := startServer(t, fakeserver.Echo)
	id := provision(t, srv, http.DefaultClient)
	conn := dial(t, srv, nil, id)

	require.NoError(t, conn.Send([]byte("ls -la\r")))

	ev := nextEvent(t, conn)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, []byte("ls -la\r"), ev.Data)

	require.NoError(t, conn.Send([]byte("exit\r")))
	assert.Equal(t, EventMessage, nextEvent(t, conn).Kind)

	ev = nextEvent(t, conn)
	assert.Equal(t, EventClose, ev.Kind)
	assert.Equal(t, "session ended", ev.Reason)
	assertDrained(t, conn)
}

func TestWebSocket_ServerDropEmitsErrorThenClose(t *testing.T) {
	srv := startServer(t, func(w *fakeserver.Worker) {
		_ = w.Send([]byte("welcome"))
		time.Sleep(50 * time.Millisecond)
		_ = w.Drop()
	})
	id := provision(t, srv, http.DefaultClient)
	conn := dial(t, srv, nil, id)

	assert.Equal(t, EventMessage, nextEvent(t, conn).Kind)

	ev := nextEvent(t, conn)
	assert.Equal(t, EventError, ev.Kind)
	assert.Error(t, ev.Err)

	ev = nextEvent(t, conn)
	assert.Equal(t, EventClose, ev.Kind)
	assert.Equal(t, models.MsgConnectionError, ev.Reason)
	assertDrained(t, conn)
}

func TestWebSocket_LocalCloseEmitsSingleClose(t *testing.T) {
	srv := startServer(t, fakeserver.Echo)
	id := provision(t, srv, http.DefaultClient)
	conn := dial(t, srv, nil, id)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	ev := nextEvent(t, conn)
	assert.Equal(t, EventClose, ev.Kind)
	assertDrained(t, conn)

	assert.Error(t, conn.Send([]byte("late")))
}

func TestWebSocket_UnknownWorkerIsClosedWithReason(t *testing.T) {
	srv := startServer(t, fakeserver.Echo)
	conn := dial(t, srv, nil, "does-not-exist")

	ev := nextEvent(t, conn)
	assert.Equal(t, EventClose, ev.Kind)
	assert.Equal(t, models.MsgInvalidWorkerID, ev.Reason)
}

func TestWebSocket_SharesCookiesWithProvisioning(t *testing.T) {
	srv := startServer(t, fakeserver.Echo)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	id := provision(t, srv, &http.Client{Jar: jar})
	conn := dial(t, srv, jar, id)
	defer conn.Close()

	require.NoError(t, conn.Send([]byte("x")))
	nextEvent(t, conn)
	assert.Equal(t, id, srv.CookieSeen(id))
}

func TestWebSocket_DialFailure(t *testing.T) {
	d := &WebSocketDialer{HandshakeTimeout: time.Second}
	_, err := d.Dial(context.Background(), "ws://127.0.0.1:1/ws?id=x")
	require.Error(t, err)

	var dialErr *DialError
	assert.ErrorAs(t, err, &dialErr)
}

func TestWebSocket_CloseStopsReaderWithUndrainedEvents(t *testing.T) {
	flood := func(w *fakeserver.Worker) {
		for i := 0; i < 100; i++ {
			if err := w.Send([]byte("frame")); err != nil {
				return
			}
		}
		for {
			if _, err := w.Receive(); err != nil {
				return
			}
		}
	}
	srv := startServer(t, flood)
	id := provision(t, srv, http.DefaultClient)
	conn := dial(t, srv, nil, id)

	s, ok := conn.(*socket)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return len(s.events) == cap(s.events)
	}, 3*time.Second, 10*time.Millisecond, "event buffer should fill up")

	require.NoError(t, conn.Close())

	select {
	case <-s.readDone:
	case <-time.After(3 * time.Second):
		t.Fatal("read loop still running after Close")
	}
}
