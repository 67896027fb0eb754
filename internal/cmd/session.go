package cmd

import (
	"github.com/vanpelt/rpsh/internal/handshake"
	"github.com/vanpelt/rpsh/internal/session"
	"github.com/vanpelt/rpsh/internal/terminal"
	"github.com/vanpelt/rpsh/internal/transport"
)

// newController wires the handshake client and websocket dialer around one
// cookie jar, then hands them to a session controller for surface
func newController(surface session.Surface, newRenderer terminal.Factory) (*session.Controller, error) {
	jar, err := handshake.NewCookieJar()
	if err != nil {
		return nil, err
	}

	client, err := handshake.New(settings.URL,
		handshake.WithHTTPClient(handshake.NewHTTPClient(jar, settings.RequestTimeout, settings.Insecure)))
	if err != nil {
		return nil, err
	}

	dialer := &transport.WebSocketDialer{
		Jar:              jar,
		HandshakeTimeout: settings.DialTimeout,
		Insecure:         settings.Insecure,
	}

	return session.New(session.Config{
		BaseURL:         settings.URL,
		Provisioner:     client,
		Dialer:          dialer,
		NewRenderer:     newRenderer,
		Surface:         surface,
		FitDelay:        settings.FitDelay,
		ErrorCloseGrace: settings.ErrorCloseGrace,
		DialTimeout:     settings.DialTimeout,
	})
}
