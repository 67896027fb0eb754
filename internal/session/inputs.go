package session

import (
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/transport"
)

// input is anything delivered to the controller mailbox
type input interface {
	isInput()
}

type submitInput struct {
	req   models.ConnectionRequest
	reply chan error
}

// provisionedInput carries the outcome of the provisioning POST
type provisionedInput struct {
	gen    uint64
	result models.ProvisioningResult
	err    error
}

// dialedInput carries the outcome of the websocket dial
type dialedInput struct {
	gen  uint64
	conn transport.Conn
	err  error
}

type connEventInput struct {
	gen uint64
	ev  transport.Event
}

// keyInput is a chunk typed into the renderer
type keyInput struct {
	gen  uint64
	data []byte
}

type resizeInput struct{ gen uint64 }

type fitInput struct{ gen uint64 }

type graceInput struct{ gen uint64 }

type disconnectInput struct{}

func (submitInput) isInput()      {}
func (provisionedInput) isInput() {}
func (dialedInput) isInput()      {}
func (connEventInput) isInput()   {}
func (keyInput) isInput()         {}
func (resizeInput) isInput()      {}
func (fitInput) isInput()         {}
func (graceInput) isInput()       {}
func (disconnectInput) isInput()  {}
