// Package session owns the lifecycle of the one remote shell a client runs:
// provisioning a worker, bridging its websocket to a terminal renderer and
// projecting the state onto a surface.
package session

import (
	"context"

	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/terminal"
)

// Provisioner allocates a worker for a connection request
type Provisioner interface {
	Submit(ctx context.Context, req models.ConnectionRequest) (models.ProvisioningResult, error)
}

// Surface is what the user sees: a form and a terminal, one at a time
type Surface interface {
	// Mount is where renderers are attached
	Mount() terminal.Mount
	// SetDisplay is called with the absolute mode on every state transition
	SetDisplay(mode models.DisplayMode)
	// OnResize registers fn for layout changes until remove is called
	OnResize(fn func()) (remove func())
}

// Observer is called on the controller goroutine after every change.
// It must not block and must not call back into the controller synchronously.
type Observer func(models.Snapshot)
