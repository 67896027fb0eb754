package handshake

import (
	"errors"
	"fmt"

	"github.com/vanpelt/rpsh/internal/models"
)

// ErrAlreadyConnecting is returned when a submit arrives while another is pending
var ErrAlreadyConnecting = errors.New(models.MsgAlreadyConnecting)

// ValidationError is a local precondition failure caught before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransportError is a network-level failure talking to the provisioning endpoint.
// StatusCode is set when the server answered with a non-2xx status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsTransport reports whether err is a TransportError
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
