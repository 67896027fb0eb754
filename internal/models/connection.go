package models

import (
	"encoding/json"
)

// MaxPrivateKeySize is the largest private key, in bytes, the client will submit.
const MaxPrivateKeySize = 16384

// DefaultPort is used when a ConnectionRequest leaves the port empty
const DefaultPort = "22"

// ConnectionRequest carries the parameters of a remote shell the server should open
type ConnectionRequest struct {
	Hostname   string
	Port       string
	Username   string
	Password   string // Also used as the passphrase of an encrypted private key
	PrivateKey []byte // PEM text, nil when password auth is used
}

// connectionRequestWire is the JSON body POSTed to the provisioning endpoint
type connectionRequestWire struct {
	Hostname   string  `json:"hostname"`
	Port       string  `json:"port"`
	Username   string  `json:"username"`
	Password   string  `json:"password"`
	PrivateKey *string `json:"privateKey"`
}

// Normalize fills in defaults the form leaves blank
func (r ConnectionRequest) Normalize() ConnectionRequest {
	if r.Port == "" {
		r.Port = DefaultPort
	}
	return r
}

// HasPrivateKey reports whether a key was supplied
func (r ConnectionRequest) HasPrivateKey() bool {
	return r.PrivateKey != nil
}

// KeyTooLarge reports whether the private key exceeds MaxPrivateKeySize.
// The limit is inclusive: a key of exactly MaxPrivateKeySize bytes is accepted.
func (r ConnectionRequest) KeyTooLarge() bool {
	return r.HasPrivateKey() && len(r.PrivateKey) > MaxPrivateKeySize
}

// MarshalJSON encodes the request in the provisioning wire format
func (r ConnectionRequest) MarshalJSON() ([]byte, error) {
	wire := connectionRequestWire{
		Hostname: r.Hostname,
		Port:     r.Port,
		Username: r.Username,
		Password: r.Password,
	}
	if r.PrivateKey != nil {
		key := string(r.PrivateKey)
		wire.PrivateKey = &key
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the provisioning wire format
func (r *ConnectionRequest) UnmarshalJSON(data []byte) error {
	var wire connectionRequestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = ConnectionRequest{
		Hostname: wire.Hostname,
		Port:     wire.Port,
		Username: wire.Username,
		Password: wire.Password,
	}
	if wire.PrivateKey != nil {
		r.PrivateKey = []byte(*wire.PrivateKey)
	}
	return nil
}

// Redacted returns a copy safe for logging
func (r ConnectionRequest) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"hostname":     r.Hostname,
		"port":         r.Port,
		"username":     r.Username,
		"has_password": r.Password != "",
		"key_bytes":    len(r.PrivateKey),
	}
}

// ResultKind discriminates a ProvisioningResult
type ResultKind int

const (
	// ResultDenied means the server refused or failed to allocate a worker
	ResultDenied ResultKind = iota
	// ResultAllocated means a worker was allocated and can be attached to
	ResultAllocated
)

// UnexpectedResponseMessage is shown when the server answers with neither an id nor a status
const UnexpectedResponseMessage = "Unexpected response from server."

// ProvisioningResult is the server's answer to a ConnectionRequest.
// Exactly one of ID (Allocated) or Status (Denied) is meaningful.
type ProvisioningResult struct {
	Kind   ResultKind
	ID     string
	Status string
}

// provisioningResultWire is the JSON body returned by the provisioning endpoint.
// The server always sends both keys, with null for the unused one.
type provisioningResultWire struct {
	ID      *string `json:"id"`
	Status  *string `json:"status"`
	Message *string `json:"message,omitempty"`
}

// Allocated builds a successful result
func Allocated(id string) ProvisioningResult {
	return ProvisioningResult{Kind: ResultAllocated, ID: id}
}

// Denied builds a refusal result
func Denied(status string) ProvisioningResult {
	return ProvisioningResult{Kind: ResultDenied, Status: status}
}

// IsAllocated reports whether a worker id was returned
func (p ProvisioningResult) IsAllocated() bool {
	return p.Kind == ResultAllocated
}

// UnmarshalJSON maps the wire shape onto the discriminated result
func (p *ProvisioningResult) UnmarshalJSON(data []byte) error {
	var wire provisioningResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	if wire.ID != nil && *wire.ID != "" {
		*p = Allocated(*wire.ID)
		return nil
	}

	switch {
	case wire.Status != nil && *wire.Status != "":
		*p = Denied(*wire.Status)
	case wire.Message != nil && *wire.Message != "":
		*p = Denied(*wire.Message)
	default:
		*p = Denied(UnexpectedResponseMessage)
	}
	return nil
}

// MarshalJSON encodes the result the way the provisioning server does
func (p ProvisioningResult) MarshalJSON() ([]byte, error) {
	var wire provisioningResultWire
	if p.IsAllocated() {
		id := p.ID
		wire.ID = &id
	} else {
		status := p.Status
		wire.Status = &status
	}
	return json.Marshal(wire)
}
