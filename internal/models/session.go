package models

// SessionState is the lifecycle state of the one terminal session a client owns
type SessionState int

const (
	StateIdle SessionState = iota
	StateRequesting
	StateAwaitingTransport
	StateStreaming
	StateClosed
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateAwaitingTransport:
		return "awaiting_transport"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether a connection attempt or session is in progress.
// A new submit is only accepted when the state is not busy.
func (s SessionState) Busy() bool {
	return s == StateRequesting || s == StateAwaitingTransport || s == StateStreaming
}

// BridgePhase is the sub-state of the session bridge once a worker id is known
type BridgePhase int

const (
	PhaseNone BridgePhase = iota
	PhaseConnecting
	PhaseOpen
	PhaseStreaming
	PhaseClosed
)

func (p BridgePhase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseStreaming:
		return "streaming"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DisplayMode selects which of the connection form or the terminal is shown
type DisplayMode int

const (
	FormVisible DisplayMode = iota
	TerminalVisible
)

func (d DisplayMode) String() string {
	if d == TerminalVisible {
		return "terminal"
	}
	return "form"
}

// DisplayModeFor derives the display mode from the session state.
// The terminal is visible only while streaming.
func DisplayModeFor(s SessionState) DisplayMode {
	if s == StateStreaming {
		return TerminalVisible
	}
	return FormVisible
}

// Status is the severity of the UI status line
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// UIState is what the status line and loading indicator show
type UIState struct {
	Status  Status
	Message string
	Loading bool
}

// Snapshot is a consistent view of the controller published after each transition
type Snapshot struct {
	State     SessionState
	Phase     BridgePhase
	UI        UIState
	Display   DisplayMode
	SessionID string
}

// User-facing status messages
const (
	MsgRequesting        = "Requesting new connection."
	MsgStartingWebsocket = "Starting websocket connection."
	MsgKeyTooLarge       = "Your key size exceeds the maximum limit."
	MsgServerUnreachable = "Unable to reach the provisioning server."
	MsgAlreadyConnecting = "already connecting"
	MsgConnectionError   = "connection error"
	MsgTransportFailed   = "Unable to open the terminal connection."
	MsgInvalidWorkerID   = "Invalid worker id"
)
