// Package tui is the interactive surface of rpsh: a connection form that turns
// into a terminal while a session is streaming.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/tui/components"
)

// Controller is the part of the session controller the UI drives
type Controller interface {
	Submit(ctx context.Context, req models.ConnectionRequest) error
	Disconnect()
	Snapshot() models.Snapshot
}

// Field indexes the form inputs
type Field int

const (
	FieldHostname Field = iota
	FieldPort
	FieldUsername
	FieldPassword
	FieldKeyFile
	fieldCount
)

var fieldLabels = [fieldCount]string{"Hostname", "Port", "Username", "Password", "Key file"}

// FormValues prefill the form
type FormValues struct {
	Hostname string
	Port     string
	Username string
	Password string
	KeyFile  string
}

// Messages
type changedMsg struct{}

type submittedMsg struct {
	err error
}

// Model is the bubbletea model. Session state is read from the controller's
// snapshot on every change; the model only owns form input and layout.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	surface *Surface

	inputs  []textinput.Model
	focus   Field
	spinner spinner.Model

	snapshot models.Snapshot
	// formErr is a local problem such as an unreadable key file
	formErr    string
	submitting bool

	width    int
	height   int
	quitting bool
}

// NewModel builds the form around ctrl and surface
func NewModel(ctx context.Context, ctrl Controller, surface *Surface, values FormValues) Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Prompt = "› "
		in.PromptStyle = components.PromptStyle
		in.TextStyle = components.InputTextStyle
		in.Cursor.Style = components.CursorStyle
		in.Width = 40
		inputs[i] = in
	}

	inputs[FieldHostname].Placeholder = "example.com"
	inputs[FieldHostname].SetValue(values.Hostname)
	inputs[FieldPort].Placeholder = models.DefaultPort
	inputs[FieldPort].CharLimit = 5
	inputs[FieldPort].SetValue(values.Port)
	inputs[FieldUsername].Placeholder = "root"
	inputs[FieldUsername].SetValue(values.Username)
	inputs[FieldPassword].EchoMode = textinput.EchoPassword
	inputs[FieldPassword].EchoCharacter = '•'
	inputs[FieldPassword].Placeholder = "password or key passphrase"
	inputs[FieldPassword].SetValue(values.Password)
	inputs[FieldKeyFile].Placeholder = "~/.ssh/id_ed25519"
	inputs[FieldKeyFile].SetValue(values.KeyFile)

	focus := FieldHostname
	if values.Hostname != "" {
		focus = FieldUsername
		if values.Username != "" {
			focus = FieldPassword
		}
	}
	inputs[focus].Focus()

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		surface:  surface,
		inputs:   inputs,
		focus:    focus,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(components.SpinnerStyle)),
		snapshot: ctrl.Snapshot(),
	}
}

// Init starts listening for controller changes
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange(), m.spinner.Tick)
}

func (m Model) waitForChange() tea.Cmd {
	changes := m.surface.Changes()
	return func() tea.Msg {
		<-changes
		return changedMsg{}
	}
}

// Values returns the current form contents
func (m Model) Values() FormValues {
	return FormValues{
		Hostname: m.inputs[FieldHostname].Value(),
		Port:     m.inputs[FieldPort].Value(),
		Username: m.inputs[FieldUsername].Value(),
		Password: m.inputs[FieldPassword].Value(),
		KeyFile:  m.inputs[FieldKeyFile].Value(),
	}
}

// Focused returns the field with keyboard focus
func (m Model) Focused() Field {
	return m.focus
}

func (m Model) terminalVisible() bool {
	return m.snapshot.Display == models.TerminalVisible
}
