package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/rpsh/internal/config"
	"github.com/vanpelt/rpsh/internal/handshake"
	"github.com/vanpelt/rpsh/internal/logger"
	"github.com/vanpelt/rpsh/internal/tui/components"
)

// Update handles bubbletea messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.surface.SetWindowSize(msg.Width, msg.Height)
		return m, nil

	case changedMsg:
		m.snapshot = m.ctrl.Snapshot()
		return m, m.waitForChange()

	case submittedMsg:
		m.submitting = false
		m.snapshot = m.ctrl.Snapshot()
		// validation failures are reported through the session status
		if msg.err != nil && !handshake.IsValidation(msg.err) {
			m.formErr = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if components.IsGlobalKey(msg.String()) {
			m.quitting = true
			m.ctrl.Disconnect()
			return m, tea.Quit
		}
		if m.terminalVisible() {
			return m.handleTerminalKey(msg)
		}
		return m.handleFormKey(msg)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) handleTerminalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == components.KeyDisconnect {
		m.ctrl.Disconnect()
		return m, nil
	}

	data := KeyBytes(msg)
	if data == nil {
		logger.Debugf("no encoding for key %s", msg.String())
		return m, nil
	}
	if e := m.surface.Emulator(); e != nil {
		e.Type(data)
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case components.KeyQuitForm, components.KeyEscape:
		m.quitting = true
		return m, tea.Quit

	case components.KeyNext, components.KeyDown:
		return m.setFocus((m.focus + 1) % fieldCount), nil

	case components.KeyPrev, components.KeyUp:
		return m.setFocus((m.focus + fieldCount - 1) % fieldCount), nil

	case components.KeySubmit:
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		m.formErr = ""
		return m, m.submit()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) setFocus(f Field) Model {
	m.inputs[m.focus].Blur()
	m.focus = f
	m.inputs[m.focus].Focus()
	return m
}

// submit reads the key file and hands the request to the controller off the
// UI goroutine
func (m Model) submit() tea.Cmd {
	values := m.Values()
	ctx := m.ctx
	ctrl := m.ctrl
	return func() tea.Msg {
		settings := config.Settings{
			Hostname: values.Hostname,
			Port:     values.Port,
			Username: values.Username,
			Password: values.Password,
			KeyFile:  values.KeyFile,
		}
		req, err := settings.Request()
		if err != nil {
			return submittedMsg{err: err}
		}
		if err := ctrl.Submit(ctx, req); err != nil {
			var verr *handshake.ValidationError
			if !errors.As(err, &verr) {
				logger.Debugf("submit rejected: %v", err)
			}
			return submittedMsg{err: err}
		}
		return submittedMsg{}
	}
}
