package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/tui/components"
)

// View renders the form or the terminal depending on the session snapshot
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.terminalVisible() {
		return m.terminalView()
	}
	return m.formView()
}

func (m Model) formView() string {
	var b strings.Builder

	b.WriteString(components.HeaderStyle.Render("rpsh · remote shell"))
	b.WriteString("\n")
	b.WriteString(components.SubHeaderStyle.Render("SSH connection"))
	b.WriteString("\n\n")

	for i := Field(0); i < fieldCount; i++ {
		label := components.LabelStyle
		if i == m.focus {
			label = components.FocusedLabelStyle
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, label.Render(fieldLabels[i]), m.inputs[i].View()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	footer := fmt.Sprintf("%s connect • %s next field • %s quit",
		components.KeyHighlightStyle.Render("enter"),
		components.KeyHighlightStyle.Render("tab"),
		components.KeyHighlightStyle.Render("ctrl+q"))
	style := components.FooterStyle
	if m.width > 2 {
		style = components.ApplyWidth(style, m.width)
	}
	b.WriteString(style.Render(footer))

	return components.MainContentStyle.Render(b.String())
}

func (m Model) statusLine() string {
	ui := m.snapshot.UI
	switch {
	case m.formErr != "":
		return components.ErrorStyle.Render(m.formErr)
	case ui.Loading:
		return m.spinner.View() + " " + ui.Message
	case ui.Status == models.StatusError:
		return components.ErrorStyle.Render(ui.Message)
	case ui.Message != "":
		return components.MutedStyle.Render(ui.Message)
	default:
		return ""
	}
}

func (m Model) terminalView() string {
	values := m.Values()
	target := values.Hostname
	if values.Username != "" {
		target = values.Username + "@" + target
	}
	title := fmt.Sprintf("%s %s · %s · ctrl+] disconnect",
		components.StatusConnectedStyle.Render("●"), target, m.snapshot.SessionID)

	header := components.ShellHeaderStyle
	if m.width > 0 {
		header = header.Width(m.width)
	}

	screen := ""
	if e := m.surface.Emulator(); e != nil {
		screen = e.Render()
	}
	return header.Render(title) + "\n" + screen
}
