package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/rpsh/internal/tui/components"
)

// KeyBytes encodes a key press the way a terminal would send it. It returns
// nil for keys with no byte encoding.
func KeyBytes(msg tea.KeyMsg) []byte {
	if len(msg.Runes) > 0 && (msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace) {
		data := []byte(string(msg.Runes))
		if msg.Alt {
			return append([]byte{27}, data...)
		}
		return data
	}

	switch msg.Type {
	case tea.KeySpace:
		return []byte(" ")
	case tea.KeyEnter:
		return []byte("\r")
	case tea.KeyBackspace:
		return []byte{127}
	case tea.KeyTab:
		return []byte("\t")
	case tea.KeyEsc:
		return []byte{27}
	case tea.KeyUp:
		return []byte("\x1b[A")
	case tea.KeyDown:
		return []byte("\x1b[B")
	case tea.KeyRight:
		return []byte("\x1b[C")
	case tea.KeyLeft:
		return []byte("\x1b[D")
	case tea.KeyHome:
		return []byte("\x1b[H")
	case tea.KeyEnd:
		return []byte("\x1b[F")
	case tea.KeyDelete:
		return []byte("\x1b[3~")
	case tea.KeyPgUp:
		return []byte("\x1b[5~")
	case tea.KeyPgDown:
		return []byte("\x1b[6~")
	}

	switch msg.String() {
	case components.KeyCtrlC:
		return []byte{3}
	case components.KeyCtrlD:
		return []byte{4}
	case components.KeyCtrlZ:
		return []byte{26}
	case components.KeyCtrlL:
		return []byte{12}
	case components.KeyCtrlA:
		return []byte{1}
	case components.KeyCtrlE:
		return []byte{5}
	case components.KeyCtrlU:
		return []byte{21}
	case components.KeyCtrlW:
		return []byte{23}
	case components.KeyCtrlR:
		return []byte{18}
	}
	return nil
}
