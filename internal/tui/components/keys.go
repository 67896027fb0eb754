package components

// Key Command Groups:
// 1. Global - available in both views
// 2. Form - moving between fields and submitting
// 3. Terminal Pass-through - all other keys while the terminal is shown

// Global keys
const (
	KeyQuit = "ctrl+q"
)

// Form keys
const (
	KeySubmit   = "enter"
	KeyNext     = "tab"
	KeyPrev     = "shift+tab"
	KeyUp       = "up"
	KeyDown     = "down"
	KeyQuitForm = "ctrl+c"
	KeyEscape   = "esc"
)

// Terminal keys
const (
	// KeyDisconnect is ctrl+], the telnet escape
	KeyDisconnect = "ctrl+]"
)

// Control keys forwarded to the remote shell
const (
	KeyCtrlC = "ctrl+c"
	KeyCtrlD = "ctrl+d"
	KeyCtrlZ = "ctrl+z"
	KeyCtrlL = "ctrl+l"
	KeyCtrlA = "ctrl+a"
	KeyCtrlE = "ctrl+e"
	KeyCtrlU = "ctrl+u"
	KeyCtrlW = "ctrl+w"
	KeyCtrlR = "ctrl+r"
)

// IsGlobalKey checks if a key is handled before view dispatch
func IsGlobalKey(key string) bool {
	return key == KeyQuit
}
