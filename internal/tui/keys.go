package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/scan-io-git/scanio-audit/internal/workflow"
)

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Tab       key.Binding
	Select    key.Binding
	Open      key.Binding
	Upload    key.Binding
	Browse    key.Binding
	New       key.Binding
	Filter    key.Binding
	Apply     key.Binding
	Cancel    key.Binding
	Verify    key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "fix finding")),
		Open:      key.NewBinding(key.WithKeys("o", "/"), key.WithHelp("o", "scan path")),
		Upload:    key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "upload")),
		Browse:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "browse")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new scan")),
		Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "errors only")),
		Apply:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply fix")),
		Cancel:    key.NewBinding(key.WithKeys("c", "esc"), key.WithHelp("c", "cancel")),
		Verify:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "verify")),
		PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// hints lists the bindings that do something in state s.
func (k keyMap) hints(s workflow.State, inputActive bool) []key.Binding {
	if inputActive {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "scan path")),
			k.Upload,
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		}
	}
	switch s {
	case workflow.Empty:
		return []key.Binding{k.Open, k.Browse, k.Quit}
	case workflow.Loaded:
		return []key.Binding{k.Up, k.Down, k.Tab, k.Select, k.Verify, k.Filter, k.New, k.Quit}
	case workflow.FixReady:
		return []key.Binding{k.Apply, k.Cancel, k.Verify, k.PageUp, k.PageDown, k.Quit}
	default:
		return []key.Binding{k.Verify, k.Filter, k.Quit}
	}
}
