package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Enter      key.Binding
	Back       key.Binding
	Compose    key.Binding
	Connect    key.Binding
	Disconnect key.Binding
	Refresh    key.Binding
	Dismiss    key.Binding
	Tab        key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Compose:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "compose")),
	Connect:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "connect gmail")),
	Disconnect: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "disconnect")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Dismiss:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error")),
	Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
