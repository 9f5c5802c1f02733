package app

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Details key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var GlobalKeys = KeyMap{
	Details: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "toggle steps"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
