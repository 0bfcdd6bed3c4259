package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	Confirm   key.Binding
	Cancel    key.Binding
	Context   key.Binding
	Skip      key.Binding
	Proceed   key.Binding
	Submit    key.Binding
	Back      key.Binding
	Discard   key.Binding
	Help      key.Binding
	ForceQuit key.Binding

	state State
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y/Enter", "continue"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "x", "esc"),
			key.WithHelp("x/Esc", "cancel transfer"),
		),
		Context: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "add context"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip and continue"),
		),
		Proceed: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "proceed anyway"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("Ctrl+S", "analyse context"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "enter", "esc"),
			key.WithHelp("b/Enter", "go back"),
		),
		Discard: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back to warning"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "quit"),
		),
	}
}

// forState returns a copy whose help lists the keys valid in s.
func (k KeyMap) forState(s State) KeyMap {
	k.state = s
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	switch k.state {
	case StateHighAmount:
		return []key.Binding{k.Confirm, k.Cancel}
	case StateMLWarning:
		return []key.Binding{k.Context, k.Skip, k.Cancel}
	case StateContext:
		return []key.Binding{k.Submit, k.Discard}
	case StateLLMWarning:
		return []key.Binding{k.Cancel, k.Proceed}
	case StateError:
		return []key.Binding{k.Back}
	default:
		return []key.Binding{k.ForceQuit}
	}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.ShortHelp(),
		{k.Help, k.ForceQuit},
	}
}
