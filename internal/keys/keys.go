// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// ViewerKeyMap defines the keybindings for the file viewer.
type ViewerKeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	// Highlighting
	NextLanguage key.Binding
	PrevLanguage key.Binding
	Rehighlight  key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// Viewer holds the default viewer bindings.
var Viewer = DefaultViewerKeyMap()

// DefaultViewerKeyMap returns the default viewer keybindings.
func DefaultViewerKeyMap() ViewerKeyMap {
	return ViewerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d", " "),
			key.WithHelp("pgdn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),

		NextLanguage: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "next language"),
		),
		PrevLanguage: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "previous language"),
		),
		Rehighlight: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "re-highlight"),
		),

		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the short help view.
func (k ViewerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextLanguage, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k ViewerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom}, // Navigation
		{k.NextLanguage, k.PrevLanguage, k.Rehighlight},       // Highlighting
		{k.Help, k.Quit},                                      // General
	}
}
