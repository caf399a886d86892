package ui

import "github.com/charmbracelet/bubbles/key"

// playerKeyMap drives the help bubble on the player screen.
type playerKeyMap struct {
	PlayPause  key.Binding
	SeekBack   key.Binding
	SeekAhead  key.Binding
	SpeedUp    key.Binding
	SpeedDown  key.Binding
	Save       key.Binding
	Favorite   key.Binding
	CopyLink   key.Binding
	Transcript key.Binding
	NewLink    key.Binding
	Library    key.Binding
	Quit       key.Binding
}

func newPlayerKeyMap() playerKeyMap {
	return playerKeyMap{
		PlayPause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		SeekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "back 15s"),
		),
		SeekAhead: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "ahead 15s"),
		),
		SpeedUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "faster"),
		),
		SpeedDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "slower"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save"),
		),
		Favorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "favorite"),
		),
		CopyLink: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy link"),
		),
		Transcript: key.NewBinding(
			key.WithKeys("v", "tab"),
			key.WithHelp("v", "transcript"),
		),
		NewLink: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "new link"),
		),
		Library: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "library"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k playerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.SeekBack, k.SeekAhead, k.SpeedUp, k.Save, k.Transcript, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k playerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.SeekBack, k.SeekAhead, k.SpeedUp, k.SpeedDown},
		{k.Save, k.Favorite, k.CopyLink, k.Transcript},
		{k.NewLink, k.Library, k.Quit},
	}
}
