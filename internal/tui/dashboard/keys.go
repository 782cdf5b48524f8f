package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Detail      key.Binding
	Close       key.Binding
	Copy        key.Binding
	CopySecret  key.Binding
	Reveal      key.Binding
	Delete      key.Binding
	Refresh     key.Binding
	RefreshAll  key.Binding
	Filter      key.Binding
	NextGroup   key.Binding
	DeleteGroup key.Binding
	Help        key.Binding
	Quit        key.Binding
	Confirm     key.Binding
}

var dashKeys = KeyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Detail:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Close:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Copy:        key.NewBinding(key.WithKeys("c", "y"), key.WithHelp("c", "copy code")),
	CopySecret:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "copy secret")),
	Reveal:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "show secret")),
	Delete:      key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	RefreshAll:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh all")),
	Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	NextGroup:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "next group")),
	DeleteGroup: key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete group")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Confirm:     key.NewBinding(key.WithKeys("y", "Y")),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Detail, k.Copy, k.Refresh, k.Filter, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Detail, k.Close},
		{k.Copy, k.CopySecret, k.Reveal},
		{k.Refresh, k.RefreshAll, k.Delete},
		{k.NextGroup, k.DeleteGroup},
		{k.Filter, k.Help, k.Quit},
	}
}
