package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Add      key.Binding
	Delete   key.Binding
	EditName key.Binding
	EditRole key.Binding
	EditUnit key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Delete:   key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		EditName: key.NewBinding(key.WithKeys("enter", "n"), key.WithHelp("n", "name")),
		EditRole: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "role")),
		EditUnit: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "units")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Add, k.Delete, k.EditName, k.EditRole, k.EditUnit, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
