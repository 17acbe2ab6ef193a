package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	Search      key.Binding
	Sort        key.Binding
	SortDir     key.Binding
	Type        key.Binding
	ClearType   key.Binding
	Select      key.Binding
	SelectPage  key.Binding
	Delete      key.Binding
	DeleteSel   key.Binding
	Copy        key.Binding
	Edit        key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	Reload      key.Binding
	Reset       key.Binding
	Help        key.Binding
	Quit        key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
	SearchApply key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	NextPage:    key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next page")),
	PrevPage:    key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "prev page")),
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Sort:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
	SortDir:     key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sort direction")),
	Type:        key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "type filter")),
	ClearType:   key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "all types")),
	Select:      key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "select")),
	SelectPage:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
	Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	DeleteSel:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete selected")),
	Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
	Edit:        key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "details")),
	MoveUp:      key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "move up")),
	MoveDown:    key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "move down")),
	Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Reset:       key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset view")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Confirm:     key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
	Cancel:      key.NewBinding(key.WithKeys("esc", "n", "N"), key.WithHelp("esc", "cancel")),
	SearchApply: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Sort, k.Type, k.NextPage, k.Select, k.Delete, k.Copy, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextPage, k.PrevPage},
		{k.Search, k.Sort, k.SortDir, k.Type, k.ClearType},
		{k.Select, k.SelectPage, k.Delete, k.DeleteSel},
		{k.Copy, k.Edit, k.MoveUp, k.MoveDown},
		{k.Reload, k.Reset, k.Help, k.Quit},
	}
}
