package tui

import "github.com/charmbracelet/bubbles/key"

// gridKeys are the bindings of the task grid.
type gridKeys struct {
	Up           key.Binding
	Down         key.Binding
	NextPage     key.Binding
	PrevPage     key.Binding
	PageSize     key.Binding
	Sort         key.Binding
	SortDir      key.Binding
	Search       key.Binding
	Status       key.Binding
	Priority     key.Binding
	Assignee     key.Binding
	Due          key.Binding
	ClearFilters key.Binding
	Add          key.Binding
	Edit         key.Binding
	Delete       key.Binding
	Comments     key.Binding
	Refresh      key.Binding
	Logout       key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func newGridKeys() gridKeys {
	return gridKeys{
		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		NextPage:     key.NewBinding(key.WithKeys("n", "right", "pgdown"), key.WithHelp("n/→", "next page")),
		PrevPage:     key.NewBinding(key.WithKeys("b", "left", "pgup"), key.WithHelp("b/←", "prev page")),
		PageSize:     key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "page size")),
		Sort:         key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort column")),
		SortDir:      key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "sort direction")),
		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Status:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status filter")),
		Priority:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority filter")),
		Assignee:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "assignee filter")),
		Due:          key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "due range")),
		ClearFilters: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
		Add:          key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:         key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
		Delete:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Comments:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comments")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Logout:       key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:         key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k gridKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Edit, k.Delete, k.Comments, k.Search, k.NextPage, k.PrevPage, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k gridKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextPage, k.PrevPage, k.PageSize},
		{k.Search, k.Status, k.Priority, k.Assignee, k.Due, k.ClearFilters},
		{k.Sort, k.SortDir, k.Refresh},
		{k.Add, k.Edit, k.Delete, k.Comments, k.Logout, k.Quit},
	}
}
