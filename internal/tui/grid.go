package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// grid is the task table with its search box and due-range inputs.
type grid struct {
	table     table.Model
	search    textinput.Model
	searching bool

	dueStart textinput.Model
	dueEnd   textinput.Model
	dueFocus int
	dueErr   error
}

// gridColumn is a table column bound to a sort field.
type gridColumn struct {
	title  string
	field  string
	weight int
}

var gridColumns = []gridColumn{
	{"Title", "title", 4},
	{"Description", "description", 5},
	{"Due Date", "dueDate", 2},
	{"Assigned To", "assignedTo", 3},
	{"Status", "status", 2},
	{"Priority", "priority", 2},
}

func newGrid() *grid {
	search := textinput.New()
	search.Placeholder = "Search title or description"
	search.Prompt = "/ "
	search.CharLimit = 100
	search.Width = 40

	newDate := func() textinput.Model {
		ti := textinput.New()
		ti.Placeholder = "YYYY-MM-DD"
		ti.Prompt = ""
		ti.CharLimit = 10
		ti.Width = 12
		return ti
	}

	t := table.New(
		table.WithColumns(columnsFor(80, query.Sort{})),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(gridStyles()),
	)
	return &grid{table: t, search: search, dueStart: newDate(), dueEnd: newDate()}
}

// columnsFor distributes width across the columns by weight and marks
// the sorted column.
func columnsFor(width int, sort query.Sort) []table.Column {
	total := 0
	for _, c := range gridColumns {
		total += c.weight
	}
	avail := width - 2*len(gridColumns)
	if avail < len(gridColumns)*6 {
		avail = len(gridColumns) * 6 //nolint:mnd // minimum column width
	}
	cols := make([]table.Column, len(gridColumns))
	for i, c := range gridColumns {
		title := c.title
		if sort.Field == c.field {
			if sort.Dir == query.Desc {
				title += " ↓"
			} else {
				title += " ↑"
			}
		}
		cols[i] = table.Column{Title: title, Width: avail * c.weight / total}
	}
	return cols
}

func (g *grid) resize(width, height int, sort query.Sort) {
	if height < 3 {
		height = 3
	}
	g.table.SetWidth(width)
	g.table.SetHeight(height)
	g.table.SetColumns(columnsFor(width, sort))
}

func (g *grid) setRows(tasks []task.Task) {
	rows := make([]table.Row, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		rows[i] = table.Row{
			t.Title,
			strings.Join(strings.Fields(t.Description), " "),
			due,
			t.AssigneeName(),
			string(t.Status),
			string(t.Priority),
		}
	}
	g.table.SetRows(rows)
	g.clampCursor(len(rows))
}

func (g *grid) clampCursor(n int) {
	switch {
	case n == 0:
		g.table.SetCursor(0)
	case g.table.Cursor() < 0:
		g.table.SetCursor(0)
	case g.table.Cursor() >= n:
		g.table.SetCursor(n - 1)
	}
}

func (a *App) selectedTask() *task.Task {
	i := a.grid.table.Cursor()
	if i < 0 || i >= len(a.st.Tasks) {
		return nil
	}
	t := a.st.Tasks[i]
	return &t
}

func (a *App) handleGridKey(msg tea.KeyMsg) tea.Cmd {
	g := a.grid
	if g.searching {
		return a.handleSearchKey(msg)
	}
	a.clearToast()

	k := a.keys
	var err error
	switch {
	case key.Matches(msg, k.Quit), msg.String() == keyEsc:
		return tea.Quit
	case key.Matches(msg, k.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, k.Search):
		g.searching = true
		return g.search.Focus()
	case key.Matches(msg, k.NextPage):
		err = a.ctrl.NextPage()
	case key.Matches(msg, k.PrevPage):
		err = a.ctrl.PrevPage()
	case key.Matches(msg, k.PageSize):
		err = a.ctrl.SetPageSize(nextPageSize(a.st.Params.PageSize))
	case key.Matches(msg, k.Sort):
		s := nextSortField(a.st.Params.Sort)
		err = a.ctrl.SetSort(s)
		if err == nil {
			g.table.SetColumns(columnsFor(a.width, s))
		}
	case key.Matches(msg, k.SortDir):
		s := a.st.Params.Sort
		if !s.IsZero() {
			s.Dir = flipDir(s.Dir)
			err = a.ctrl.SetSort(s)
			if err == nil {
				g.table.SetColumns(columnsFor(a.width, s))
			}
		}
	case key.Matches(msg, k.Status):
		err = a.ctrl.SetStatusFilter(cycle(task.Statuses, a.st.Params.Filters.Status))
	case key.Matches(msg, k.Priority):
		err = a.ctrl.SetPriorityFilter(cycle(task.Priorities, a.st.Params.Filters.Priority))
	case key.Matches(msg, k.Assignee):
		err = a.ctrl.SetAssigneeFilter(cycle(userIDs(a.st.Users), a.st.Params.Filters.AssignedTo))
	case key.Matches(msg, k.Due):
		return a.openDueRange()
	case key.Matches(msg, k.ClearFilters):
		g.search.Reset()
		err = a.ctrl.ClearFilters()
	case key.Matches(msg, k.Refresh):
		a.ctrl.Refresh()
	case key.Matches(msg, k.Add):
		a.ctrl.OpenAdd()
		a.sync()
		return a.openEditor()
	case key.Matches(msg, k.Edit):
		if t := a.selectedTask(); t != nil {
			a.ctrl.OpenEdit(*t)
			a.sync()
			return a.openEditor()
		}
	case key.Matches(msg, k.Delete):
		if t := a.selectedTask(); t != nil {
			a.deleteID = t.ID
			a.deleteTitle = t.Title
			a.view = viewConfirmDelete
		}
	case key.Matches(msg, k.Comments):
		if t := a.selectedTask(); t != nil {
			a.ctrl.OpenComments(t.ID)
			a.sync()
			return a.openComments()
		}
	case key.Matches(msg, k.Logout):
		return a.logout()
	default:
		var cmd tea.Cmd
		g.table, cmd = g.table.Update(msg)
		return cmd
	}
	if err != nil {
		a.err = err
	}
	a.sync()
	return nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	g := a.grid
	switch msg.String() {
	case "enter", keyEsc, "down":
		g.searching = false
		g.search.Blur()
		return nil
	}
	before := g.search.Value()
	var cmd tea.Cmd
	g.search, cmd = g.search.Update(msg)
	if g.search.Value() != before {
		if err := a.ctrl.SetSearch(g.search.Value()); err != nil {
			a.err = err
		}
		a.sync()
	}
	return cmd
}

func (a *App) openDueRange() tea.Cmd {
	g := a.grid
	g.dueStart.SetValue(date.OrEmpty(a.st.Params.Filters.Due.Start))
	g.dueEnd.SetValue(date.OrEmpty(a.st.Params.Filters.Due.End))
	g.dueFocus = 0
	g.dueErr = nil
	g.dueEnd.Blur()
	a.view = viewDueRange
	return g.dueStart.Focus()
}

func (a *App) handleDueKey(msg tea.KeyMsg) tea.Cmd {
	g := a.grid
	switch msg.String() {
	case keyEsc:
		a.view = viewGrid
		return nil
	case "tab", "shift+tab", "up", "down":
		g.dueFocus = 1 - g.dueFocus
		if g.dueFocus == 0 {
			g.dueEnd.Blur()
			return g.dueStart.Focus()
		}
		g.dueStart.Blur()
		return g.dueEnd.Focus()
	case "enter":
		start, err := date.ParseOptional(g.dueStart.Value())
		if err != nil {
			g.dueErr = task.ValidateDate("start", g.dueStart.Value(), err)
			return nil
		}
		end, err := date.ParseOptional(g.dueEnd.Value())
		if err != nil {
			g.dueErr = task.ValidateDate("end", g.dueEnd.Value(), err)
			return nil
		}
		if err := a.ctrl.SetDueRange(start, end); err != nil {
			g.dueErr = err
			return nil
		}
		a.view = viewGrid
		a.sync()
		return nil
	}

	var cmd tea.Cmd
	if g.dueFocus == 0 {
		g.dueStart, cmd = g.dueStart.Update(msg)
	} else {
		g.dueEnd, cmd = g.dueEnd.Update(msg)
	}
	return cmd
}

func (a *App) viewDueRange() string {
	g := a.grid
	label := func(i int, s string) string {
		if i == g.dueFocus {
			return activeLabelStyle.Render(s)
		}
		return labelStyle.Render(s)
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Due date range"),
		"",
		label(0, "From")+g.dueStart.View(),
		label(1, "To")+g.dueEnd.View(),
		"",
		dimStyle.Render("Leave a bound empty for an open range."),
		dimStyle.Render("enter:apply  tab:field  esc:cancel"),
	)
	if g.dueErr != nil {
		content += "\n\n" + errorStyle.Render(g.dueErr.Error())
	}
	return a.center(dialogStyle.Render(content))
}

func (a *App) viewGrid() string {
	st := a.st
	header := titleStyle.Render("Tasks")
	if st.Loading {
		header += " " + a.spinner.View() + loadingStyle.Render(" loading")
	}

	search := a.grid.search.View()
	filters := filterStyle.Render(a.filterSummary())

	body := a.grid.table.View()
	switch {
	case st.Err != nil:
		body = errorStyle.Render("Could not load tasks: "+st.Err.Error()) + "\n\n" + body
	case !st.Loading && len(st.Tasks) == 0:
		body = dimStyle.Render("  No tasks match.") + "\n" + body
	}

	footer := statusBarStyle.Render(fmt.Sprintf(" Page %d of %d | %d tasks | %d per page | sort: %s",
		st.Params.Page+1, st.Pages(), st.Total, st.Params.PageSize, sortLabel(st.Params.Sort)))
	if st.UsersErr != nil {
		footer += "  " + errorStyle.Render("users: "+st.UsersErr.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		search+"  "+filters,
		body,
		footer,
		a.help.View(a.keys),
		a.renderStatusBar(),
	)
}

func (a *App) filterSummary() string {
	f := a.st.Params.Filters
	var parts []string
	if f.Status != "" {
		parts = append(parts, "status="+output.StatusStyle(f.Status).Render(string(f.Status)))
	}
	if f.Priority != "" {
		parts = append(parts, "priority="+output.PriorityStyle(f.Priority).Render(string(f.Priority)))
	}
	if f.AssignedTo != "" {
		parts = append(parts, "assignee="+a.userName(f.AssignedTo))
	}
	if f.Due.Start != nil || f.Due.End != nil {
		parts = append(parts, "due="+date.OrEmpty(f.Due.Start)+".."+date.OrEmpty(f.Due.End))
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, " ")
}

func (a *App) userName(id string) string {
	for _, u := range a.st.Users {
		if u.ID == id {
			return u.Name
		}
	}
	return id
}

func sortLabel(s query.Sort) string {
	if s.IsZero() {
		return "default"
	}
	return s.String()
}

// cycle returns the value after cur in values, wrapping through the
// empty value ("all").
func cycle[T ~string](values []T, cur T) T {
	if cur == "" {
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}
	i := slices.Index(values, cur)
	if i < 0 || i == len(values)-1 {
		return ""
	}
	return values[i+1]
}

func userIDs(users []task.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func nextPageSize(cur int) int {
	i := slices.Index(query.PageSizes, cur)
	return query.PageSizes[(i+1)%len(query.PageSizes)]
}

// nextSortField walks the sortable columns in grid order, then back to
// the default order.
func nextSortField(cur query.Sort) query.Sort {
	fields := make([]string, len(gridColumns))
	for i, c := range gridColumns {
		fields[i] = c.field
	}
	next := cycle(fields, cur.Field)
	if next == "" {
		return query.Sort{}
	}
	dir := cur.Dir
	if dir == "" {
		dir = query.Asc
	}
	return query.Sort{Field: next, Dir: dir}
}

func flipDir(dir string) string {
	if dir == query.Desc {
		return query.Asc
	}
	return query.Desc
}
