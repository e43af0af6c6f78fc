package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// Editor fields in focus order.
const (
	fieldTitle = iota
	fieldDescription
	fieldAssignee
	fieldDue
	fieldStatus
	fieldPriority
	fieldCount
)

// editorForm holds the text inputs of the add/edit dialog. Cycled
// fields (assignee, status, priority) live directly in the controller's
// draft.
type editorForm struct {
	title       textinput.Model
	description textarea.Model
	due         textinput.Model
	focused     int
	// err is a local parse error, e.g. a malformed due date.
	err error
}

func newEditorForm() *editorForm {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.Prompt = ""
	title.CharLimit = 200
	title.Width = 48

	desc := textarea.New()
	desc.Placeholder = "Description (markdown)"
	desc.ShowLineNumbers = false
	desc.CharLimit = 5000
	desc.SetWidth(50)
	desc.SetHeight(4)

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD"
	due.Prompt = ""
	due.CharLimit = 10
	due.Width = 12

	return &editorForm{title: title, description: desc, due: due}
}

func (e *editorForm) resize(width int) {
	w := min(max(width-labelWidth-12, 20), 72) //nolint:mnd // dialog chrome and max width
	e.title.Width = w - 2
	e.description.SetWidth(w)
}

// load copies a draft into the inputs and focuses the title.
func (e *editorForm) load(d task.Draft) tea.Cmd {
	e.title.SetValue(d.Title)
	e.description.SetValue(d.Description)
	e.due.SetValue(date.OrEmpty(d.DueDate))
	e.err = nil
	e.focused = fieldTitle
	return e.focus()
}

func (e *editorForm) focus() tea.Cmd {
	e.title.Blur()
	e.description.Blur()
	e.due.Blur()
	switch e.focused {
	case fieldTitle:
		return e.title.Focus()
	case fieldDescription:
		return e.description.Focus()
	case fieldDue:
		return e.due.Focus()
	}
	return nil
}

func (a *App) openEditor() tea.Cmd {
	if a.st.Editor == nil {
		return nil
	}
	a.view = viewEditor
	return a.editor.load(a.st.Editor.Draft)
}

func (a *App) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	e := a.editor
	if a.st.Editor != nil && a.st.Editor.Saving {
		return nil
	}

	switch msg.String() {
	case keyEsc:
		a.ctrl.CloseEditor()
		a.view = viewGrid
		a.sync()
		return nil
	case "ctrl+s":
		return a.saveEditor()
	case "tab":
		e.focused = (e.focused + 1) % fieldCount
		return e.focus()
	case "shift+tab":
		e.focused = (e.focused + fieldCount - 1) % fieldCount
		return e.focus()
	}

	switch e.focused {
	case fieldAssignee, fieldStatus, fieldPriority:
		return a.cycleEditorField(msg)
	}

	var cmd tea.Cmd
	switch e.focused {
	case fieldTitle:
		if msg.String() == "enter" {
			e.focused = fieldDescription
			return e.focus()
		}
		e.title, cmd = e.title.Update(msg)
	case fieldDescription:
		e.description, cmd = e.description.Update(msg)
	case fieldDue:
		e.due, cmd = e.due.Update(msg)
	}
	return cmd
}

func (a *App) cycleEditorField(msg tea.KeyMsg) tea.Cmd {
	var step int
	switch msg.String() {
	case "right", "l", " ", "enter":
		step = 1
	case "left", "h":
		step = -1
	default:
		return nil
	}
	users := userIDs(a.st.Users)
	focused := a.editor.focused
	a.ctrl.EditDraft(func(d *task.Draft) {
		switch focused {
		case fieldAssignee:
			d.AssignedTo = stepThrough(users, d.AssignedTo, step, true)
		case fieldStatus:
			d.Status = stepThrough(task.Statuses, d.Status, step, false)
		case fieldPriority:
			d.Priority = stepThrough(task.Priorities, d.Priority, step, false)
		}
	})
	a.sync()
	return nil
}

// stepThrough moves one position through values. With allowEmpty the empty
// value sits before the first element.
func stepThrough[T ~string](values []T, cur T, step int, allowEmpty bool) T {
	opts := values
	if allowEmpty {
		opts = append([]T{""}, values...)
	}
	if len(opts) == 0 {
		return cur
	}
	i := 0
	for j, v := range opts {
		if v == cur {
			i = j
			break
		}
	}
	i = (i + step + len(opts)) % len(opts)
	return opts[i]
}

// saveEditor pushes the text inputs into the draft and saves it.
func (a *App) saveEditor() tea.Cmd {
	e := a.editor
	due, err := date.ParseOptional(e.due.Value())
	if err != nil {
		e.err = task.FormatDueDate(e.due.Value(), err)
		return nil
	}
	e.err = nil
	title, desc := e.title.Value(), e.description.Value()
	a.ctrl.EditDraft(func(d *task.Draft) {
		d.Title = title
		d.Description = desc
		d.DueDate = due
	})
	a.sync()
	return a.run(opSave, a.ctrl.Save)
}

func (a *App) viewEditor() string {
	ed := a.st.Editor
	if ed == nil {
		return a.viewGrid()
	}
	e := a.editor
	d := ed.Draft

	label := func(field int, s string) string {
		if field == e.focused {
			return activeLabelStyle.Render(s)
		}
		return labelStyle.Render(s)
	}
	choice := func(field int, s string) string {
		if field == e.focused {
			return cursorStyle.Render("‹ ") + s + cursorStyle.Render(" ›")
		}
		return s
	}

	heading := "Edit task"
	if d.IsNew() {
		heading = "Add task"
	}
	assignee := dimStyle.Render("Unassigned")
	if d.AssignedTo != "" {
		assignee = a.userName(d.AssignedTo)
	}

	parts := []string{
		titleStyle.Render(heading),
		"",
		label(fieldTitle, "Title") + e.title.View(),
		label(fieldDescription, "Description"),
		e.description.View(),
		label(fieldAssignee, "Assigned to") + choice(fieldAssignee, assignee),
		label(fieldDue, "Due date") + e.due.View(),
		label(fieldStatus, "Status") + choice(fieldStatus, output.StatusStyle(d.Status).Render(string(d.Status))),
		label(fieldPriority, "Priority") + choice(fieldPriority, output.PriorityStyle(d.Priority).Render(string(d.Priority))),
		"",
	}
	switch {
	case ed.Saving:
		parts = append(parts, a.spinner.View()+" saving...")
	case e.err != nil:
		parts = append(parts, errorStyle.Render(e.err.Error()))
	case ed.Err != nil:
		parts = append(parts, errorStyle.Render("Save failed: "+ed.Err.Error()))
	}
	parts = append(parts, dimStyle.Render("ctrl+s:save  esc:cancel  tab:next field  ←/→:change"))

	return a.center(dialogStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
}
