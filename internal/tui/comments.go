package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/tasklist"
)

// commentPane is the state of the comment dialog that the controller
// does not own: the selection, the input box and the rendered
// description.
type commentPane struct {
	input      textarea.Model
	cursor     int
	inputFocus bool
	width      int
	deleteID   string
	notice     string

	// Rendered description cache.
	mdKey string
	mdOut string
}

func newCommentPane() *commentPane {
	input := textarea.New()
	input.Placeholder = "Add a comment..."
	input.ShowLineNumbers = false
	input.CharLimit = 2000
	input.SetWidth(60)
	input.SetHeight(3)
	return &commentPane{input: input, width: 80}
}

func (c *commentPane) resize(width int) {
	c.width = width
	c.input.SetWidth(min(max(width-12, 20), 80)) //nolint:mnd // dialog chrome and max width
}

// clamp keeps the selection inside the thread.
func (c *commentPane) clamp(d *tasklist.CommentDialog) {
	n := 0
	if d != nil && d.Task != nil {
		n = len(d.Task.Comments)
	}
	if c.cursor >= n {
		c.cursor = n - 1
	}
	if c.cursor < 0 {
		c.cursor = 0
	}
}

func (a *App) openComments() tea.Cmd {
	if a.st.Comments == nil {
		return nil
	}
	c := a.comments
	c.input.Reset()
	c.cursor = 0
	c.notice = ""
	c.deleteID = ""
	if d := a.st.Comments; d.Task != nil && len(d.Task.Comments) > 0 {
		c.cursor = len(d.Task.Comments) - 1
	}
	c.inputFocus = true
	a.view = viewComments
	return c.input.Focus()
}

func (a *App) handleCommentsKey(msg tea.KeyMsg) tea.Cmd {
	c := a.comments
	d := a.st.Comments
	if d == nil {
		a.view = viewGrid
		return nil
	}

	switch msg.String() {
	case keyEsc:
		a.ctrl.CloseComments()
		c.input.Blur()
		a.view = viewGrid
		a.sync()
		return nil
	case "tab":
		c.inputFocus = !c.inputFocus
		c.notice = ""
		if c.inputFocus {
			return c.input.Focus()
		}
		c.input.Blur()
		return nil
	case "ctrl+s":
		if d.Pending {
			return nil
		}
		c.notice = ""
		text := c.input.Value()
		return a.run(opAddComment, func(ctx context.Context) error {
			return a.ctrl.AddComment(ctx, text)
		})
	}

	if c.inputFocus {
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return cmd
	}

	n := 0
	if d.Task != nil {
		n = len(d.Task.Comments)
	}
	switch msg.String() {
	case "k", "up":
		if c.cursor > 0 {
			c.cursor--
		}
	case "j", "down":
		if c.cursor < n-1 {
			c.cursor++
		}
	case "d", "delete":
		if n == 0 || d.Pending {
			return nil
		}
		cm := d.Task.Comments[c.cursor]
		if !a.ctrl.CanDeleteComment(cm) {
			c.notice = "Only your own comments can be deleted."
			return nil
		}
		c.deleteID = cm.ID
		a.view = viewConfirmDeleteComment
	}
	return nil
}

func (a *App) handleDeleteCommentKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		id := a.comments.deleteID
		return a.run(opDeleteComment, func(ctx context.Context) error {
			return a.ctrl.DeleteComment(ctx, id)
		})
	case "n", "N", keyEsc, "q":
		a.view = viewComments
	}
	return nil
}

func (a *App) viewDeleteCommentConfirm() string {
	content := errorStyle.Render("Delete comment?") + "\n\n" +
		dimStyle.Render("This cannot be undone.") + "\n\n" +
		dimStyle.Render("y:yes  n:no")
	return a.center(dialogStyle.Render(content))
}

// description renders the task description as markdown, falling back
// to the raw text when rendering fails.
func (c *commentPane) description(text, style string) string {
	key := style + "\x00" + text
	if key == c.mdKey {
		return c.mdOut
	}
	out, err := output.Markdown(text, style, min(c.width-8, 100)) //nolint:mnd // dialog chrome and max width
	if err != nil {
		out = text
	}
	c.mdKey, c.mdOut = key, out
	return out
}

func (a *App) viewComments() string {
	c := a.comments
	d := a.st.Comments
	if d == nil {
		return a.viewGrid()
	}
	if d.Task == nil {
		content := errorStyle.Render("Task is no longer on this page.") + "\n\n" + dimStyle.Render("esc:close")
		return a.center(dialogStyle.Render(content))
	}
	t := d.Task
	now := a.now()

	parts := []string{titleStyle.Render(truncate(t.Title, max(c.width-10, 10)))}
	meta := output.StatusStyle(t.Status).Render(string(t.Status)) + " · " +
		output.PriorityStyle(t.Priority).Render(string(t.Priority)) + " · " + t.AssigneeName()
	if t.DueDate != nil {
		meta += " · due " + t.DueDate.String()
	}
	parts = append(parts, dimStyle.Render(meta))
	if desc := c.description(t.Description, a.mdStyle); desc != "" {
		parts = append(parts, "", desc)
	}
	parts = append(parts, "", lipgloss.NewStyle().Bold(true).Render("Comments"))

	if len(t.Comments) == 0 {
		parts = append(parts, dimStyle.Render("  No comments yet."))
	}
	for i, cm := range t.Comments {
		marker := "  "
		if !c.inputFocus && i == c.cursor {
			marker = cursorStyle.Render("> ")
		}
		author := authorStyle.Render(cm.Author.DisplayName())
		if a.ctrl.CanDeleteComment(cm) {
			author += dimStyle.Render(" (you)")
		}
		when := dimStyle.Render(output.RelativeTime(cm.CreatedAt, now))
		parts = append(parts, marker+author+" "+when)
		for _, line := range strings.Split(cm.Text, "\n") {
			parts = append(parts, "    "+line)
		}
	}

	parts = append(parts, "", c.input.View())
	switch {
	case d.Pending:
		parts = append(parts, a.spinner.View()+" sending...")
	case d.Err != nil:
		parts = append(parts, errorStyle.Render(d.Err.Error()))
	case c.notice != "":
		parts = append(parts, errorStyle.Render(c.notice))
	}
	parts = append(parts, dimStyle.Render("ctrl+s:send  tab:thread/input  d:delete own  esc:close"))

	return a.center(dialogStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
}
