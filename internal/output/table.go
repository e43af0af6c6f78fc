package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Status colors aligned with the TUI grid palette.
	statusStyles = map[string]lipgloss.Style{
		string(task.StatusPending):    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		string(task.StatusInProgress): lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		string(task.StatusCompleted):  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		string(task.StatusArchived):   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}

	priorityStyles = map[string]lipgloss.Style{
		string(task.PriorityHigh):   lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		string(task.PriorityMedium): lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		string(task.PriorityLow):    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}

	assigneeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("44")).Bold(true)
	authorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
)

// DisableColor strips all styling from table output.
func DisableColor() {
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	statusStyles = map[string]lipgloss.Style{}
	priorityStyles = map[string]lipgloss.Style{}
	assigneeStyle = lipgloss.NewStyle()
	authorStyle = lipgloss.NewStyle()
}

// StatusStyle returns the colour used for a status.
func StatusStyle(s task.Status) lipgloss.Style {
	return statusStyles[string(s)]
}

// PriorityStyle returns the colour used for a priority.
func PriorityStyle(p task.Priority) lipgloss.Style {
	return priorityStyles[string(p)]
}

// TaskTable renders a list of tasks as a formatted table.
func TaskTable(w io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	const pad = 2
	idW, statusW, prioW, titleW, assignW, dueW := 26, 8, 10, 7, 10, 12
	for i := range tasks {
		t := &tasks[i]
		statusW = max(statusW, len(t.Status)+pad)
		prioW = max(prioW, len(t.Priority)+pad)
		titleW = max(titleW, min(len(t.Title)+pad, 50)) //nolint:mnd // max title column width
		assignW = max(assignW, min(len(t.AssigneeName())+pad, 24)) //nolint:mnd // max assignee column width
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %-*s %s",
		idW, "ID", statusW, "STATUS", prioW, "PRIORITY",
		titleW, "TITLE", assignW, "ASSIGNED", dueW, "DUE", "COMMENTS")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for i := range tasks {
		t := &tasks[i]
		assignee := dimStyle.Render(t.AssigneeName())
		if t.AssignedTo != nil {
			assignee = assigneeStyle.Render(truncate(t.AssigneeName(), assignW-pad))
		}
		due := dimStyle.Render("--")
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		comments := dimStyle.Render("--")
		if n := len(t.Comments); n > 0 {
			comments = strconv.Itoa(n)
		}

		row := fmt.Sprintf("%-*s %s %s %s %s %s %s",
			idW, t.ID,
			padRight(styledValue(string(t.Status), statusStyles), statusW),
			padRight(styledValue(string(t.Priority), priorityStyles), prioW),
			padRight(truncate(t.Title, titleW-pad), titleW),
			padRight(assignee, assignW),
			padRight(due, dueW),
			comments)
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// PageFooter prints the pagination line under a task table.
func PageFooter(w io.Writer, page, pages, total int) {
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Page %d of %d (%d tasks)", page+1, pages, total)))
}

// TaskDetail renders a single task with full detail. description is the
// already rendered description; pass t.Description for plain output.
func TaskDetail(w io.Writer, t *task.Task, description string) {
	titleLine := "Task " + t.ID + ": " + t.Title
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(titleLine)))

	printField(w, "Status", styledValue(string(t.Status), statusStyles))
	printField(w, "Priority", styledValue(string(t.Priority), priorityStyles))
	if t.AssignedTo != nil {
		printField(w, "Assigned to", assigneeStyle.Render(t.AssigneeName()))
	} else {
		printField(w, "Assigned to", dimStyle.Render(t.AssigneeName()))
	}
	if t.DueDate != nil {
		printField(w, "Due", t.DueDate.String())
	} else {
		printField(w, "Due", dimStyle.Render("--"))
	}
	if !t.CreatedAt.IsZero() {
		printField(w, "Created", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !t.UpdatedAt.IsZero() {
		printField(w, "Updated", t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	if description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, description)
	}

	if len(t.Comments) > 0 {
		fmt.Fprintln(w)
		CommentTable(w, t.Comments, task.Identity{}, time.Now())
	}
}

// CommentTable renders a comment thread, oldest first. Comments written
// by me are marked with an asterisk.
func CommentTable(w io.Writer, comments []task.Comment, me task.Identity, now time.Time) {
	if len(comments) == 0 {
		fmt.Fprintln(os.Stderr, "No comments.")
		return
	}

	idW, authorW := 26, 8
	for _, c := range comments {
		authorW = max(authorW, min(len(c.Author.DisplayName())+3, 24)) //nolint:mnd // max author column width
	}
	header := fmt.Sprintf("%-*s %-*s %-10s %s", idW, "ID", authorW, "AUTHOR", "WHEN", "TEXT")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, c := range comments {
		author := c.Author.DisplayName()
		if me.Authored(c) {
			author += " *"
		}
		fmt.Fprintf(w, "%-*s %s %s %s\n",
			idW, c.ID,
			padRight(authorStyle.Render(truncate(author, authorW-1)), authorW),
			padRight(dimStyle.Render(RelativeTime(c.CreatedAt, now)), 10), //nolint:mnd // when column width
			oneLine(c.Text))
	}
}

// UserTable renders the assignable users.
func UserTable(w io.Writer, users []task.User) {
	if len(users) == 0 {
		fmt.Fprintln(os.Stderr, "No users found.")
		return
	}
	header := fmt.Sprintf("%-26s %s", "ID", "NAME")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, u := range users {
		fmt.Fprintf(w, "%-26s %s\n", u.ID, u.Name)
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

// FormatDuration renders a duration as human-readable "Xd Yh" or "Xh Ym".
func FormatDuration(d time.Duration) string {
	const hoursPerDay = 24
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if days > 0 {
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	}
	minutes := int(d.Minutes()) % 60 //nolint:mnd // 60 minutes per hour
	return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
}

// RelativeTime renders how long ago t was, e.g. "just now" or "3h ago".
// Times older than a week are shown as a date.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	case d < 7*24*time.Hour:
		return strconv.Itoa(int(d.Hours()/24)) + "d ago" //nolint:mnd // hours per day
	}
	return t.Local().Format("2006-01-02")
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 4 {
		return s
	}
	return string(r[:n-3]) + "..."
}

// styledValue renders s using a matching style from the map, or returns s unchanged.
func styledValue(s string, styles map[string]lipgloss.Style) string {
	if st, ok := styles[s]; ok {
		return st.Render(s)
	}
	return s
}
