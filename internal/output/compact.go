package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	for i := range tasks {
		fmt.Fprintln(w, formatTaskLine(&tasks[i]))
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, t *task.Task) {
	fmt.Fprintln(w, formatTaskLine(t))

	ts := "  created:" + t.CreatedAt.Format("2006-01-02") +
		" updated:" + t.UpdatedAt.Format("2006-01-02")
	fmt.Fprintln(w, ts)

	if t.Description != "" {
		for _, line := range strings.Split(t.Description, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
	CommentCompact(w, t.Comments)
}

// CommentCompact renders one line per comment.
func CommentCompact(w io.Writer, comments []task.Comment) {
	for _, c := range comments {
		fmt.Fprintln(w, "  ~"+c.ID+" @"+c.Author.DisplayName()+" "+
			c.CreatedAt.Format("2006-01-02 15:04")+": "+oneLine(c.Text))
	}
}

// UserCompact renders one line per user.
func UserCompact(w io.Writer, users []task.User) {
	if len(users) == 0 {
		fmt.Fprintln(os.Stderr, "No users found.")
		return
	}
	for _, u := range users {
		fmt.Fprintln(w, u.ID+" "+u.Name)
	}
}

// PageCompact writes the one-line page footer.
func PageCompact(w io.Writer, page, pages, total int) {
	fmt.Fprintln(w, "page "+strconv.Itoa(page+1)+"/"+strconv.Itoa(pages)+" total:"+strconv.Itoa(total))
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t *task.Task) string {
	line := t.ID + " [" + string(t.Status) + "/" + string(t.Priority) + "] " + t.Title

	if t.AssignedTo != nil {
		line += " @" + t.AssigneeName()
	}
	if t.DueDate != nil {
		line += " due:" + t.DueDate.String()
	}
	if n := len(t.Comments); n > 0 {
		line += " comments:" + strconv.Itoa(n)
	}

	return line
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
