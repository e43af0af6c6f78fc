package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `Lists one page of tasks. Filtering, sorting and paging happen on the
backend; list.page_size and list.sort in config.yml set the defaults.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntP("page", "p", 1, "page number, starting at 1")
	listCmd.Flags().IntP("page-size", "n", 0, "tasks per page (20, 50 or 100)")
	listCmd.Flags().String("sort", "", "sort as FIELD[:asc|desc] (fields: "+strings.Join(query.SortFields, ", ")+")")
	listCmd.Flags().StringP("search", "s", "", "search title and description")
	listCmd.Flags().String("status", "", "filter by status")
	listCmd.Flags().String("priority", "", "filter by priority")
	listCmd.Flags().String("assignee", "", "filter by assignee (user id or name)")
	listCmd.Flags().String("due-start", "", "only tasks due on or after this date (YYYY-MM-DD)")
	listCmd.Flags().String("due-end", "", "only tasks due on or before this date (YYYY-MM-DD)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openAuthed(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := listParams(cmd, a)
	if err != nil {
		return err
	}
	if assignee, _ := cmd.Flags().GetString("assignee"); assignee != "" {
		if p.Filters.AssignedTo, err = a.resolveAssignee(ctx, assignee); err != nil {
			return err
		}
	}
	if err := p.Validate(); err != nil {
		return err
	}

	page, err := a.client.ListTasks(ctx, p)
	if err != nil {
		return err
	}
	pages := query.PageCount(page.Total, p.PageSize)

	switch outputFormat() {
	case output.FormatJSON:
		tasks := page.Tasks
		if tasks == nil {
			tasks = []task.Task{}
		}
		return output.JSON(os.Stdout, output.TaskPage{
			Tasks:    tasks,
			Total:    page.Total,
			Page:     p.Page,
			PageSize: p.PageSize,
			Pages:    pages,
		})
	case output.FormatCompact:
		output.TaskCompact(os.Stdout, page.Tasks)
		output.PageCompact(os.Stdout, p.Page, pages, page.Total)
	default:
		output.TaskTable(os.Stdout, page.Tasks)
		output.PageFooter(os.Stdout, p.Page, pages, page.Total)
	}
	return nil
}

// listParams builds the request from config defaults and flags, except
// for the assignee, which may need a lookup.
func listParams(cmd *cobra.Command, a *app) (query.Params, error) {
	p := a.cfg.ListParams()

	page, _ := cmd.Flags().GetInt("page")
	if page < 1 {
		return p, clierr.Newf(clierr.InvalidInput, "--page must be >= 1, got %d", page)
	}
	p.Page = page - 1
	if n, _ := cmd.Flags().GetInt("page-size"); n != 0 {
		p.PageSize = n
	}
	if cmd.Flags().Changed("sort") {
		raw, _ := cmd.Flags().GetString("sort")
		s, err := query.ParseSort(raw)
		if err != nil {
			return p, err
		}
		p.Sort = s
	}
	p.Search, _ = cmd.Flags().GetString("search")

	var err error
	if v, _ := cmd.Flags().GetString("status"); v != "" {
		if p.Filters.Status, err = task.ParseStatus(v); err != nil {
			return p, err
		}
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		if p.Filters.Priority, err = task.ParsePriority(v); err != nil {
			return p, err
		}
	}
	start, _ := cmd.Flags().GetString("due-start")
	if p.Filters.Due.Start, err = date.ParseOptional(start); err != nil {
		return p, task.ValidateDate("due-start", start, err)
	}
	end, _ := cmd.Flags().GetString("due-end")
	if p.Filters.Due.End, err = date.ParseOptional(end); err != nil {
		return p, task.ValidateDate("due-end", end, err)
	}
	return p, nil
}
