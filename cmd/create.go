package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

var createCmd = &cobra.Command{
	Use:     "create [TITLE]",
	Aliases: []string{"add"},
	Short:   "Create a new task",
	Long: `Creates a task on the backend.

Title can be provided as a positional argument or via --title flag.
With --file, the task is read from a markdown file whose YAML frontmatter
holds title, status, priority, due and assignee and whose body becomes the
description. Flags override values from the file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("title", "", "task title (alternative to positional argument)")
	createCmd.Flags().StringP("file", "f", "", "read the task from a markdown draft file")
	createCmd.Flags().String("status", "", "task status (default Pending)")
	createCmd.Flags().String("priority", "", "task priority (default Medium)")
	createCmd.Flags().String("assignee", "", "assignee (user id or name)")
	createCmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
	createCmd.Flags().String("description", "", "task description (markdown)")
	createCmd.Flags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "body" || name == "desc" {
			name = "description"
		}
		return pflag.NormalizedName(name)
	})
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	d, err := createDraft(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openAuthed(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if d.AssignedTo, err = a.resolveAssignee(ctx, d.AssignedTo); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	t, err := a.client.SaveDraft(ctx, d)
	if err != nil {
		return err
	}
	return outputCreateResult(t)
}

// createDraft assembles the draft from --file, the positional title and
// the field flags, in that order of precedence (last wins).
func createDraft(cmd *cobra.Command, args []string) (task.Draft, error) {
	d := task.NewDraft()
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		var err error
		if d, err = task.ReadDraft(path); err != nil {
			return d, err
		}
	}

	flagTitle, _ := cmd.Flags().GetString("title")
	switch {
	case len(args) > 0 && flagTitle != "":
		return d, clierr.New(clierr.InvalidInput,
			"title provided both as argument and --title flag; use one or the other")
	case len(args) > 0:
		d.Title = args[0]
	case flagTitle != "":
		d.Title = flagTitle
	}
	if d.Title == "" {
		return d, clierr.New(clierr.InvalidInput,
			"title is required: provide it as an argument, with --title or in the --file frontmatter")
	}

	return d, applyDraftFlags(cmd, &d)
}

func applyDraftFlags(cmd *cobra.Command, d *task.Draft) error {
	var err error
	if v, _ := cmd.Flags().GetString("status"); v != "" {
		if d.Status, err = task.ParseStatus(v); err != nil {
			return err
		}
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		if d.Priority, err = task.ParsePriority(v); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("assignee") {
		d.AssignedTo, _ = cmd.Flags().GetString("assignee")
	}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		if d.DueDate, err = date.ParseOptional(v); err != nil {
			return task.FormatDueDate(v, err)
		}
	}
	if cmd.Flags().Changed("description") {
		d.Description, _ = cmd.Flags().GetString("description")
	}
	return nil
}

func outputCreateResult(t *task.Task) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}

	output.Messagef(os.Stdout, "Created task %s: %s", t.ID, t.Title)
	output.Messagef(os.Stdout, "  Status: %s | Priority: %s", t.Status, t.Priority)
	if t.AssignedTo != nil {
		output.Messagef(os.Stdout, "  Assigned to: %s", t.AssigneeName())
	}
	if t.DueDate != nil {
		output.Messagef(os.Stdout, "  Due: %s", t.DueDate)
	}
	return nil
}
