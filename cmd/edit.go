package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/date"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

var editCmd = &cobra.Command{
	Use:   "edit ID[,ID,...]",
	Short: "Edit a task",
	Long: `Modifies fields of an existing task. Only specified fields are changed.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().String("title", "", "new title")
	editCmd.Flags().String("status", "", "new status")
	editCmd.Flags().String("priority", "", "new priority")
	editCmd.Flags().String("assignee", "", "new assignee (user id or name)")
	editCmd.Flags().Bool("unassign", false, "clear the assignee")
	editCmd.Flags().String("due", "", "new due date (YYYY-MM-DD)")
	editCmd.Flags().Bool("clear-due", false, "clear due date")
	editCmd.Flags().String("description", "", "new description (replaces the whole text)")
	editCmd.Flags().StringP("append-description", "a", "", "append text to the description")
	editCmd.Flags().BoolP("timestamp", "t", false, "prefix a timestamp line when appending")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openAuthed(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	patch, err := editPatch(ctx, cmd, a)
	if err != nil {
		return err
	}
	appendText, _ := cmd.Flags().GetString("append-description")
	if patch.IsEmpty() && appendText == "" {
		return clierr.New(clierr.NoChanges, "no changes specified")
	}
	if appendText != "" && patch.Description != nil {
		return clierr.New(clierr.InvalidInput, "--description and --append-description cannot be combined")
	}

	if len(ids) == 1 {
		t, err := executeEdit(ctx, cmd, a, ids[0], patch)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, t)
		}
		output.Messagef(os.Stdout, "Updated task %s: %s", t.ID, t.Title)
		return nil
	}

	return runBatch(ids, func(id string) error {
		_, err := executeEdit(ctx, cmd, a, id, patch)
		return err
	})
}

// executeEdit applies patch to one task. Appending needs the current
// description, so the task is fetched first in that case.
func executeEdit(ctx context.Context, cmd *cobra.Command, a *app, id string, patch task.Patch) (*task.Task, error) {
	if text, _ := cmd.Flags().GetString("append-description"); text != "" {
		cur, err := a.client.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		stamp, _ := cmd.Flags().GetBool("timestamp")
		desc := appendDescription(cur.Description, text, stamp, time.Now())
		patch.Description = &desc
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	t, err := a.client.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("id", id).Msg("task updated")
	return t, nil
}

// editPatch builds the patch from the flags that were set.
func editPatch(ctx context.Context, cmd *cobra.Command, a *app) (task.Patch, error) {
	var p task.Patch
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		p.Title = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		p.Description = &v
	}
	if v, _ := flags.GetString("status"); v != "" {
		s, err := task.ParseStatus(v)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if v, _ := flags.GetString("priority"); v != "" {
		pr, err := task.ParsePriority(v)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}

	unassign, _ := flags.GetBool("unassign")
	switch {
	case unassign && flags.Changed("assignee"):
		return p, clierr.New(clierr.InvalidInput, "--assignee and --unassign cannot be combined")
	case unassign:
		empty := ""
		p.AssignedTo = &empty
	case flags.Changed("assignee"):
		v, _ := flags.GetString("assignee")
		id, err := a.resolveAssignee(ctx, v)
		if err != nil {
			return p, err
		}
		p.AssignedTo = &id
	}

	clearDue, _ := flags.GetBool("clear-due")
	switch {
	case clearDue && flags.Changed("due"):
		return p, clierr.New(clierr.InvalidInput, "--due and --clear-due cannot be combined")
	case clearDue:
		empty := ""
		p.DueDate = &empty
	case flags.Changed("due"):
		v, _ := flags.GetString("due")
		d, err := date.Parse(v)
		if err != nil {
			return p, task.FormatDueDate(v, err)
		}
		s := d.String()
		p.DueDate = &s
	}
	return p, nil
}

// appendDescription appends text to the existing description, optionally
// prefixed with a timestamp line.
func appendDescription(existing, text string, addTimestamp bool, now time.Time) string {
	var b strings.Builder

	if existing != "" {
		b.WriteString(strings.TrimRight(existing, "\n"))
		b.WriteString("\n\n")
	}

	if addTimestamp {
		b.WriteString(now.Format("**2006-01-02 15:04**"))
		b.WriteByte('\n')
	}

	b.WriteString(text)

	return b.String()
}
