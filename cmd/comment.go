package cmd

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
)

var commentCmd = &cobra.Command{
	Use:     "comment",
	Aliases: []string{"comments"},
	Short:   "List, add or remove task comments",
}

var commentLsCmd = &cobra.Command{
	Use:     "ls TASK_ID",
	Aliases: []string{"list"},
	Short:   "List the comments of a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runCommentLs,
}

var commentAddCmd = &cobra.Command{
	Use:   "add TASK_ID [TEXT...]",
	Short: "Add a comment as the configured identity",
	Long: `Adds a comment written by identity.id from config.yml. The text is
taken from the arguments, or from stdin when TEXT is "-".`,
	Args: cobra.MinimumNArgs(2), //nolint:mnd // task id and text
	RunE: runCommentAdd,
}

var commentRmCmd = &cobra.Command{
	Use:     "rm TASK_ID COMMENT_ID",
	Aliases: []string{"delete"},
	Short:   "Delete one of your own comments",
	Args:    cobra.ExactArgs(2), //nolint:mnd // task id and comment id
	RunE:    runCommentRm,
}

func init() {
	commentRmCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	commentCmd.AddCommand(commentLsCmd)
	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentRmCmd)
	rootCmd.AddCommand(commentCmd)
}

func runCommentLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openAuthed(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.client.GetTask(ctx, args[0])
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		comments := t.Comments
		if comments == nil {
			return output.JSON(os.Stdout, []any{})
		}
		return output.JSON(os.Stdout, comments)
	case output.FormatCompact:
		output.CommentCompact(os.Stdout, t.Comments)
	default:
		output.CommentTable(os.Stdout, t.Comments, a.cfg.Identity, time.Now())
	}
	return nil
}

func runCommentAdd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args[1:], " ")
	if text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return clierr.Newf(clierr.InvalidInput, "reading comment from stdin: %v", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	if strings.TrimSpace(text) == "" {
		return clierr.New(clierr.EmptyComment, "comment text is empty")
	}

	ctx := cmd.Context()
	a, err := openAuthed(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	me, err := a.identity()
	if err != nil {
		return err
	}
	if err := a.client.AddComment(ctx, args[0], me.UserID, text); err != nil {
		return err
	}
	a.log.Info().Str("task", args[0]).Msg("comment added")

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"status": "added", "task": args[0]})
	}
	output.Messagef(os.Stdout, "Added comment to task %s", args[0])
	return nil
}

func runCommentRm(cmd *cobra.Command, args []string) error {
	taskID, commentID := args[0], args[1]

	ctx := cmd.Context()
	a, err := openAuthed(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	me, err := a.identity()
	if err != nil {
		return err
	}
	t, err := a.client.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	c := t.Comment(commentID)
	if c == nil {
		return clierr.Newf(clierr.InvalidInput, "task %s has no comment %s", taskID, commentID).
			WithDetails(map[string]any{"task": taskID, "comment": commentID})
	}
	if !me.Authored(*c) {
		return clierr.New(clierr.NotCommentAuthor, "only your own comments can be deleted").
			WithDetails(map[string]any{"comment": commentID, "author": c.Author.ID})
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirm("Delete comment " + commentID + "?")
		if err != nil {
			return err
		}
		if !ok {
			output.Messagef(os.Stderr, "Canceled.")
			return nil
		}
	}

	if err := a.client.DeleteComment(ctx, taskID, commentID); err != nil {
		return err
	}
	a.log.Info().Str("task", taskID).Str("comment", commentID).Msg("comment deleted")

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"status": "deleted", "task": taskID, "comment": commentID})
	}
	output.Messagef(os.Stdout, "Deleted comment %s", commentID)
	return nil
}
