package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show task details",
	Long:  `Displays full details of a single task including its rendered markdown description and comments.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("raw", false, "print the description without markdown rendering")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
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

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}
	if format == output.FormatCompact {
		output.TaskDetailCompact(os.Stdout, t)
		return nil
	}

	desc := t.Description
	if raw, _ := cmd.Flags().GetBool("raw"); !raw && !flagNoColor {
		style := a.cfg.MarkdownStyle()
		if !output.ColorSupported(os.Stdout) {
			style = "notty"
		}
		width := 80
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = min(w, 120) //nolint:mnd // readable line length
		}
		if rendered, err := output.Markdown(desc, style, width); err == nil {
			desc = rendered
		} else {
			a.log.Warn().Err(err).Msg("render description")
		}
	}
	output.TaskDetail(os.Stdout, t, desc)
	return nil
}
