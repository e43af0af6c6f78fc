package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the users tasks can be assigned to",
	Args:  cobra.NoArgs,
	RunE:  runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openAuthed(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.client.UsersForAssignment(ctx)
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		if users == nil {
			users = []task.User{}
		}
		return output.JSON(os.Stdout, users)
	case output.FormatCompact:
		output.UserCompact(os.Stdout, users)
	default:
		output.UserTable(os.Stdout, users)
	}
	return nil
}
