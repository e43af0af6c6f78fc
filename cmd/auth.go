package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
)

var signupCmd = &cobra.Command{
	Use:   "signup EMAIL",
	Short: "Create the local account",
	Long: `Stores EMAIL and a hash of the password as the local account, replacing
any previous one. Does not log in. The password is prompted for unless
--password or --password-stdin is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSignup,
}

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Log in with the local account",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account, session state and comment identity",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().String("password", "", "password (prompted for when omitted)")
		c.Flags().Bool("password-stdin", false, "read the password from stdin")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

// readPassword returns the password from the flags, stdin or a prompt.
func readPassword(cmd *cobra.Command) (string, error) {
	if pw, _ := cmd.Flags().GetString("password"); pw != "" {
		return pw, nil
	}
	if fromStdin, _ := cmd.Flags().GetBool("password-stdin"); fromStdin {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", clierr.New(clierr.InvalidInput,
			"cannot prompt for password (not a terminal); use --password-stdin")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	email := strings.TrimSpace(args[0])
	if err := a.auth.Signup(cmd.Context(), email, password); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"status": "signed_up", "email": email})
	}
	output.Messagef(os.Stdout, "Account created for %s. Log in with: taskdesk login %s", email, email)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	email := strings.TrimSpace(args[0])
	if err := a.auth.Login(cmd.Context(), email, password); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"status": "logged_in", "email": email})
	}
	output.Messagef(os.Stdout, "Logged in as %s", email)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.Logout(cmd.Context()); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{"status": "logged_out"})
	}
	output.Messagef(os.Stdout, "Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	cred, hasAccount, err := a.auth.Credential(ctx)
	if err != nil {
		return err
	}
	loggedIn, err := a.auth.IsAuthenticated(ctx)
	if err != nil {
		return err
	}
	id := a.cfg.Identity

	if outputFormat() == output.FormatJSON {
		out := map[string]any{
			"logged_in": loggedIn,
			"email":     nil,
			"identity":  nil,
			"base_url":  a.client.BaseURL(),
		}
		if hasAccount {
			out["email"] = cred.Email
		}
		if id.Known() {
			out["identity"] = id
		}
		return output.JSON(os.Stdout, out)
	}

	email := "--"
	if hasAccount {
		email = cred.Email
	}
	state := "logged out"
	if loggedIn {
		state = "logged in"
	}
	who := "--"
	if id.Known() {
		who = id.UserID
		if id.Name != "" {
			who = id.Name + " (" + id.UserID + ")"
		}
	}
	fmt.Fprintf(os.Stdout, "%-10s %s\n", "Account:", email)
	fmt.Fprintf(os.Stdout, "%-10s %s\n", "Session:", state)
	fmt.Fprintf(os.Stdout, "%-10s %s\n", "Identity:", who)
	fmt.Fprintf(os.Stdout, "%-10s %s\n", "Backend:", a.client.BaseURL())
	return nil
}
