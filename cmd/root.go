// Package cmd implements the taskdesk CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/api"
	"github.com/twiced-technology-gmbh/taskdesk/internal/auth"
	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/config"
	"github.com/twiced-technology-gmbh/taskdesk/internal/datasource"
	"github.com/twiced-technology-gmbh/taskdesk/internal/logging"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/store"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagJSON     bool
	flagTable    bool
	flagCompact  bool
	flagDir      string
	flagNoColor  bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "taskdesk",
	Short: "Terminal client for the task dashboard",
	Long: `taskdesk manages the tasks of the dashboard backend from the terminal.
Run taskdesk without arguments to open the TUI.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runTUI,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagNoColor || !output.ColorSupported(os.Stdout) {
			output.DisableColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to the taskdesk config directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"log level ("+strings.Join(config.LogLevels, ", ")+"); overrides log.level")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	_, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err == nil {
		return
	}

	// Handle SilentError: exit with code, no output.
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	jsonMode := flagJSON
	if !jsonMode {
		jsonMode = os.Getenv(output.EnvOutput) == "json"
	}

	if jsonMode {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		// Unknown error: wrap as INTERNAL_ERROR.
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// resolveDir returns the absolute path to the config directory.
// Falls back to the per-user directory if no .taskdesk is found in the
// current directory tree.
func resolveDir() (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	dir, err := config.FindDir(cwd)
	if err == nil {
		return dir, nil
	}
	return config.HomeDir()
}

// loadConfig finds and loads the config. The per-user directory is
// created with defaults on first use.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}
	homeDir, homeErr := config.HomeDir()
	if homeErr != nil || dir != homeDir {
		return nil, err
	}
	return config.Init(homeDir)
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// app bundles everything a command needs to talk to the backend.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  store.Store
	auth   *auth.Service
	source *datasource.Source
	client *api.Client

	logFile io.Closer
}

// openApp loads the config and opens the log, the store and the client.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, logFile, err := logging.Open(cfg.LogPath(), level)
	if err != nil {
		return nil, clierr.New(clierr.InvalidInput, err.Error())
	}

	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logFile.Close()
		return nil, err
	}

	src := datasource.New(log)
	client, err := api.New(api.Options{
		BaseURL:   cfg.BaseURL(),
		Timeout:   cfg.Timeout(),
		Token:     cfg.Token(),
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		Logger:    log,
		Source:    src,
	})
	if err != nil {
		src.Close()
		st.Close()
		logFile.Close()
		return nil, err
	}

	log.Debug().Str("dir", cfg.Dir()).Str("base_url", client.BaseURL()).
		Str("storage", cfg.Storage.Driver).Msg("started")

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		auth:    auth.New(st, cfg.Auth.BcryptCost, log),
		source:  src,
		client:  client,
		logFile: logFile,
	}, nil
}

// Close releases the client, the store and the log file.
func (a *app) Close() {
	a.source.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing store")
	}
	a.logFile.Close()
}

// openAuthed is openApp plus the signed-in check every task command needs.
func openAuthed(ctx context.Context) (*app, error) {
	a, err := openApp(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.auth.Require(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// identity returns the configured comment author or NO_IDENTITY.
func (a *app) identity() (task.Identity, error) {
	if !a.cfg.Identity.Known() {
		return task.Identity{}, clierr.New(clierr.NoIdentity,
			"no identity configured; run 'taskdesk config set identity.id <user id>'")
	}
	return a.cfg.Identity, nil
}

// resolveAssignee accepts a user id or a user name and returns the id.
// An empty value unassigns.
func (a *app) resolveAssignee(ctx context.Context, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" || task.ValidateUserID(v) == nil {
		return v, nil
	}
	users, err := a.client.UsersForAssignment(ctx)
	if err != nil {
		return "", err
	}
	var matches []task.User
	for _, u := range users {
		if strings.EqualFold(u.Name, v) {
			matches = append(matches, u)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0].ID, nil
	case 0:
		return "", clierr.Newf(clierr.InvalidInput, "unknown assignee %q", v).
			WithDetails(map[string]any{"assignee": v})
	default:
		return "", clierr.Newf(clierr.InvalidInput, "assignee %q is ambiguous; use the user id", v).
			WithDetails(map[string]any{"assignee": v, "matches": matches})
	}
}

// parseIDs splits comma-separated task ids from args, validating and
// deduplicating them.
func parseIDs(args []string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			if err := task.ValidateID(id); err != nil {
				return nil, err
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, clierr.New(clierr.InvalidTaskID, "no task ID given")
	}
	return ids, nil
}

// runBatch executes fn for each ID and collects results. Returns a SilentError
// with exit code 1 if any operation failed (after outputting results).
func runBatch(ids []string, fn func(string) error) error {
	results := make([]output.BatchResult, 0, len(ids))
	anyFailed := false

	for _, id := range ids {
		err := fn(id)
		if err != nil {
			anyFailed = true
			var cliErr *clierr.Error
			if errors.As(err, &cliErr) {
				results = append(results, output.BatchResult{ID: id, OK: false, Error: cliErr.Message, Code: cliErr.Code})
			} else {
				results = append(results, output.BatchResult{ID: id, OK: false, Error: err.Error()})
			}
		} else {
			results = append(results, output.BatchResult{ID: id, OK: true})
		}
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		var succeeded int
		for _, r := range results {
			if r.OK {
				succeeded++
			} else {
				fmt.Fprintf(os.Stderr, "Error: task %s: %s\n", r.ID, r.Error)
			}
		}
		output.Messagef(os.Stdout, "Completed %d/%d operations", succeeded, len(ids))
	}

	if anyFailed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
