package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/config"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
	"github.com/twiced-technology-gmbh/taskdesk/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a taskdesk config directory",
	Long: `Creates a .taskdesk directory with config.yml in the current directory
(or in --dir). Commands run below it pick it up automatically.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("base-url", config.DefaultBaseURL, "backend base URL")
	initCmd.Flags().String("storage", config.DefaultStorageDriver, "state storage driver (file, sqlite, redis, memory)")
	initCmd.Flags().String("redis-addr", "", "redis address for the redis storage driver")
	initCmd.Flags().String("identity", "", "user id to write comments as")
	initCmd.Flags().String("name", "", "display name for the identity")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.ConfigAlreadyExists, "taskdesk already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	cfg := config.NewDefault()
	cfg.SetDir(absDir)
	cfg.API.BaseURL, _ = cmd.Flags().GetString("base-url")
	cfg.Storage.Driver, _ = cmd.Flags().GetString("storage")
	cfg.Storage.RedisAddr, _ = cmd.Flags().GetString("redis-addr")
	cfg.Identity.UserID, _ = cmd.Flags().GetString("identity")
	cfg.Identity.Name, _ = cmd.Flags().GetString("name")
	if cfg.Storage.Driver == store.DriverRedis && cfg.Storage.RedisAddr == "" {
		return clierr.New(clierr.InvalidInput, "--redis-addr is required with --storage redis")
	}

	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error())
	}

	const dirMode = 0o750
	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status":   "initialized",
			"dir":      absDir,
			"config":   cfg.ConfigPath(),
			"base_url": cfg.API.BaseURL,
			"storage":  cfg.Storage.Driver,
		})
	}

	output.Messagef(os.Stdout, "Initialized taskdesk in %s", absDir)
	output.Messagef(os.Stdout, "  Config:  %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Backend: %s", cfg.API.BaseURL)
	output.Messagef(os.Stdout, "  Storage: %s", cfg.Storage.Driver)
	output.Messagef(os.Stdout, "  Hint:    Create an account with: taskdesk signup EMAIL")
	return nil
}
