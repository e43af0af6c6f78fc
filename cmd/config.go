package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/config"
	"github.com/twiced-technology-gmbh/taskdesk/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify the client configuration",
	Long:  `View the full configuration, get a specific key, or set a writable value.`,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

func stringAccessor(field func(*config.Config) *string) configAccessor {
	return configAccessor{
		get:      func(c *config.Config) any { return *field(c) },
		set:      func(c *config.Config, v string) error { *field(c) = v; return nil },
		writable: true,
	}
}

func intAccessor(key string, field func(*config.Config) *int) configAccessor {
	return configAccessor{
		get: func(c *config.Config) any { return *field(c) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput,
					"invalid %s %q: must be an integer", key, v)
			}
			*field(c) = n
			return nil // validation handles range check
		},
		writable: true,
	}
}

func configAccessors() map[string]configAccessor {
	accessors := map[string]configAccessor{
		"version": {
			get: func(c *config.Config) any { return c.Version },
		},
		"api.base_url": stringAccessor(func(c *config.Config) *string { return &c.API.BaseURL }),
		"api.timeout":  stringAccessor(func(c *config.Config) *string { return &c.API.Timeout }),
		"api.token": {
			get: func(c *config.Config) any {
				if c.API.Token == "" {
					return ""
				}
				return "(set)"
			},
			set:      func(c *config.Config, v string) error { c.API.Token = v; return nil },
			writable: true,
		},
		"api.rate_limit": {
			get: func(c *config.Config) any { return c.API.RateLimit },
			set: func(c *config.Config, v string) error {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput,
						"invalid api.rate_limit %q: must be a number", v)
				}
				c.API.RateLimit = f
				return nil
			},
			writable: true,
		},
		"api.burst":          intAccessor("api.burst", func(c *config.Config) *int { return &c.API.Burst }),
		"identity.id":        stringAccessor(func(c *config.Config) *string { return &c.Identity.UserID }),
		"identity.name":      stringAccessor(func(c *config.Config) *string { return &c.Identity.Name }),
		"storage.driver":     stringAccessor(func(c *config.Config) *string { return &c.Storage.Driver }),
		"storage.path":       stringAccessor(func(c *config.Config) *string { return &c.Storage.Path }),
		"storage.redis_addr": stringAccessor(func(c *config.Config) *string { return &c.Storage.RedisAddr }),
		"storage.redis_db":   intAccessor("storage.redis_db", func(c *config.Config) *int { return &c.Storage.RedisDB }),
		"storage.prefix":     stringAccessor(func(c *config.Config) *string { return &c.Storage.Prefix }),
		"auth.bcrypt_cost":   intAccessor("auth.bcrypt_cost", func(c *config.Config) *int { return &c.Auth.BcryptCost }),
		"list.page_size":     intAccessor("list.page_size", func(c *config.Config) *int { return &c.List.PageSize }),
		"list.sort":          stringAccessor(func(c *config.Config) *string { return &c.List.Sort }),
		"log.level":          stringAccessor(func(c *config.Config) *string { return &c.Log.Level }),
		"tui.markdown_style": stringAccessor(func(c *config.Config) *string { return &c.TUI.MarkdownStyle }),
		"tui.no_watch": {
			get: func(c *config.Config) any { return c.TUI.NoWatch },
			set: func(c *config.Config, v string) error {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput,
						"invalid tui.no_watch %q: must be true or false", v)
				}
				c.TUI.NoWatch = b
				return nil
			},
			writable: true,
		},
	}
	// Effective values include environment overrides.
	accessors["effective.base_url"] = configAccessor{
		get: func(c *config.Config) any { return c.BaseURL() },
	}
	return accessors
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.timeout",
		"api.token",
		"api.rate_limit",
		"api.burst",
		"identity.id",
		"identity.name",
		"storage.driver",
		"storage.path",
		"storage.redis_addr",
		"storage.redis_db",
		"storage.prefix",
		"auth.bcrypt_cost",
		"list.page_size",
		"list.sort",
		"log.level",
		"tui.markdown_style",
		"tui.no_watch",
		"effective.base_url",
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].get(cfg)
		}
		return output.JSON(os.Stdout, m)
	}

	for _, key := range allConfigKeys() {
		val := accessors[key].get(cfg)
		fmt.Fprintf(os.Stdout, "%-20s %v\n", key, formatConfigValue(val))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := args[0]
	acc, ok := configAccessors()[key]
	if !ok {
		return unknownKey(key)
	}

	val := acc.get(cfg)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}

	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	acc, ok := configAccessors()[key]
	if !ok {
		return unknownKey(key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error()).
			WithDetails(map[string]any{"key": key, "value": value})
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": acc.get(cfg)})
	}

	output.Messagef(os.Stdout, "Set %s = %v", key, formatConfigValue(acc.get(cfg)))
	return nil
}

func unknownKey(key string) error {
	return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key).
		WithDetails(map[string]any{"key": key, "allowed": allConfigKeys()})
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case string:
		if v == "" {
			return "--"
		}
		return v
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
