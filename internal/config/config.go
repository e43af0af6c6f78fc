package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
	"github.com/twiced-technology-gmbh/taskdesk/internal/filelock"
	"github.com/twiced-technology-gmbh/taskdesk/internal/query"
	"github.com/twiced-technology-gmbh/taskdesk/internal/store"
	"github.com/twiced-technology-gmbh/taskdesk/internal/task"
)

const (
	fileMode = 0o600
	dirMode  = 0o750

	lockFileName = ".lock"

	defaultPageSize = query.DefaultPageSize
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("no taskdesk config found (run 'taskdesk init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the client configuration.
type Config struct {
	Version int `yaml:"version"`
	// LegacyBaseURL is the v1 top-level base_url, moved to api.base_url by migration.
	LegacyBaseURL string        `yaml:"base_url,omitempty"`
	API           APIConfig     `yaml:"api"`
	Identity      task.Identity `yaml:"identity,omitempty"`
	Storage       StorageConfig `yaml:"storage"`
	Auth          AuthConfig    `yaml:"auth,omitempty"`
	List          ListConfig    `yaml:"list"`
	Log           LogConfig     `yaml:"log"`
	TUI           TUIConfig     `yaml:"tui,omitempty"`

	// dir is the absolute path to the config directory (not serialized).
	dir string `yaml:"-"`
	// env holds overrides from the environment and .env (not serialized).
	env map[string]string `yaml:"-"`
}

// APIConfig configures the backend connection.
type APIConfig struct {
	BaseURL   string  `yaml:"base_url"`
	Timeout   string  `yaml:"timeout,omitempty"`
	Token     string  `yaml:"token,omitempty"`
	RateLimit float64 `yaml:"rate_limit,omitempty"`
	Burst     int     `yaml:"burst,omitempty"`
}

// StorageConfig selects where credentials and the session flag live.
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   int    `yaml:"redis_db,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
}

// AuthConfig tunes credential hashing.
type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost,omitempty"`
}

// ListConfig holds the initial task list state.
type ListConfig struct {
	PageSize int    `yaml:"page_size"`
	Sort     string `yaml:"sort,omitempty"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Level string `yaml:"level"`
}

// TUIConfig holds TUI-specific display settings.
type TUIConfig struct {
	MarkdownStyle string `yaml:"markdown_style,omitempty"`
	// NoWatch disables reloading when the config file changes.
	NoWatch bool `yaml:"no_watch,omitempty"`
}

// Dir returns the absolute path to the config directory.
func (c *Config) Dir() string {
	return c.dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// LogPath returns the absolute path to the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.dir, LogFileName)
}

// NewDefault creates a Config with default values.
func NewDefault() *Config {
	return &Config{
		Version: CurrentVersion,
		API:     APIConfig{BaseURL: DefaultBaseURL, Timeout: DefaultTimeout},
		Storage: StorageConfig{Driver: DefaultStorageDriver},
		List:    ListConfig{PageSize: defaultPageSize},
		Log:     LogConfig{Level: DefaultLogLevel},
	}
}

// SetDir sets the config directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// BaseURL returns the effective base URL: environment first, then file.
func (c *Config) BaseURL() string {
	if v := c.env[EnvBaseURL]; v != "" {
		return v
	}
	return c.API.BaseURL
}

// Token returns the effective bearer token: environment first, then file.
func (c *Config) Token() string {
	if v := c.env[EnvToken]; v != "" {
		return v
	}
	return c.API.Token
}

// Timeout returns the parsed request timeout.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// ListParams returns the initial list params.
func (c *Config) ListParams() query.Params {
	p := query.New()
	if c.List.PageSize != 0 {
		p.PageSize = c.List.PageSize
	}
	if s, err := query.ParseSort(c.List.Sort); err == nil {
		p.Sort = s
	}
	return p
}

// StoreOptions returns the options for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:    c.Storage.Driver,
		Path:      c.Storage.Path,
		Dir:       c.dir,
		RedisAddr: c.Storage.RedisAddr,
		RedisDB:   c.Storage.RedisDB,
		Prefix:    c.Storage.Prefix,
	}
}

// MarkdownStyle returns the glamour style name.
func (c *Config) MarkdownStyle() string {
	if c.TUI.MarkdownStyle == "" {
		return DefaultMarkdownStyle
	}
	return c.TUI.MarkdownStyle
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalid)
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := store.ValidateDriver(c.Storage.Driver); err != nil {
		return fmt.Errorf("%w: storage.driver: %w", ErrInvalid, err)
	}
	if c.Storage.RedisDB < 0 {
		return fmt.Errorf("%w: storage.redis_db must be >= 0", ErrInvalid)
	}
	if c.Identity.UserID != "" {
		if err := task.ValidateUserID(c.Identity.UserID); err != nil {
			return fmt.Errorf("%w: identity.id: %w", ErrInvalid, err)
		}
	}
	if err := query.ValidatePageSize(c.List.PageSize); err != nil {
		return fmt.Errorf("%w: list.page_size: %w", ErrInvalid, err)
	}
	if _, err := query.ParseSort(c.List.Sort); err != nil {
		return fmt.Errorf("%w: list.sort: %w", ErrInvalid, err)
	}
	if !slices.Contains(LogLevels, c.Log.Level) {
		return fmt.Errorf("%w: log.level %q (allowed: %s)", ErrInvalid, c.Log.Level, strings.Join(LogLevels, ", "))
	}
	if c.TUI.MarkdownStyle != "" && !slices.Contains(MarkdownStyles, c.TUI.MarkdownStyle) {
		return fmt.Errorf("%w: tui.markdown_style %q (allowed: %s)",
			ErrInvalid, c.TUI.MarkdownStyle, strings.Join(MarkdownStyles, ", "))
	}
	return c.validateAuth()
}

func (c *Config) validateAPI() error {
	if c.API.Timeout != "" {
		d, err := time.ParseDuration(c.API.Timeout)
		if err != nil {
			return fmt.Errorf("%w: invalid api.timeout %q: %w", ErrInvalid, c.API.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: api.timeout must be positive", ErrInvalid)
		}
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("%w: api.rate_limit must be >= 0", ErrInvalid)
	}
	if c.API.Burst < 0 {
		return fmt.Errorf("%w: api.burst must be >= 0", ErrInvalid)
	}
	return nil
}

func (c *Config) validateAuth() error {
	const minCost, maxCost = 4, 31
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < minCost || c.Auth.BcryptCost > maxCost) {
		return fmt.Errorf("%w: auth.bcrypt_cost must be between %d and %d", ErrInvalid, minCost, maxCost)
	}
	return nil
}

// Init creates a config directory with a default config file.
func Init(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault()
	cfg.SetDir(absDir)

	if _, err := os.Stat(cfg.ConfigPath()); err == nil {
		return nil, clierr.Newf(clierr.ConfigAlreadyExists, "config already exists at %s", cfg.ConfigPath()).
			WithDetails(map[string]any{"path": cfg.ConfigPath()})
	}
	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return filelock.With(filepath.Join(c.Dir(), lockFileName), func() error {
		return os.WriteFile(c.ConfigPath(), data, fileMode)
	})
}

// Load reads, migrates and validates a config from the given directory,
// then applies environment overrides.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnv reads overrides from .env in the config directory, then from the
// process environment, which wins. The process environment is not modified.
func (c *Config) loadEnv() error {
	c.env = make(map[string]string)
	envPath := filepath.Join(c.dir, EnvFileName)
	if _, err := os.Stat(envPath); err == nil {
		vars, err := godotenv.Read(envPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", envPath, err)
		}
		for _, k := range []string{EnvBaseURL, EnvToken} {
			if v := vars[k]; v != "" {
				c.env[k] = v
			}
		}
	}
	for _, k := range []string{EnvBaseURL, EnvToken} {
		if v := os.Getenv(k); v != "" {
			c.env[k] = v
		}
	}
	return nil
}

// FindDir walks upward from startDir looking for a .taskdesk directory
// containing config.yml. Returns the absolute path to that directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.ConfigNotFound,
				"no .taskdesk directory found (run 'taskdesk init' to create one)")
		}
		dir = parent
	}
}

// HomeDir returns the per-user config directory, e.g. ~/.config/taskdesk.
func HomeDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("getting home directory: %w", herr)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, HomeDirName), nil
}
