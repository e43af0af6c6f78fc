// Package config handles taskdesk client configuration.
package config

const (
	// DefaultDir is the project-local config directory name.
	DefaultDir = ".taskdesk"
	// HomeDirName is the directory under the user config dir used when no
	// project-local directory is found.
	HomeDirName = "taskdesk"

	// ConfigFileName is the name of the config file within the config directory.
	ConfigFileName = "config.yml"
	// EnvFileName is an optional dotenv file next to the config file.
	EnvFileName = ".env"
	// LogFileName is the log file within the config directory.
	LogFileName = "taskdesk.log"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 2

	// DefaultBaseURL points at a locally running dashboard backend.
	DefaultBaseURL = "http://localhost:5001/"
	// DefaultTimeout is the per-request timeout as a duration string.
	DefaultTimeout = "15s"
	// DefaultStorageDriver keeps state in a JSON file next to the config.
	DefaultStorageDriver = "file"
	// DefaultLogLevel is the zerolog level name used when none is set.
	DefaultLogLevel = "info"
	// DefaultMarkdownStyle lets glamour pick a style from the terminal background.
	DefaultMarkdownStyle = "auto"
)

// Environment variables that override the file.
const (
	EnvBaseURL = "TASKDESK_BASE_URL"
	EnvToken   = "TASKDESK_TOKEN"
	EnvOutput  = "TASKDESK_OUTPUT"
)

// LogLevels are the accepted log.level values.
var LogLevels = []string{"trace", "debug", "info", "warn", "error", "disabled"}

// MarkdownStyles are the accepted tui.markdown_style values.
var MarkdownStyles = []string{"auto", "dark", "light", "notty", "ascii"}
