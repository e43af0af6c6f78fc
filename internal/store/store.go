// Package store persists the small key-value state the client keeps
// between runs: the demo credentials and the signed-in flag.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/twiced-technology-gmbh/taskdesk/internal/clierr"
)

// Store is a string key-value store.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Drivers lists every supported driver.
var Drivers = []string{DriverFile, DriverSQLite, DriverRedis, DriverMemory}

// Options selects and configures a driver.
type Options struct {
	Driver string
	// Path is the file for the file and sqlite drivers. Relative paths
	// are resolved against Dir.
	Path string
	Dir  string

	RedisAddr string
	RedisDB   int
	Prefix    string
}

// DefaultPath returns the default file name for driver.
func DefaultPath(driver string) string {
	if driver == DriverSQLite {
		return "state.db"
	}
	return "state.json"
}

// ValidateDriver checks that driver is known.
func ValidateDriver(driver string) error {
	for _, d := range Drivers {
		if d == driver {
			return nil
		}
	}
	return clierr.Newf(clierr.InvalidInput, "unknown storage driver %q", driver).
		WithDetails(map[string]any{"driver": driver, "allowed": Drivers})
}

// Open opens the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := strings.ToLower(opts.Driver)
	if driver == "" {
		driver = DriverFile
	}
	if err := ValidateDriver(driver); err != nil {
		return nil, err
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisDB, opts.Prefix)
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath(driver)
	}
	if !filepath.IsAbs(path) && opts.Dir != "" {
		path = filepath.Join(opts.Dir, path)
	}
	if driver == DriverSQLite {
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	}
	return NewFile(path), nil
}
