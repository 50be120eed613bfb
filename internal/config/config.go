// Package config loads brewster settings from the config file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blackwell-systems/brewster/internal/brew"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyQueryTimeout    = "timeouts.query"
	KeyRefreshTimeout  = "timeouts.refresh"
	KeyUpgradeTimeout  = "timeouts.upgrade"
	KeySearchPaths     = "brew.search-paths"
	KeyLogLevel        = "log.level"
	KeyDatabasePath    = "database.path"
	KeyDefaultInterval = "default-interval"
)

const envPrefix = "BREWSTER"

// Dir returns the brewster config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/brewster if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "brewster"), nil
}

// DataDir returns ~/.brewster, which holds the database, PID file and log.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".brewster"), nil
}

// Config is a loaded configuration.
type Config struct {
	v    *viper.Viper
	path string
}

// Load reads the config file at path, or Dir()/config.yaml when path is
// empty. A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config directory: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := setDefaults(v); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	case info.IsDir():
		return nil, fmt.Errorf("config path %s is a directory", path)
	default:
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	return &Config{v: v, path: path}, nil
}

func setDefaults(v *viper.Viper) error {
	v.SetDefault(KeyQueryTimeout, brew.QueryTimeout)
	v.SetDefault(KeyRefreshTimeout, brew.RefreshTimeout)
	v.SetDefault(KeyUpgradeTimeout, brew.UpgradeTimeout)
	v.SetDefault(KeySearchPaths, brew.DefaultSearchPaths)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDefaultInterval, "")

	dataDir, err := DataDir()
	if err != nil {
		return err
	}
	v.SetDefault(KeyDatabasePath, filepath.Join(dataDir, "brewster.db"))
	return nil
}

// Path is the config file location, whether or not it exists.
func (c *Config) Path() string { return c.path }

// QueryTimeout bounds `brew outdated`.
func (c *Config) QueryTimeout() time.Duration {
	return c.duration(KeyQueryTimeout, brew.QueryTimeout)
}

// RefreshTimeout bounds `brew update`.
func (c *Config) RefreshTimeout() time.Duration {
	return c.duration(KeyRefreshTimeout, brew.RefreshTimeout)
}

// UpgradeTimeout bounds `brew upgrade`.
func (c *Config) UpgradeTimeout() time.Duration {
	return c.duration(KeyUpgradeTimeout, brew.UpgradeTimeout)
}

// non-positive values fall back to def
func (c *Config) duration(key string, def time.Duration) time.Duration {
	d := c.v.GetDuration(key)
	if d <= 0 {
		return def
	}
	return d
}

// SearchPaths lists the well-known brew locations to probe.
func (c *Config) SearchPaths() []string {
	return c.v.GetStringSlice(KeySearchPaths)
}

// LogLevel is the zap level name.
func (c *Config) LogLevel() string {
	return c.v.GetString(KeyLogLevel)
}

// DatabasePath is the SQLite file holding preferences and history.
func (c *Config) DatabasePath() string {
	return c.v.GetString(KeyDatabasePath)
}

// DefaultInterval is the interval label used when none has been chosen
// interactively. Empty means unset.
func (c *Config) DefaultInterval() string {
	return strings.TrimSpace(c.v.GetString(KeyDefaultInterval))
}

// Watch calls onChange whenever the config file is rewritten. The file's
// directory must exist.
func (c *Config) Watch(onChange func(fsnotify.Event)) error {
	if _, err := os.Stat(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("cannot watch %s: %w", c.path, err)
	}
	c.v.OnConfigChange(onChange)
	c.v.WatchConfig()
	return nil
}
