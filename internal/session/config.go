package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/plotdeck/plotdeck/internal/logging"
)

var cfgLog = logging.ForComponent(logging.CompConfig)

// UserConfigFileName is the TOML config file read from the config directory.
const UserConfigFileName = "config.toml"

// UserConfig is the user-facing configuration surface. The core reads these
// values; it never computes or writes them.
type UserConfig struct {
	// Gnuplot is the process command line (default "gnuplot").
	// Add flags here, e.g. "gnuplot -persist".
	Gnuplot string `toml:"gnuplot"`

	// Startup commands are sent whenever a session starts or resets.
	Startup []string `toml:"startup"`

	// Verbosity is the I/O echo threshold, 0 (silent) to 4 (protocol markers).
	Verbosity int `toml:"verbosity"`

	// SkipVersionCheck disables the gnuplot version preflight.
	SkipVersionCheck bool `toml:"skip_version_check"`

	// Logs configures the structured log file.
	Logs LogSettings `toml:"logs"`

	// History configures the command history database.
	History HistorySettings `toml:"history"`
}

// LogSettings mirror logging.Config for the TOML surface.
type LogSettings struct {
	Dir        string `toml:"dir"`
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// HistorySettings configure the SQLite command history.
type HistorySettings struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfigDir returns ~/.plotdeck.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".plotdeck"), nil
}

func defaultUserConfig() *UserConfig {
	return &UserConfig{
		Gnuplot:   "gnuplot",
		Verbosity: 1,
		History:   HistorySettings{Enabled: true},
	}
}

// LoadUserConfig reads the TOML config at path, falling back to
// ~/.plotdeck/config.toml. A missing file yields the defaults.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := defaultUserConfig()

	if path == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, UserConfigFileName)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Gnuplot == "" {
		cfg.Gnuplot = "gnuplot"
	}
	if cfg.Verbosity < 0 {
		cfg.Verbosity = 0
	}
	if cfg.Verbosity > 4 {
		cfgLog.Warn("verbosity clamped to 4")
		cfg.Verbosity = 4
	}
	return cfg, nil
}

// HistoryPath resolves the history database location, defaulting to
// history.db in the config directory.
func (c *UserConfig) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
