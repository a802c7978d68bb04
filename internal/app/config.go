package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds runtime options for building the app.
type Config struct {
	Home    string        `toml:"home"` // state directory, e.g. $HOME/.boxchat
	Relay   RelayConfig   `toml:"relay"`
	Poll    PollConfig    `toml:"poll"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
}

// RelayConfig selects the relay and bounds each request.
type RelayConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// PollConfig controls the listen loop.
type PollConfig struct {
	Interval time.Duration `toml:"interval"`
}

// LoggingConfig is passed to log.New.
type LoggingConfig struct {
	File    string `toml:"file"`
	Level   string `toml:"level"`
	Disable bool   `toml:"disable"`
}

// MetricsConfig enables the prometheus endpoint when Address is set.
type MetricsConfig struct {
	Address string `toml:"address"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		Relay: RelayConfig{
			URL:     "http://127.0.0.1:8000",
			Timeout: 10 * time.Second,
		},
		Poll: PollConfig{
			Interval: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "NOTICE",
		},
	}
}

// DefaultConfigPath returns the XDG default path for the config file.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, err2 := os.UserHomeDir()
		if err2 != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "boxchat", "config.toml"), nil
}

// DefaultHome returns ~/.boxchat.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".boxchat"), nil
}

// LoadConfig reads the TOML file at path over the defaults. An empty path
// means DefaultConfigPath; a missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &cfg, cfg.Validate()
	case err != nil:
		return nil, err
	case info.IsDir():
		return nil, fmt.Errorf("config: %s is a directory", path)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return &cfg, cfg.Validate()
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.Relay.URL == "" {
		return errors.New("config: relay.url is required")
	}
	if !strings.HasPrefix(c.Relay.URL, "http://") && !strings.HasPrefix(c.Relay.URL, "https://") {
		return fmt.Errorf("config: relay.url %q must be http or https", c.Relay.URL)
	}
	if c.Relay.Timeout < 0 {
		return errors.New("config: relay.timeout must not be negative")
	}
	if c.Poll.Interval <= 0 {
		return errors.New("config: poll.interval must be positive")
	}
	return nil
}
