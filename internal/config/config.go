// Package config loads prise's YAML configuration file, following the
// struct-plus-defaults idiom of bureau-foundation-bureau's lib/config:
// a Default() value with every field populated, then a yaml.Unmarshal
// into it so the file only needs to override what it cares about.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// currentUID abstracts os.Getuid so defaultSocketPath is deterministic
// in tests that can't (and shouldn't) assume a particular uid.
var currentUID = os.Getuid

// Config is prise's master configuration, per SPEC_FULL.md §3.
type Config struct {
	// SocketPath is the Unix socket the server listens on.
	SocketPath string `yaml:"socket_path"`

	// ScriptPath is the Lua script loaded at startup. Empty disables
	// the script bridge: the server runs with a no-op Script host and
	// clients must request spawn/write/etc. directly over RPC.
	ScriptPath string `yaml:"script_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MinFrameIntervalMS clamps redraw notifications to at most one
	// per session per this many milliseconds.
	MinFrameIntervalMS int `yaml:"min_frame_interval_ms"`

	// ScrollbackBytes is the per-session scrollback ring buffer size.
	ScrollbackBytes int `yaml:"scrollback_bytes"`

	// ClientOutboundCapBytes is the per-client outbound buffer length
	// above which queued redraw notifications are dropped.
	ClientOutboundCapBytes int `yaml:"client_outbound_cap_bytes"`
}

// Default returns the built-in defaults, used as a base before the
// config file (if any) is loaded over it.
func Default() *Config {
	return &Config{
		SocketPath:             defaultSocketPath(),
		ScriptPath:             "",
		LogLevel:               "info",
		MinFrameIntervalMS:     8,
		ScrollbackBytes:        1 << 20,
		ClientOutboundCapBytes: 16 << 20,
	}
}

// defaultSocketPath mirrors spec.md §6's literal default,
// /tmp/prise-<uid>.sock, with one enrichment: when XDG_RUNTIME_DIR is
// set it is used as the base directory instead of /tmp, since a
// per-user runtime directory is the more conventional place for a
// socket on systems that provide one.
func defaultSocketPath() string {
	name := fmt.Sprintf("prise-%d.sock", currentUID())
	if d := os.Getenv("XDG_RUNTIME_DIR"); d != "" {
		return filepath.Join(d, name)
	}
	return filepath.Join(os.TempDir(), name)
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/prise/config.yaml, or
// ~/.config/prise/config.yaml if XDG_CONFIG_HOME is unset.
func DefaultConfigPath() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, "prise", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "prise", "config.yaml")
}

// Load reads path into a Default() config. A missing file at path is
// not an error when explicit is false (the caller fell back to
// DefaultConfigPath()) — the built-in defaults are used as-is, since no
// config file is required for prise to run. A missing file at an
// explicitly-requested path (explicit true) is an error.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the fields that have a closed set of legal values or
// must be positive.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	if c.MinFrameIntervalMS <= 0 {
		return fmt.Errorf("config: min_frame_interval_ms must be positive")
	}
	if c.ScrollbackBytes <= 0 {
		return fmt.Errorf("config: scrollback_bytes must be positive")
	}
	if c.ClientOutboundCapBytes <= 0 {
		return fmt.Errorf("config: client_outbound_cap_bytes must be positive")
	}
	if c.SocketPath == "" {
		return fmt.Errorf("config: socket_path is required")
	}
	return nil
}
