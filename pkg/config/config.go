// Package config loads the watcher configuration, creating a default config
// file in the user's configuration directory on first run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file created and looked up by default.
const DefaultFileName = "config.yaml"

// appDirName is the per-user directory holding the config and journal.
const appDirName = "inputpulse"

// Config captures the user-adjustable knobs for the watcher.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Watcher WatcherConfig `yaml:"watcher"`
	Input   InputConfig   `yaml:"input"`
	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// ServerConfig locates the remote heartbeat store.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatcherConfig controls heartbeat cadence and identity.
type WatcherConfig struct {
	ClientName          string  `yaml:"client_name"`
	PollIntervalSeconds float64 `yaml:"poll_interval_seconds"`

	// PulsetimeSeconds is the merge threshold; omitted, it derives from the
	// poll interval plus a tenth of a second.
	PulsetimeSeconds *float64 `yaml:"pulsetime_seconds,omitempty"`

	Testing  bool   `yaml:"testing"`
	Hostname string `yaml:"hostname,omitempty"`
}

// InputConfig selects the raw event source.
type InputConfig struct {
	Source string `yaml:"source"`
}

// JournalConfig controls the local heartbeat journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 5600,
		},
		Watcher: WatcherConfig{
			ClientName:          "inputpulse",
			PollIntervalSeconds: 1,
		},
		Input: InputConfig{
			Source: "auto",
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    defaultJournalPath(),
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9184",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// DefaultPath resolves the per-user config file location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, DefaultFileName), nil
}

func defaultJournalPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "inputpulse-journal.db"
	}
	return filepath.Join(base, appDirName, "journal.db")
}

// Load reads configuration from disk. An explicit path must exist; with no
// path the per-user default location is used, and a default config file is
// written there on first run so users have something to edit.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		resolved, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		candidate = resolved
	}

	file, err := os.Open(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			// Best effort; a read-only config dir is not fatal.
			_ = WriteDefault(candidate)
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteDefault marshals the default configuration to path, creating parent
// directories as needed.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// PollInterval returns the heartbeat cadence as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Watcher.PollIntervalSeconds * float64(time.Second))
}

// Pulsetime returns the merge threshold, deriving poll interval plus 100ms
// when the config omits it.
func (c Config) Pulsetime() time.Duration {
	if c.Watcher.PulsetimeSeconds != nil {
		return time.Duration(*c.Watcher.PulsetimeSeconds * float64(time.Second))
	}
	return c.PollInterval() + 100*time.Millisecond
}

// BucketID assembles the store bucket id for this watcher and host.
func (c Config) BucketID(hostname string) string {
	name := c.Watcher.ClientName
	if c.Watcher.Testing {
		name += "-testing"
	}
	return name + "_" + hostname
}

func (c *Config) normalize() {
	defaults := Default()

	c.Server.Host = strings.TrimSpace(c.Server.Host)
	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	c.Watcher.ClientName = strings.TrimSpace(c.Watcher.ClientName)
	if c.Watcher.ClientName == "" {
		c.Watcher.ClientName = defaults.Watcher.ClientName
	}
	c.Watcher.Hostname = strings.TrimSpace(c.Watcher.Hostname)
	c.Input.Source = strings.ToLower(strings.TrimSpace(c.Input.Source))
	if c.Input.Source == "" {
		c.Input.Source = defaults.Input.Source
	}
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = defaults.Journal.Path
	}
	if strings.TrimSpace(c.Metrics.ListenAddr) == "" {
		c.Metrics.ListenAddr = defaults.Metrics.ListenAddr
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
}

// Validate ensures essential configuration values are present and sensible.
// Any failure here must prevent the watcher from starting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server.host must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Watcher.ClientName) == "" {
		return errors.New("watcher.client_name must not be empty")
	}
	if c.Watcher.PollIntervalSeconds <= 0 {
		return errors.New("watcher.poll_interval_seconds must be positive")
	}
	if c.Watcher.PulsetimeSeconds != nil && *c.Watcher.PulsetimeSeconds < 0 {
		return errors.New("watcher.pulsetime_seconds must not be negative")
	}
	switch c.Input.Source {
	case "auto", "hook", "poller":
	default:
		return fmt.Errorf("input.source %q must be one of auto, hook, poller", c.Input.Source)
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return errors.New("journal.path must not be empty when journal is enabled")
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.ListenAddr) == "" {
		return errors.New("metrics.listen_addr must not be empty when metrics are enabled")
	}
	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}
	return nil
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
