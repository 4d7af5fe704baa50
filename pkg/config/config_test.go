package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 5600, cfg.Server.Port)
	assert.Equal(t, "inputpulse", cfg.Watcher.ClientName)
	assert.Equal(t, time.Second, cfg.PollInterval())
}

func TestPulsetimeDerivesFromPollInterval(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1100*time.Millisecond, cfg.Pulsetime())

	cfg.Watcher.PollIntervalSeconds = 2.5
	assert.Equal(t, 2600*time.Millisecond, cfg.Pulsetime())

	explicit := 5.0
	cfg.Watcher.PulsetimeSeconds = &explicit
	assert.Equal(t, 5*time.Second, cfg.Pulsetime())

	zero := 0.0
	cfg.Watcher.PulsetimeSeconds = &zero
	assert.Equal(t, time.Duration(0), cfg.Pulsetime())
}

func TestBucketID(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "inputpulse_workstation", cfg.BucketID("workstation"))

	cfg.Watcher.Testing = true
	assert.Equal(t, "inputpulse-testing_workstation", cfg.BucketID("workstation"))
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `server:
  host: tracker.internal
  port: 5666
watcher:
  client_name: deskwatch
  poll_interval_seconds: 0.5
  pulsetime_seconds: 2
  testing: true
input:
  source: poller
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tracker.internal", cfg.Server.Host)
	assert.Equal(t, 5666, cfg.Server.Port)
	assert.Equal(t, "deskwatch", cfg.Watcher.ClientName)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 2*time.Second, cfg.Pulsetime())
	assert.True(t, cfg.Watcher.Testing)
	assert.Equal(t, "poller", cfg.Input.Source)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watcher:\n  poll_rate: 3\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoadNormalizesBlanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `server:
  host: "  "
  port: 5600
watcher:
  client_name: ""
  poll_interval_seconds: 1
input:
  source: HOOK
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "inputpulse", cfg.Watcher.ClientName)
	assert.Equal(t, "hook", cfg.Input.Source)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Watcher.PollIntervalSeconds = 0 },
			message: "poll_interval_seconds",
		},
		{
			name: "negative pulsetime",
			mutate: func(c *Config) {
				negative := -1.0
				c.Watcher.PulsetimeSeconds = &negative
			},
			message: "pulsetime_seconds",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			message: "out of range",
		},
		{
			name:    "unknown input source",
			mutate:  func(c *Config) { c.Input.Source = "x11" },
			message: "input.source",
		},
		{
			name: "journal enabled without path",
			mutate: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.Path = ""
			},
			message: "journal.path",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			message: "log level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestNormalizeLogLevel(t *testing.T) {
	level, err := NormalizeLogLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "warn", level)

	_, err = NormalizeLogLevel("loud")
	require.Error(t, err)
}

func TestNormalizeFormat(t *testing.T) {
	format, err := NormalizeFormat("TEXT")
	require.NoError(t, err)
	assert.Equal(t, "console", format)

	_, err = NormalizeFormat("xml")
	require.Error(t, err)
}
