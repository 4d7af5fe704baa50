// Package cmd wires the inputpulse CLI commands.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/inputpulse/pkg/config"
	"github.com/offlinefirst/inputpulse/pkg/logging"
)

// AppContext exposes loaded configuration and logging facilities to commands.
type AppContext struct {
	Config config.Config
	Logger *slog.Logger
}

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand constructs the CLI with its subcommands and global flags.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "inputpulse",
		Short:         "Background keyboard and mouse activity watcher",
		Long:          "inputpulse counts keyboard and mouse activity and reports it as merged heartbeats to an ActivityWatch-compatible server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: per-user config dir)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override log output format (json, console)")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newDoctorCommand(opts))
	root.AddCommand(newVersionCommand())

	return root
}

// loadApp resolves configuration, applies flag overrides, and builds the logger.
func (o *rootOptions) loadApp(cmd *cobra.Command) (*AppContext, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		lvl, err := config.NormalizeLogLevel(o.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = lvl
	}
	if o.logFormat != "" {
		format, err := config.NormalizeFormat(o.logFormat)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Format = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		"source", cfg.Source,
		"server", cfg.Server.Host,
		"poll_interval", cfg.PollInterval().String())

	return &AppContext{Config: cfg, Logger: logger}, nil
}
