package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/inputpulse/pkg/config"
	"github.com/offlinefirst/inputpulse/pkg/heartbeat"
	"github.com/offlinefirst/inputpulse/pkg/input"
	"github.com/offlinefirst/inputpulse/pkg/journal"
	"github.com/offlinefirst/inputpulse/pkg/metrics"
	"github.com/offlinefirst/inputpulse/pkg/store"
	"github.com/offlinefirst/inputpulse/pkg/watcher"
)

// hostname is extracted for testability.
var hostname = os.Hostname

type runOptions struct {
	host     string
	port     int
	testing  bool
	pollTime float64
	pulse    float64
	planOnly bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch keyboard and mouse activity and report heartbeats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := root.loadApp(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, opts, &app.Config)
			if err := app.Config.Validate(); err != nil {
				return err
			}
			if opts.planOnly {
				printRunPlan(app, cmd.OutOrStdout())
				return nil
			}
			return runWatch(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "heartbeat server host")
	cmd.Flags().IntVar(&opts.port, "port", 0, "heartbeat server port")
	cmd.Flags().BoolVar(&opts.testing, "testing", false, "use a testing bucket")
	cmd.Flags().Float64Var(&opts.pollTime, "poll-time", 0, "heartbeat interval in seconds")
	cmd.Flags().Float64Var(&opts.pulse, "pulsetime", 0, "merge window in seconds (default: poll interval + 0.1)")
	cmd.Flags().BoolVar(&opts.planOnly, "plan-only", false, "print the resolved configuration without starting the watcher")

	return cmd
}

func applyRunFlags(cmd *cobra.Command, opts *runOptions, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = opts.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.port
	}
	if cmd.Flags().Changed("testing") {
		cfg.Watcher.Testing = opts.testing
	}
	if cmd.Flags().Changed("poll-time") {
		cfg.Watcher.PollIntervalSeconds = opts.pollTime
	}
	if cmd.Flags().Changed("pulsetime") {
		pulse := opts.pulse
		cfg.Watcher.PulsetimeSeconds = &pulse
	}
}

func runWatch(parent context.Context, app *AppContext) error {
	cfg := app.Config
	logger := app.Logger

	host := cfg.Watcher.Hostname
	if host == "" {
		resolved, err := hostname()
		if err != nil || resolved == "" {
			resolved = "unknown-host"
		}
		host = resolved
	}
	bucketID := cfg.BucketID(host)

	client, err := store.NewClient(store.Options{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		ClientName: cfg.Watcher.ClientName,
	})
	if err != nil {
		return fmt.Errorf("build store client: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.CreateBucket(ctx, bucketID, store.EventTypeInput, host); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucketID, err)
	}
	logger.Info("bucket ready", "bucket", bucketID, "server", cfg.Server.Host, "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.ListenAddr); err != nil {
				logger.Warn("metrics endpoint stopped", "error", err)
			}
		}()
		logger.Info("metrics endpoint listening", "addr", cfg.Metrics.ListenAddr)
	}

	var recorder heartbeat.Recorder
	if cfg.Journal.Enabled {
		jnl, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer jnl.Close()
		recorder = jnl
		logger.Info("journal enabled", "path", cfg.Journal.Path)
	}

	emitter, err := heartbeat.NewEmitter(heartbeat.Options{
		BucketID:  bucketID,
		Pulsetime: cfg.Pulsetime(),
		Sink:      client,
	})
	if err != nil {
		return fmt.Errorf("build emitter: %w", err)
	}

	counter := input.NewCounter()
	ingress, err := input.NewIngress(input.IngressOptions{
		Counter: counter,
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("build ingress: %w", err)
	}

	source, provider, err := selectSource(cfg)
	if err != nil {
		return err
	}
	logger.Info("input source selected", "provider", provider)

	w, err := watcher.New(watcher.Options{
		Interval: cfg.PollInterval(),
		Counter:  counter,
		Emitter:  emitter,
		Logger:   logger,
		Recorder: recorder,
		Metrics:  m,
	})
	if err != nil {
		return fmt.Errorf("build watcher: %w", err)
	}

	sourceCtx, cancelSource := context.WithCancel(ctx)
	defer cancelSource()

	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- source.Run(sourceCtx, ingress.Handle)
	}()

	runErr := w.Run(ctx)

	cancelSource()
	if err := <-sourceErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("input source failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if runErr != nil {
		return fmt.Errorf("run watcher: %w", runErr)
	}
	logger.Info("watcher stopped", "bucket", bucketID)
	return nil
}

// selectSource honours the configured backend, probing the host when set to auto.
func selectSource(cfg config.Config) (input.Source, string, error) {
	choice := cfg.Input.Source
	if choice == "auto" {
		env := input.DetectEnvironment()
		switch env.Provider {
		case input.ProviderPoller:
			choice = "poller"
		default:
			choice = "hook"
		}
	}

	switch choice {
	case "hook":
		return input.NewHookSource(), input.ProviderHook, nil
	case "poller":
		source, err := input.NewPollerSource(input.PollerOptions{})
		if err != nil {
			return nil, "", fmt.Errorf("build poller source: %w", err)
		}
		return source, input.ProviderPoller, nil
	default:
		return nil, "", fmt.Errorf("unknown input source %q", choice)
	}
}

func printRunPlan(app *AppContext, stdout io.Writer) {
	cfg := app.Config
	fmt.Fprintf(stdout, "Resolved configuration (source: %s)\n", cfg.Source)
	fmt.Fprintf(stdout, "  server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(stdout, "  client_name: %s\n", cfg.Watcher.ClientName)
	fmt.Fprintf(stdout, "  testing: %t\n", cfg.Watcher.Testing)
	fmt.Fprintf(stdout, "  poll_interval: %s\n", cfg.PollInterval())
	fmt.Fprintf(stdout, "  pulsetime: %s\n", cfg.Pulsetime())
	fmt.Fprintf(stdout, "  input.source: %s\n", cfg.Input.Source)
	fmt.Fprintf(stdout, "  journal.enabled: %t\n", cfg.Journal.Enabled)
	if cfg.Journal.Enabled {
		fmt.Fprintf(stdout, "  journal.path: %s\n", cfg.Journal.Path)
	}
	fmt.Fprintf(stdout, "  metrics.enabled: %t\n", cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(stdout, "  metrics.listen_addr: %s\n", cfg.Metrics.ListenAddr)
	}
	fmt.Fprintf(stdout, "  logging.level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(stdout, "  logging.format: %s\n", cfg.Logging.Format)
}
