package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/inputpulse/pkg/input"
	"github.com/offlinefirst/inputpulse/pkg/journal"
	"github.com/offlinefirst/inputpulse/pkg/store"
)

const doctorProbeTimeout = 3 * time.Second

func newDoctorCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check host readiness for input watching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := root.loadApp(cmd)
			if err != nil {
				return err
			}
			return runDoctor(cmd.Context(), app, cmd.OutOrStdout())
		},
	}
}

func runDoctor(ctx context.Context, app *AppContext, stdout io.Writer) error {
	cfg := app.Config

	fmt.Fprintf(stdout, "inputpulse doctor\nVersion: %s\n\n", versionString())
	fmt.Fprintf(stdout, "Configuration (source: %s)\n", cfg.Source)
	fmt.Fprintf(stdout, "  server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(stdout, "  poll_interval: %s\n", cfg.PollInterval())
	fmt.Fprintf(stdout, "  pulsetime: %s\n", cfg.Pulsetime())

	env := input.DetectEnvironment()
	fmt.Fprintf(stdout, "\nInput backend\n")
	fmt.Fprintf(stdout, "  provider: %s\n", env.Provider)
	fmt.Fprintf(stdout, "  permission: %s\n", env.Permission)
	if env.Message != "" {
		fmt.Fprintf(stdout, "  note: %s\n", env.Message)
	}
	if env.Guidance != "" {
		fmt.Fprintf(stdout, "  guidance: %s\n", env.Guidance)
	}

	fmt.Fprintf(stdout, "\nHeartbeat server\n")
	client, err := store.NewClient(store.Options{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		ClientName: cfg.Watcher.ClientName,
		Timeout:    doctorProbeTimeout,
	})
	if err != nil {
		fmt.Fprintf(stdout, "  client error: %v\n", err)
	} else {
		probeCtx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
		defer cancel()
		info, err := client.Info(probeCtx)
		if err != nil {
			fmt.Fprintf(stdout, "  unreachable: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "  reachable: hostname=%s version=%s testing=%t\n", info.Hostname, info.Version, info.Testing)
		}
	}

	if cfg.Journal.Enabled {
		fmt.Fprintf(stdout, "\nJournal (%s)\n", cfg.Journal.Path)
		jnl, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			fmt.Fprintf(stdout, "  open error: %v\n", err)
			return nil
		}
		defer jnl.Close()

		host := cfg.Watcher.Hostname
		if host == "" {
			if resolved, err := hostname(); err == nil {
				host = resolved
			} else {
				host = "unknown-host"
			}
		}
		entries, err := jnl.Recent(ctx, cfg.BucketID(host), 5)
		if err != nil {
			fmt.Fprintf(stdout, "  read error: %v\n", err)
			return nil
		}
		fmt.Fprintf(stdout, "  recent heartbeats: %d\n", len(entries))
		for _, entry := range entries {
			fmt.Fprintf(stdout, "  - %s duration=%s presses=%d clicks=%d merged=%t\n",
				entry.Timestamp.Format(time.RFC3339), entry.Duration, entry.Data.Presses, entry.Data.Clicks, entry.Merged)
		}
	}

	return nil
}
