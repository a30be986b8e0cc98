package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/dxruntime/config"
	"github.com/angeloszaimis/dxruntime/internal/healthcheck"
	"github.com/angeloszaimis/dxruntime/internal/httpserver"
)

var errUnhealthy = errors.New("connectivity check failed")

type rootFlags struct {
	configPath string
	name       string
}

func newRootCmd(src config.Source) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "dxruntime",
		Short:        "Runtime settings and connectivity checks for the application server",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config.yaml (default: ./config/config.yaml or ./config.yaml)")
	root.PersistentFlags().StringVar(&flags.name, "name", config.DefaultAlias, "Logical database and cache name to probe")

	root.AddCommand(
		newConfigCmd(src),
		newCheckCmd(src, flags),
		newServeCmd(src, flags),
	)

	return root
}

func newConfigCmd(src config.Source) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved server runtime settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := config.Resolve(src)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rc)
		},
	}
}

func newCheckCmd(src config.Source, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the configured database and cache once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(src, flags.configPath, flags.name)
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.checker.Run(cmd.Context())

			out := cmd.OutOrStdout()
			for _, res := range []healthcheck.Result{report.Database, report.Cache} {
				if res.OK() {
					fmt.Fprintf(out, "%-8s %-12s ok    %s\n", res.Resource, res.Name, res.Latency)
				} else {
					fmt.Fprintf(out, "%-8s %-12s FAIL  %v\n", res.Resource, res.Name, res.Err)
				}
			}

			if !report.Healthy() {
				return errors.Join(append([]error{errUnhealthy}, report.Failures()...)...)
			}
			return nil
		},
	}
}

func newServeCmd(src config.Source, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve /health, /metrics and /stats on the resolved bind address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(src, flags.configPath, flags.name)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			a.collector.Start(ctx)

			srv, err := httpserver.New(a.runtime.BindAddress,
				setupRouter(a.checker, a.collector, a.registry),
				httpserver.WithConcurrencyLimit(a.runtime.Concurrency()),
				httpserver.WithRequestTimeout(a.runtime.TimeoutDuration()),
				httpserver.WithAccessLog(a.accessLog),
			)
			if err != nil {
				a.log.Error("Failed to create server", slog.Any("err", err))
				return err
			}

			a.log.Info("Starting server",
				slog.String("address", srv.Addr()),
				slog.Int("workers", a.runtime.Workers),
				slog.Int("threads", a.runtime.Threads),
				slog.Int("timeout", a.runtime.Timeout))

			srvErrCh := make(chan error, 1)
			go func() {
				srvErrCh <- srv.Start()
			}()

			select {
			case <-ctx.Done():
				a.log.Info("Shutting down gracefully...")
				if err := srv.Shutdown(context.Background()); err != nil {
					a.log.Error("Error during shutdown", slog.Any("err", err))
					return err
				}
				return nil
			case err := <-srvErrCh:
				if err != nil {
					a.log.Error("Error starting server", slog.Any("err", err))
				}
				return err
			}
		},
	}
}
