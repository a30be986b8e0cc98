package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/dxruntime/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(config.EnvSource()).ExecuteContext(ctx); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			slog.Error("invalid runtime configuration",
				slog.String("variable", cfgErr.Variable),
				slog.String("value", cfgErr.Value),
				slog.String("reason", cfgErr.Reason))
		}
		os.Exit(1)
	}
}
