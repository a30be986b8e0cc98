package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Stdout is the only supported log target.
const Stdout = "-"

// Output returns the writer for a log target. File targets are not supported.
func Output(target string) (io.Writer, error) {
	if target == Stdout {
		return os.Stdout, nil
	}
	return nil, fmt.Errorf("logger: unsupported log target %q", target)
}

func New(lvl string, addSource bool, environment string, w io.Writer) *slog.Logger {

	level := parseLevel(lvl)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	}
	var handler slog.Handler

	if strings.ToLower(environment) == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("environment", environment),
	)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func parseLevel(level string) slog.Level {

	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
