package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// main is the entry point of the application.
func main() {
	// Cancel the run on interrupt. Members already tagged stay in the batch
	// cache, so the next run resumes where this one stopped.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// setupLogger initializes a logger whose format follows the environment and whose
// level follows the -v count: errors only by default, info with -v, debug with -vv.
func setupLogger(w io.Writer, env string, verbosity int) *slog.Logger {
	level := slog.LevelError
	switch {
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity >= 2:
		level = slog.LevelDebug
	}

	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{
				Level:     level,
				AddSource: true,
			}),
		)
	case envDev, envProd:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level:     level,
				AddSource: false,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level:     level,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Warn(
			"The env parameter was not specified or was invalid.",
			slog.String("env", env),
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
