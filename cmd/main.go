package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/setlistify/internal/shared"
	"github.com/desertthunder/setlistify/internal/ui"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{
		ConfigPath: "config.toml",
		LookupEnv:  os.LookupEnv,
		Logger:     logger,
	})
	defer runner.Close()

	app := newApp(runner)
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, ui.Styles.Err("✗ "+err.Error()))
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, ui.Styles.Help(hint))
		}
		stop()
		runner.Close()
		os.Exit(exitCode(err))
	}
}

// newApp builds the root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "setlistify",
		Usage:   "Turn an artist's average setlist.fm setlist into a Spotify playlist",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Before:   r.Bootstrap,
		Commands: r.register(),
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return 130
	case errors.Is(err, shared.ErrMissingCredentials),
		errors.Is(err, shared.ErrMissingConfig),
		errors.Is(err, shared.ErrInvalidConfig),
		errors.Is(err, shared.ErrNotAuthenticated):
		return 78
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput):
		return 64
	default:
		return 1
	}
}

// errorHint suggests a next step for errors the user can fix.
func errorHint(err error) string {
	switch {
	case errors.Is(err, shared.ErrMissingCredentials):
		return "Set the credentials in config.toml or .env (run \"setlistify setup config\" to create one)."
	case errors.Is(err, shared.ErrNotAuthenticated):
		return "Run \"setlistify spotify auth\" first."
	case errors.Is(err, shared.ErrRateLimited):
		return "setlist.fm is rate limiting requests; wait a minute and try again."
	case errors.Is(err, shared.ErrNoData), errors.Is(err, shared.ErrNoSongs):
		return "Try another year, --year 0, or --source page."
	default:
		return ""
	}
}
