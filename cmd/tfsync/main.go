package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openfroyo/tfsync/cmd/tfsync/commands"
	"github.com/openfroyo/tfsync/pkg/engine"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	setupLogging()

	// Cancel the context on interrupt; runs in progress stop before their
	// next external command.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := commands.Execute(ctx, Version, Commit, BuildDate)
	if err != nil && !engine.IsCancelled(err) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Command execution failed")
	}
	os.Exit(exitCode(ctx, err))
}

// exitCode maps an error to the process exit status.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return 0
	case ctx.Err() != nil, engine.IsCancelled(err), engine.IsExternalProcess(err):
		return int(syscall.ECANCELED)
	case engine.IsNotFound(err):
		return 2
	}
	var engineErr *engine.EngineError
	if errors.As(err, &engineErr) {
		return 255
	}
	return 1
}

// setupLogging configures zerolog for the messages logged before the
// project configuration is read.
func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
