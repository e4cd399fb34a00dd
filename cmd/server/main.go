// Package main provides the exchange matching engine server.
//
// Architecture Overview:
//
//	┌─────────────┐     ┌─────────────┐     ┌──────────────┐
//	│ TCP clients │────▶│             │     │  Partition A-M │
//	│ (1 per conn)│     │  Dispatcher │────▶│  Engine+Book   │──┐
//	└─────────────┘     │  (protocol  │     └──────────────┘  │
//	┌─────────────┐     │   detect +  │     ┌──────────────┐  │
//	│ UDP clients │────▶│   routing)  │────▶│  Partition N-Z │──┼──▶ Output Router ──▶ TCP/UDP clients
//	│ (1 shared   │     │             │     │  Engine+Book   │  │                  ──▶ Multicast feed
//	│  socket)    │     └─────────────┘     └──────────────┘  │
//	└─────────────┘                                            │
//
// Each partition's engine is single-threaded and deterministic; symbols
// split A-M / N-Z across the two so price-time priority within one symbol
// is never touched by more than one goroutine.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/rishav/xchange-engine/internal/supervisor"
)

// Exit codes: 0 clean shutdown, 1 startup failure (bind/listen), 2
// configuration error (bad flags or an invalid combination of settings).
const (
	exitOK             = 0
	exitStartupFailure = 1
	exitConfigError    = 2
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

func main() {
	cfg, err := supervisor.ParseFlags(os.Args[1:])
	if err != nil {
		log.Error().Stack().Err(errors.WithStack(err)).Msg("failed to parse configuration")
		os.Exit(exitConfigError)
	}

	setupLogger(cfg.Quiet)

	if err := cfg.Validate(); err != nil {
		log.Error().Stack().Err(errors.WithStack(err)).Msg("invalid configuration")
		os.Exit(exitConfigError)
	}

	sup, err := supervisor.New(cfg)
	if err != nil {
		log.Error().Stack().Err(errors.Wrap(err, "build matching engine")).Msg("startup failed")
		os.Exit(exitStartupFailure)
	}

	if err := sup.Start(); err != nil {
		log.Error().Stack().Err(errors.Wrap(err, "start matching engine")).Msg("startup failed")
		os.Exit(exitStartupFailure)
	}

	// Listen for SIGINT (Ctrl+C) or SIGTERM (kill) and gracefully shut
	// down: stop accepting new work, drain what's already queued, then
	// release sockets.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sup.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	log.Info().Msg("matching engine stopped")
	os.Exit(exitOK)
}

func setupLogger(quiet bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if quiet {
		level = zerolog.WarnLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level)
}
