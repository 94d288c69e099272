// Package main runs every write-path scenario against the configured database
// and reports which ones leave the expected defaults behind.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/upsertcheck/internal/config"
	store "github.com/thebtf/upsertcheck/internal/db/gorm"
	"github.com/thebtf/upsertcheck/internal/scenario"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		log.Error().Err(err).Msg("Failed to load config")
		return 2
	}
	if level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if len(cfg.Debug) > 0 {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().
		Str("version", Version).
		Str("dialect", cfg.Dialect).
		Strs("debug", cfg.Debug).
		Msg("Starting upsertcheck")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storeCfg := store.ConfigFrom(cfg)
	storeCfg.NowFunc = scenario.Clock
	storeCfg.Logger = &logger

	db, err := store.NewStore(storeCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open database")
		return 2
	}
	defer func() {
		if err := db.DropSchema(); err != nil {
			logger.Error().Err(err).Msg("Failed to drop schema")
		}
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}()

	start := time.Now()
	runner := scenario.NewRunner(store.NewUserStore(db), logger)
	results := runner.Run(ctx, scenario.All())

	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}

	event := logger.Info()
	if failed > 0 {
		event = logger.Error()
	}
	event.
		Int("scenarios", len(results)).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("upsertcheck complete")

	if failed > 0 {
		return 1
	}
	return 0
}
