package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"buildwise/api/internal/config"
	"buildwise/api/internal/logging"
	"buildwise/api/internal/seed"
	"buildwise/api/internal/store"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.Pool{
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	inserted, skipped, err := seed.SeedPermits(ctx, store.NewPostgresStore(db))
	if err != nil {
		log.Fatal().Err(err).Int("inserted", inserted).Msg("permit seed failed")
	}
	log.Info().Int("inserted", inserted).Int("skipped", skipped).Msg("permit seed complete")
}
