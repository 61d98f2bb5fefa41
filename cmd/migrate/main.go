// Command migrate applies or rolls back the embedded database migrations.
//
// Usage:
//
//	migrate up
//	migrate down
package main

import (
	"os"

	"github.com/rs/zerolog"

	"safeday/backend/internal/config"
	"safeday/backend/internal/db/migrate"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config failed")
	}

	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		log.Fatal().Err(err).Str("direction", direction).Msg("migration failed")
	}
	log.Info().Str("direction", direction).Msg("migrations applied")
}
