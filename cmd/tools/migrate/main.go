package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/vinicius77777/acai-do-max/internal/db"
	"github.com/vinicius77777/acai-do-max/internal/obs"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	flag.Parse()

	logger := obs.NewLogger("console", "info")
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	if *down > 0 {
		if err := db.MigrateDown(dbURL, *down); err != nil {
			logger.Fatal().Err(err).Msg("rollback")
		}
	} else if err := db.Migrate(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	version, dirty, err := db.SchemaVersion(dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("read schema version")
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema up to date")
}
