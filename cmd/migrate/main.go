package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/app"
	"github.com/dvloznov/spending-dashboard/internal/config"
	"github.com/dvloznov/spending-dashboard/internal/infra/sqlite"
	"github.com/dvloznov/spending-dashboard/internal/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var (
	backend = flag.String("backend", "", "Data backend to prepare (default: DATA_BACKEND)")
	down    = flag.Bool("down", false, "Revert all SQLite migrations (drops stored transactions)")
	status  = flag.Bool("status", false, "Print the SQLite schema version and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.DataBackend = *backend
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Str("backend", cfg.DataBackend).Msg("Migration failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.DataBackend == config.BackendSQLite {
		switch {
		case *status:
			version, dirty, err := sqlite.MigrationVersion(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Printf("schema version %d (dirty: %t)\n", version, dirty)
			return nil
		case *down:
			if err := sqlite.RollbackMigrations(cfg.SQLiteDBPath); err != nil {
				return err
			}
			log.Info().Str("path", cfg.SQLiteDBPath).Msg("SQLite migrations reverted")
			return nil
		}
	} else if *status || *down {
		return fmt.Errorf("-status and -down are only supported for the %s backend", config.BackendSQLite)
	}

	// opening a repository applies its schema
	repo, err := app.OpenRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	log.Info().Str("backend", cfg.DataBackend).Msg("Schema is up to date")
	return nil
}
