package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

const dbRetryDelay = 2 * time.Second

// openDB connects to PostgreSQL, waiting for it to accept connections.
func openDB(ctx context.Context, cfg Config, log zerolog.Logger) (*sql.DB, error) {
	config, err := pgx.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	maxRetries := cfg.DBConnectRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		db := stdlib.OpenDB(*config)
		err := db.PingContext(ctx)
		if err == nil {
			log.Info().Str("host", config.Host).Str("database", config.Database).Msg("Database connection established")
			return db, nil
		}
		db.Close()
		if i == maxRetries-1 {
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}

		// Log the actual error on the first few attempts and every 10th after
		ev := log.Warn().Int("attempt", i+1).Int("max_attempts", maxRetries).Dur("retry_in", dbRetryDelay)
		if i%10 == 0 || i < 5 {
			ev = ev.Err(err)
		}
		ev.Msg("Database not ready")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dbRetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database")
}
