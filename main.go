package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Bank statement ingestion, categorization and spend analytics",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newSeedDemoCommand(),
		newIngestCommand(),
	)
	return rootCmd
}

// app holds the long-lived dependencies shared by every command.
type app struct {
	cfg   Config
	log   zerolog.Logger
	db    *sql.DB
	cache Cache
	svc   *Service
}

// openApp connects to the database, ensures the schema and picks a cache.
func openApp(ctx context.Context) (*app, error) {
	cfg := loadConfig()
	log := newLogger(cfg)

	db, err := openDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	cache, err := openCache(ctx, cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	svc := newService(newPGStore(db), cache, cfg.CacheTTL, log)
	return &app{cfg: cfg, log: log, db: db, cache: cache, svc: svc}, nil
}

func openCache(ctx context.Context, cfg Config, log zerolog.Logger) (Cache, error) {
	if cfg.RedisURL != "" {
		rc, err := newRedisCache(ctx, cfg.RedisURL, log)
		if err == nil {
			return rc, nil
		}
		log.Warn().Err(err).Msg("Failed to initialize Redis, continuing with in-process cache")
	}
	return newLocalCache()
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing cache")
	}
	a.db.Close()
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           newRouter(a.svc, a.cfg, a.log),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("port", a.cfg.Port).Msg("Server starting")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("failed to start server: %w", err)
			case <-ctx.Done():
			}

			a.log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest bank statement CSV files from disk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				res, err := a.svc.Ingest(cmd.Context(), data, filepath.Base(path))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows (file id %d)\n", path, res.Rows, res.SourceFileID)
			}
			return nil
		},
	}
}
