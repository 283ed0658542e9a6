package main

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"
)

//go:embed demo_statement.csv
var demoStatement []byte

const demoStatementName = "demo_statement.csv"

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and seed default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer a.Close()

			added, err := a.svc.SeedDefaultCategories(cmd.Context(), false)
			if err != nil {
				return fmt.Errorf("failed to seed categories: %w", err)
			}
			a.log.Info().Int("categories_added", added).Msg("Migration completed successfully")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var (
		reset bool
		file  string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed categories from the built-in catalog or a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats := defaultCategories()
			if file != "" {
				var err error
				if cats, err = loadCatalog(file); err != nil {
					return err
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			added, err := a.svc.SeedCategories(cmd.Context(), cats, reset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d categories added\n", added)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete existing categories first")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML catalog to seed instead of the defaults")
	return cmd
}

func newSeedDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Ingest a demo statement when no transactions exist (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := seedDemoData(cmd.Context(), a.svc)
			if err != nil {
				return fmt.Errorf("seeding demo data failed: %w", err)
			}
			if res == nil {
				a.log.Info().Msg("Transactions already present, demo data skipped")
				return nil
			}
			a.log.Info().Int("rows", res.Rows).Int64("file_id", res.SourceFileID).Msg("Demo data seeded")
			return nil
		},
	}
}

// seedDemoData seeds the default catalog and ingests the embedded demo
// statement. It does nothing when any transaction already exists.
func seedDemoData(ctx context.Context, svc *Service) (*IngestResult, error) {
	existing, err := svc.ListTransactions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("checking transactions: %w", err)
	}
	if len(existing) > 0 {
		return nil, nil
	}

	if _, err := svc.SeedDefaultCategories(ctx, false); err != nil {
		return nil, err
	}
	res, err := svc.Ingest(ctx, demoStatement, demoStatementName)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
