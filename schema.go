package main

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS source_files (
		id BIGSERIAL PRIMARY KEY,
		filename VARCHAR(255) NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		rules_json TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		date VARCHAR(32) NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		merchant VARCHAR(255) NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		type VARCHAR(32) NOT NULL DEFAULT 'debit',
		category VARCHAR(64) NOT NULL DEFAULT 'Other',
		source_file_id BIGINT REFERENCES source_files(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
	CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type);
	CREATE INDEX IF NOT EXISTS idx_transactions_source_file ON transactions(source_file_id);

	-- Remove duplicate names before enforcing uniqueness
	WITH d AS (
		SELECT id, ROW_NUMBER() OVER (PARTITION BY name ORDER BY id) rn
		FROM categories
	)
	DELETE FROM categories WHERE id IN (SELECT id FROM d WHERE rn > 1);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name ON categories(name);
`

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
