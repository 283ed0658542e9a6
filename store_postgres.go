package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// pgStore implements Store on PostgreSQL through the pgx stdlib driver.
type pgStore struct {
	db *sql.DB
}

func newPGStore(db *sql.DB) *pgStore {
	return &pgStore{db: db}
}

const transactionColumns = `id, date, description, merchant, amount, type, category, source_file_id`

func (s *pgStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *pgStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, rules_json FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var (
			c    Category
			blob string
		)
		if err := rows.Scan(&c.ID, &c.Name, &blob); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Rules = parseRuleSet(blob)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *pgStore) UpsertCategories(ctx context.Context, cats []Category, reset bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning category upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if reset {
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return 0, fmt.Errorf("clearing categories: %w", err)
		}
	}

	added := 0
	for _, c := range cats {
		blob, err := c.Rules.MarshalJSON()
		if err != nil {
			return 0, fmt.Errorf("encoding rules for %q: %w", c.Name, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, rules_json) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			c.Name, string(blob))
		if err != nil {
			return 0, fmt.Errorf("inserting category %q: %w", c.Name, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing category upsert: %w", err)
	}
	return added, nil
}

func (s *pgStore) BeginIngest(ctx context.Context, filename string) (IngestBatch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ingest: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO source_files (filename) VALUES ($1) RETURNING id`, filename,
	).Scan(&id); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("creating source file: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (date, description, merchant, amount, type, category, source_file_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("preparing transaction insert: %w", err)
	}

	return &pgIngestBatch{tx: tx, stmt: stmt, sourceFileID: id}, nil
}

type pgIngestBatch struct {
	tx           *sql.Tx
	stmt         *sql.Stmt
	sourceFileID int64
}

func (b *pgIngestBatch) SourceFileID() int64 { return b.sourceFileID }

func (b *pgIngestBatch) Add(ctx context.Context, t Transaction) error {
	if _, err := b.stmt.ExecContext(ctx,
		t.Date, t.Description, t.Merchant, t.Amount, string(t.Type), t.Category, b.sourceFileID,
	); err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

func (b *pgIngestBatch) Commit() error {
	_ = b.stmt.Close()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("committing ingest: %w", err)
	}
	return nil
}

func (b *pgIngestBatch) Rollback() error {
	_ = b.stmt.Close()
	err := b.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (s *pgStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.MonthPrefix != "" {
		args = append(args, f.MonthPrefix+"%")
		where = append(where, fmt.Sprintf("date LIKE $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	// ensure empty array ([]) instead of null when no rows
	transactions := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (Transaction, error) {
	var (
		t      Transaction
		typ    string
		source sql.NullInt64
	)
	if err := r.Scan(&t.ID, &t.Date, &t.Description, &t.Merchant, &t.Amount, &typ, &t.Category, &source); err != nil {
		return Transaction{}, fmt.Errorf("scanning transaction: %w", err)
	}
	t.Type = TxType(typ)
	if source.Valid {
		id := source.Int64
		t.SourceFileID = &id
	}
	return t, nil
}

func (s *pgStore) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return t, err
}

func (s *pgStore) UpdateTransactionCategory(ctx context.Context, id int64, category string) (Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE transactions SET category = $1 WHERE id = $2 RETURNING `+transactionColumns,
		category, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return t, err
}

func (s *pgStore) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	return requireAffected(res)
}

func (s *pgStore) ClearTransactions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("clearing transactions: %w", err)
	}
	return res.RowsAffected()
}

func (s *pgStore) ListSourceFiles(ctx context.Context) ([]SourceFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, uploaded_at FROM source_files ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying source files: %w", err)
	}
	defer rows.Close()

	files := make([]SourceFile, 0)
	for rows.Next() {
		var f SourceFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning source file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *pgStore) DeleteSourceFile(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM source_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting source file: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
