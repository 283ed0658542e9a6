package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPGStore connects to TEST_DATABASE_URL and starts from empty tables.
func newTestPGStore(t *testing.T) *pgStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := openDB(ctx, Config{DatabaseURL: normalizeDatabaseURL(url), DBConnectRetries: 1}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, ensureSchema(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE transactions, source_files, categories RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return newPGStore(db)
}

func TestPGStoreIngestCommitAndRollback(t *testing.T) {
	s := newTestPGStore(t)
	ctx := context.Background()

	batch, err := s.BeginIngest(ctx, "rolled-back.csv")
	require.NoError(t, err)
	require.NoError(t, batch.Add(ctx, Transaction{Date: "2024-01-01", Amount: -1, Type: TxDebit, Category: "Other"}))
	require.NoError(t, batch.Rollback())

	files, err := s.ListSourceFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	batch, err = s.BeginIngest(ctx, "jan.csv")
	require.NoError(t, err)
	require.NoError(t, batch.Add(ctx, Transaction{Date: "2024-01-03", Description: "COSTCO", Merchant: "COSTCO", Amount: -50, Type: TxDebit, Category: "Groceries"}))
	require.NoError(t, batch.Add(ctx, Transaction{Date: "2024-02-01", Description: "PAY", Merchant: "PAY", Amount: 1500, Type: TxCredit, Category: "Income"}))
	require.NoError(t, batch.Commit())
	require.NoError(t, batch.Rollback(), "rollback after commit is a no-op")

	txns, err := s.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Greater(t, txns[0].ID, txns[1].ID)
	require.NotNil(t, txns[0].SourceFileID)
	assert.Equal(t, batch.SourceFileID(), *txns[0].SourceFileID)

	jan, err := s.ListTransactions(ctx, TransactionFilter{MonthPrefix: "2024-01"})
	require.NoError(t, err)
	require.Len(t, jan, 1)
	assert.Equal(t, "Groceries", jan[0].Category)

	credits, err := s.ListTransactions(ctx, TransactionFilter{Type: TxCredit})
	require.NoError(t, err)
	require.Len(t, credits, 1)

	files, err = s.ListSourceFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.WithinDuration(t, time.Now(), files[0].UploadedAt, time.Minute)

	require.NoError(t, s.DeleteSourceFile(ctx, batch.SourceFileID()))
	txns, err = s.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Nil(t, txns[0].SourceFileID)
}

func TestPGStoreCategories(t *testing.T) {
	s := newTestPGStore(t)
	ctx := context.Background()

	added, err := s.UpsertCategories(ctx, defaultCategories(), false)
	require.NoError(t, err)
	assert.Equal(t, len(defaultCategories()), added)

	added, err = s.UpsertCategories(ctx, defaultCategories(), false)
	require.NoError(t, err)
	assert.Zero(t, added)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, len(defaultCategories()))
	assert.Equal(t, "Groceries", cats[0].Name)
	assert.True(t, cats[9].Rules.Match(matchDescription, "PAD RENT"))

	added, err = s.UpsertCategories(ctx, []Category{{Name: "Only"}}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestPGStoreUpdateAndDelete(t *testing.T) {
	s := newTestPGStore(t)
	ctx := context.Background()

	batch, err := s.BeginIngest(ctx, "x.csv")
	require.NoError(t, err)
	require.NoError(t, batch.Add(ctx, Transaction{Date: "2024-01-03", Amount: -5, Type: TxDebit, Category: "Other"}))
	require.NoError(t, batch.Commit())

	txns, err := s.ListTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	id := txns[0].ID

	updated, err := s.UpdateTransactionCategory(ctx, id, "Dining")
	require.NoError(t, err)
	assert.Equal(t, "Dining", updated.Category)

	_, err = s.UpdateTransactionCategory(ctx, id+100, "Dining")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteTransaction(ctx, id))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, id), ErrNotFound)
	assert.ErrorIs(t, s.DeleteSourceFile(ctx, 424242), ErrNotFound)

	n, err := s.ClearTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
