package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngester(store Store) *ingester {
	return &ingester{store: store, log: zerolog.Nop()}
}

// newSeededStore returns a store holding the default catalog.
func newSeededStore(t *testing.T) *memStore {
	t.Helper()
	store := newMemStore()
	_, err := store.UpsertCategories(context.Background(), defaultCategories(), false)
	require.NoError(t, err)
	return store
}

func TestIngestNormalizesRows(t *testing.T) {
	store := newSeededStore(t)
	csv := "Transaction Date,Details,Amount\n" +
		"2024-01-05,COSTCO WHOLESALE,-132.39\n" +
		"01/06/2024,PAYROLL ACME,\"3,200.00\"\n" +
		",,\n" +
		"2024-01-07,Corner Store,(4.50)\n"

	res, err := newTestIngester(store).ingest(context.Background(), []byte(csv), "jan.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)

	txns, err := store.ListTransactions(context.Background(), TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 3)

	// newest id first
	corner, payroll, costco := txns[0], txns[1], txns[2]

	assert.Equal(t, "2024-01-05", costco.Date)
	assert.Equal(t, "COSTCO WHOLESALE", costco.Merchant, "merchant falls back to description")
	assert.Equal(t, -132.39, costco.Amount)
	assert.Equal(t, TxDebit, costco.Type)
	assert.Equal(t, "Groceries", costco.Category)

	assert.Equal(t, "2024-01-06", payroll.Date)
	assert.Equal(t, 3200.0, payroll.Amount)
	assert.Equal(t, TxCredit, payroll.Type)
	assert.Equal(t, "Income", payroll.Category)

	assert.Equal(t, -4.5, corner.Amount)
	assert.Equal(t, "Other", corner.Category)

	for _, tx := range txns {
		require.NotNil(t, tx.SourceFileID)
		assert.Equal(t, res.SourceFileID, *tx.SourceFileID)
	}
}

func TestIngestTypeColumn(t *testing.T) {
	store := newSeededStore(t)
	csv := "Date,Merchant,Description,Amount,Type\n" +
		"2024-02-01,Shell,fuel,61.10,DR\n" +
		"2024-02-02,Refund,returned,-5.00,Deposit\n" +
		"2024-02-03,Misc,misc,-7.00,unknown\n"

	_, err := newTestIngester(store).ingest(context.Background(), []byte(csv), "feb.CSV")
	require.NoError(t, err)

	txns, err := store.ListTransactions(context.Background(), TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, TxDebit, txns[0].Type, "unknown type falls back to sign")
	assert.Equal(t, TxCredit, txns[1].Type)
	assert.Equal(t, TxDebit, txns[2].Type)
	assert.Equal(t, "Fuel & Gas", txns[2].Category)
}

func TestIngestRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		reason   string
	}{
		{"not csv", "statement.pdf", "Date,Amount\n", "Upload a CSV file"},
		{"empty", "empty.csv", "", "Uploaded file is empty"},
		{"missing columns", "bad.csv", "Description,Amount\nCoffee,-3\n", "CSV must contain at least Date and Amount columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			_, err := newTestIngester(store).ingest(context.Background(), []byte(tt.data), tt.filename)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.reason, ve.Reason)

			txns, _ := store.ListTransactions(context.Background(), TransactionFilter{})
			files, _ := store.ListSourceFiles(context.Background())
			assert.Empty(t, txns)
			assert.Empty(t, files)
		})
	}
}

func TestIngestValidatesBeforeReadingCategories(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		reason   string
	}{
		{"not csv", "statement.pdf", "Date,Amount\n2024-01-01,-1\n", "Upload a CSV file"},
		{"empty", "empty.csv", "", "Uploaded file is empty"},
		{"missing columns", "bad.csv", "Description,Amount\nCoffee,-3\n", "CSV must contain at least Date and Amount columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.failListCategories = true

			_, err := newTestIngester(store).ingest(context.Background(), []byte(tt.data), tt.filename)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.reason, ve.Reason)
		})
	}
}

func TestIngestCategoryReadFailure(t *testing.T) {
	store := newMemStore()
	store.failListCategories = true

	_, err := newTestIngester(store).ingest(context.Background(), []byte("Date,Amount\n2024-01-01,-1\n"), "x.csv")
	require.ErrorIs(t, err, errInjected)

	files, _ := store.ListSourceFiles(context.Background())
	assert.Empty(t, files)
}

func TestIngestLossyDecode(t *testing.T) {
	store := newMemStore()
	data := []byte("\xef\xbb\xbfDate,Description,Amount\n2024-03-01,CAF\xe9 LUNA,-8.00\n")

	res, err := newTestIngester(store).ingest(context.Background(), data, "latin1.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	txns, _ := store.ListTransactions(context.Background(), TransactionFilter{})
	require.Len(t, txns, 1)
	assert.Equal(t, "CAF LUNA", txns[0].Description)
}

func TestIngestIsAtomic(t *testing.T) {
	store := newMemStore()
	store.failOnAdd = 2
	csv := "Date,Description,Amount\n2024-01-01,a,-1\n2024-01-02,b,-2\n2024-01-03,c,-3\n"

	_, err := newTestIngester(store).ingest(context.Background(), []byte(csv), "partial.csv")
	require.ErrorIs(t, err, errInjected)

	txns, _ := store.ListTransactions(context.Background(), TransactionFilter{})
	files, _ := store.ListSourceFiles(context.Background())
	assert.Empty(t, txns)
	assert.Empty(t, files)
}

func TestIngestCommitFailure(t *testing.T) {
	store := newMemStore()
	store.failOnCommit = true

	_, err := newTestIngester(store).ingest(context.Background(), []byte("Date,Amount\n2024-01-01,-1\n"), "x.csv")
	require.ErrorIs(t, err, errInjected)

	files, _ := store.ListSourceFiles(context.Background())
	assert.Empty(t, files)
}

func TestIngestHeaderOnly(t *testing.T) {
	store := newMemStore()
	res, err := newTestIngester(store).ingest(context.Background(), []byte("Date,Amount\n"), "none.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows)

	files, _ := store.ListSourceFiles(context.Background())
	assert.Len(t, files, 1)
}

func TestIngestCanceledContext(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestIngester(store).ingest(ctx, []byte("Date,Amount\n2024-01-01,-1\n"), "x.csv")
	require.ErrorIs(t, err, context.Canceled)

	txns, _ := store.ListTransactions(context.Background(), TransactionFilter{})
	assert.Empty(t, txns)
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, TxDebit, normalizeType("Withdrawal", 10))
	assert.Equal(t, TxCredit, normalizeType(" CR ", -10))
	assert.Equal(t, TxDebit, normalizeType("", -0.01))
	assert.Equal(t, TxCredit, normalizeType("", 0))
}
