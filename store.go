package main

import "context"

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	MonthPrefix string
	Type        TxType
}

// IngestBatch is one file's all-or-nothing write: nothing added to it is
// visible to readers until Commit succeeds.
type IngestBatch interface {
	SourceFileID() int64
	Add(ctx context.Context, t Transaction) error
	Commit() error
	Rollback() error
}

// Store persists categories, source files and transactions.
type Store interface {
	Ping(ctx context.Context) error

	// ListCategories returns categories in insertion order.
	ListCategories(ctx context.Context) ([]Category, error)
	// UpsertCategories inserts categories whose name is not present yet.
	// With reset, all existing categories are removed first.
	UpsertCategories(ctx context.Context, cats []Category, reset bool) (int, error)

	// BeginIngest opens a batch and records the provenance of filename in it.
	BeginIngest(ctx context.Context, filename string) (IngestBatch, error)

	// ListTransactions returns matching transactions, newest id first.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id int64, category string) (Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ClearTransactions(ctx context.Context) (int64, error)

	ListSourceFiles(ctx context.Context) ([]SourceFile, error)
	// DeleteSourceFile keeps the file's transactions and clears their reference.
	DeleteSourceFile(ctx context.Context, id int64) error
}
