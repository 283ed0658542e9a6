package main

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory Store. Batches stage rows privately and publish
// them under the lock on Commit.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	categories []Category
	files      []SourceFile
	txns       []Transaction

	failOnAdd          int // fail the Nth Add of a batch (1-based); 0 disables
	failOnCommit       bool
	failListCategories bool
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) ListCategories(context.Context) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failListCategories {
		return nil, errInjected
	}
	return append([]Category{}, m.categories...), nil
}

func (m *memStore) UpsertCategories(_ context.Context, cats []Category, reset bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reset {
		m.categories = nil
	}
	added := 0
	for _, c := range cats {
		exists := false
		for _, have := range m.categories {
			if have.Name == c.Name {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		c.ID = m.id()
		m.categories = append(m.categories, c)
		added++
	}
	return added, nil
}

func (m *memStore) BeginIngest(_ context.Context, filename string) (IngestBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memBatch{
		store: m,
		file:  SourceFile{ID: m.id(), Filename: filename, UploadedAt: time.Now().UTC()},
	}, nil
}

func (m *memStore) ListTransactions(_ context.Context, f TransactionFilter) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Transaction{}
	for _, t := range m.txns {
		if f.MonthPrefix != "" && !strings.HasPrefix(t.Date, f.MonthPrefix) {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) GetTransaction(_ context.Context, id int64) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.ID == id {
			return t, nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (m *memStore) UpdateTransactionCategory(_ context.Context, id int64, category string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txns {
		if m.txns[i].ID == id {
			m.txns[i].Category = category
			return m.txns[i], nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (m *memStore) DeleteTransaction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txns {
		if m.txns[i].ID == id {
			m.txns = append(m.txns[:i], m.txns[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) ClearTransactions(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.txns))
	m.txns = nil
	return n, nil
}

func (m *memStore) ListSourceFiles(context.Context) ([]SourceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]SourceFile{}, m.files...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) DeleteSourceFile(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.files {
		if m.files[i].ID != id {
			continue
		}
		m.files = append(m.files[:i], m.files[i+1:]...)
		for j := range m.txns {
			if m.txns[j].SourceFileID != nil && *m.txns[j].SourceFileID == id {
				m.txns[j].SourceFileID = nil
			}
		}
		return nil
	}
	return ErrNotFound
}

type memBatch struct {
	store  *memStore
	file   SourceFile
	staged []Transaction
	done   bool
}

func (b *memBatch) SourceFileID() int64 { return b.file.ID }

func (b *memBatch) Add(_ context.Context, t Transaction) error {
	if b.store.failOnAdd > 0 && len(b.staged)+1 == b.store.failOnAdd {
		return errInjected
	}
	id := b.file.ID
	t.SourceFileID = &id
	b.staged = append(b.staged, t)
	return nil
}

func (b *memBatch) Commit() error {
	if b.done {
		return errors.New("batch already finished")
	}
	b.done = true
	if b.store.failOnCommit {
		return errInjected
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.files = append(b.store.files, b.file)
	for _, t := range b.staged {
		t.ID = b.store.id()
		b.store.txns = append(b.store.txns, t)
	}
	return nil
}

func (b *memBatch) Rollback() error {
	b.done = true
	b.staged = nil
	return nil
}

// countingCache wraps localCache and records purges.
type countingCache struct {
	*localCache
	purges int
}

func (c *countingCache) Purge(ctx context.Context) error {
	c.purges++
	return c.localCache.Purge(ctx)
}

// pausingStore holds the first ListTransactions call after it has read its
// snapshot, until release is closed.
type pausingStore struct {
	*memStore
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func newPausingStore() *pausingStore {
	return &pausingStore{
		memStore: newMemStore(),
		loaded:   make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (p *pausingStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	txns, err := p.memStore.ListTransactions(ctx, f)
	p.once.Do(func() {
		close(p.loaded)
		<-p.release
	})
	return txns, err
}
