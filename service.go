package main

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var monthFilterPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Service exposes ingestion, categorization and reporting to the HTTP and
// CLI layers.
type Service struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
	log      zerolog.Logger
	ingester *ingester
}

func newService(store Store, cache Cache, cacheTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
		ingester: &ingester{store: store, log: log.With().Str("component", "ingest").Logger()},
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Ingest stores every row of one CSV upload, or none of them.
func (s *Service) Ingest(ctx context.Context, data []byte, filename string) (IngestResult, error) {
	res, err := s.ingester.ingest(ctx, data, filename)
	if err != nil {
		return IngestResult{}, err
	}
	s.invalidate(ctx)
	return res, nil
}

func (s *Service) ListTransactions(ctx context.Context, month string) ([]Transaction, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	var out []Transaction
	err := s.cached(ctx, "transactions:"+month, &out, func() (any, error) {
		return s.store.ListTransactions(ctx, TransactionFilter{MonthPrefix: month})
	})
	return out, err
}

// UpdateCategory reassigns a transaction to a known category or "Other".
// An unknown id is reported before any problem with the category.
func (s *Service) UpdateCategory(ctx context.Context, id int64, category string) (Transaction, error) {
	if _, err := s.store.GetTransaction(ctx, id); err != nil {
		return Transaction{}, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return Transaction{}, validationErrorf("category is required")
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return Transaction{}, err
	}
	if !newCategorizer(cats).knows(category) {
		return Transaction{}, validationErrorf(fmt.Sprintf("unknown category %q", category))
	}

	t, err := s.store.UpdateTransactionCategory(ctx, id, category)
	if err != nil {
		return Transaction{}, err
	}
	s.log.Info().Int64("transaction_id", id).Str("category", category).Msg("category reassigned")
	s.invalidate(ctx)
	return t, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) ClearTransactions(ctx context.Context) (int64, error) {
	n, err := s.store.ClearTransactions(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int64("deleted", n).Msg("transactions cleared")
	s.invalidate(ctx)
	return n, nil
}

// SpendByCategory reports debit spend per category, optionally for one month.
func (s *Service) SpendByCategory(ctx context.Context, month string) ([]CategorySpend, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	var out []CategorySpend
	err := s.cached(ctx, "analytics:spend:"+month, &out, func() (any, error) {
		txns, err := s.store.ListTransactions(ctx, TransactionFilter{Type: TxDebit})
		if err != nil {
			return nil, err
		}
		return spendByCategory(txns, month), nil
	})
	return out, err
}

func (s *Service) MonthlyCategoryTotals(ctx context.Context) ([]MonthlyTotals, error) {
	var out []MonthlyTotals
	err := s.cached(ctx, "analytics:monthly", &out, func() (any, error) {
		txns, err := s.store.ListTransactions(ctx, TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return monthlyCategoryTotals(txns), nil
	})
	return out, err
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}

// SeedDefaultCategories adds the built-in catalog. Without reset, existing
// categories are kept and only missing names are added.
func (s *Service) SeedDefaultCategories(ctx context.Context, reset bool) (int, error) {
	return s.SeedCategories(ctx, defaultCategories(), reset)
}

func (s *Service) SeedCategories(ctx context.Context, cats []Category, reset bool) (int, error) {
	if err := validateCatalog(cats); err != nil {
		return 0, err
	}
	added, err := s.store.UpsertCategories(ctx, cats, reset)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("added", added).Bool("reset", reset).Msg("categories seeded")
	return added, nil
}

func (s *Service) ListSourceFiles(ctx context.Context) ([]SourceFile, error) {
	return s.store.ListSourceFiles(ctx)
}

func (s *Service) DeleteSourceFile(ctx context.Context, id int64) error {
	if err := s.store.DeleteSourceFile(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func checkMonth(month string) error {
	if month != "" && !monthFilterPattern.MatchString(month) {
		return validationErrorf("month must be formatted as YYYY-MM")
	}
	return nil
}

// cached serves key from the cache into dst, or runs load and caches its
// result. Entries are keyed by the cache generation read before load, so a
// result loaded before a purge lands under a key no later read asks for.
// Cache errors only cost a reload.
func (s *Service) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	gen, err := s.cache.Generation(ctx)
	useCache := err == nil
	if !useCache {
		s.log.Warn().Err(err).Str("key", key).Msg("cache unavailable")
	}
	key = fmt.Sprintf("g%d:%s", gen, key)

	if useCache {
		if b, ok := s.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(b, dst); err == nil {
				return nil
			}
		}
	}

	v, err := load()
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if useCache {
		if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return json.Unmarshal(b, dst)
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Purge(ctx); err != nil {
		s.log.Warn().Err(err).Msg("cache purge failed")
	}
}
