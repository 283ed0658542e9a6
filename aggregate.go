package main

import (
	"sort"

	"github.com/shopspring/decimal"
)

// spendByCategory totals debit spend per category, largest first. Only
// transactions typed debit count; amounts are summed as absolute values.
// A non-empty month keeps only transactions whose date falls in that bucket.
func spendByCategory(txns []Transaction, month string) []CategorySpend {
	totals := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Type != TxDebit {
			continue
		}
		if month != "" && toMonthBucket(t.Date) != month {
			continue
		}
		cat := categoryOrFallback(t.Category)
		totals[cat] = totals[cat].Add(decimal.NewFromFloat(t.Amount).Abs())
	}

	// ensure empty array ([]) instead of null when nothing matches
	out := make([]CategorySpend, 0, len(totals))
	for cat, total := range totals {
		out = append(out, CategorySpend{Category: cat, Amount: round2(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// monthlyCategoryTotals groups transactions by month bucket. Debits add to
// their category and credits add to Income, both as positive values.
// Months appear in ascending order and only when they have transactions.
func monthlyCategoryTotals(txns []Transaction) []MonthlyTotals {
	buckets := make(map[string]map[string]decimal.Decimal)
	for _, t := range txns {
		var key string
		switch t.Type {
		case TxDebit:
			key = categoryOrFallback(t.Category)
		case TxCredit:
			key = incomeKey
		default:
			continue
		}

		month := toMonthBucket(t.Date)
		b, ok := buckets[month]
		if !ok {
			b = make(map[string]decimal.Decimal)
			buckets[month] = b
		}
		b[key] = b[key].Add(decimal.NewFromFloat(t.Amount).Abs())
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthlyTotals, 0, len(months))
	for _, m := range months {
		row := MonthlyTotals{Month: m, Totals: make(map[string]float64)}
		for key, total := range buckets[m] {
			if v := round2(total); v != 0 {
				row.Totals[key] = v
			}
		}
		out = append(out, row)
	}
	return out
}

func categoryOrFallback(name string) string {
	if name == "" {
		return fallbackCategory
	}
	return name
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
