package main

import (
	"encoding/json"
	"sort"
	"time"
)

// TxType is the direction of a transaction.
type TxType string

const (
	TxDebit  TxType = "debit"
	TxCredit TxType = "credit"
)

// Transaction represents one ingested statement row
type Transaction struct {
	ID           int64   `json:"id"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	Merchant     string  `json:"merchant"`
	Amount       float64 `json:"amount"`
	Type         TxType  `json:"type"`
	Category     string  `json:"category"`
	SourceFileID *int64  `json:"source_file_id"`
}

// Category represents a named rule set used to classify transactions
type Category struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name" yaml:"name"`
	Rules RuleSet `json:"rules" yaml:"rules"`
}

// SourceFile is the provenance record of one uploaded statement
type SourceFile struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// IngestResult is returned after a file has been committed
type IngestResult struct {
	Rows         int   `json:"rows"`
	SourceFileID int64 `json:"file_id"`
}

// CategorySpend is the total debit spend of one category
type CategorySpend struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// MonthlyTotals holds the per-category totals of one month bucket.
// It marshals to a flat object: {"month": "2024-01", "Groceries": 50, "Income": 1500}.
type MonthlyTotals struct {
	Month  string
	Totals map[string]float64
}

// MarshalJSON flattens the totals next to the month key.
func (m MonthlyTotals) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m.Totals))
	for k := range m.Totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte(`{"month":`)
	month, err := json.Marshal(m.Month)
	if err != nil {
		return nil, err
	}
	buf = append(buf, month...)
	for _, k := range keys {
		if k == "month" {
			continue
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Totals[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, ',')
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// UnmarshalJSON reads the flat form back; used when serving from cache.
func (m *MonthlyTotals) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Totals = make(map[string]float64, len(raw))
	for k, v := range raw {
		if k == "month" {
			if err := json.Unmarshal(v, &m.Month); err != nil {
				return err
			}
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return err
		}
		m.Totals[k] = f
	}
	return nil
}
