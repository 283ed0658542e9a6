package main

import (
	"strings"
)

type field int

const (
	fieldDate field = iota
	fieldDescription
	fieldMerchant
	fieldAmount
	fieldType
	numFields
)

var fieldNames = [numFields]string{"date", "description", "merchant", "amount", "type"}

func (f field) String() string { return fieldNames[f] }

// columnAliases lists, per field, the header names accepted in preference order.
var columnAliases = [numFields][]string{
	fieldDate:        {"date", "transaction date", "posted date", "posting date"},
	fieldDescription: {"description", "details", "memo"},
	fieldMerchant:    {"merchant", "name", "payee"},
	fieldAmount:      {"amount", "debit", "credit", "amt"},
	fieldType:        {"type", "transaction type"},
}

// columnMap holds the resolved column index per field; -1 means absent.
type columnMap [numFields]int

// resolveColumns maps the header row of one file onto the pipeline fields.
// Date and amount are required.
func resolveColumns(headers []string) (columnMap, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		name := normalizeHeader(h, i == 0)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var cols columnMap
	for f := field(0); f < numFields; f++ {
		cols[f] = -1
		for _, alias := range columnAliases[f] {
			if i, ok := index[alias]; ok {
				cols[f] = i
				break
			}
		}
	}

	if cols[fieldDate] < 0 || cols[fieldAmount] < 0 {
		return cols, validationErrorf("CSV must contain at least Date and Amount columns")
	}
	return cols, nil
}

func normalizeHeader(h string, first bool) string {
	if first {
		h = strings.TrimPrefix(h, "\ufeff")
	}
	return strings.ToLower(strings.TrimSpace(h))
}

// cell returns the trimmed value of field f in record, or "" when the
// column is absent or the record is short.
func (c columnMap) cell(record []string, f field) string {
	i := c[f]
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
