package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

type ingestState string

const (
	stateValidating ingestState = "validating"
	stateResolving  ingestState = "resolving_columns"
	stateRows       ingestState = "rows"
	stateCommitted  ingestState = "committed"
	stateFailed     ingestState = "failed"
)

// ingester turns one uploaded CSV into committed transactions.
type ingester struct {
	store Store
	log   zerolog.Logger
}

// ingest validates and parses data, then stores every row under one new
// source file. Categories are read only once the header has resolved.
func (in *ingester) ingest(ctx context.Context, data []byte, filename string) (IngestResult, error) {
	log := in.log.With().Str("filename", filename).Logger()
	state := stateValidating
	fail := func(err error) (IngestResult, error) {
		ev := log.Error()
		if isValidationError(err) {
			ev = log.Warn()
		}
		ev.Err(err).Str("state", string(state)).Str("next", string(stateFailed)).Msg("ingest failed")
		return IngestResult{}, err
	}
	log.Debug().Str("state", string(state)).Int("bytes", len(data)).Msg("ingest started")

	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".csv") {
		return fail(validationErrorf("Upload a CSV file"))
	}
	if len(data) == 0 {
		return fail(validationErrorf("Uploaded file is empty"))
	}

	state = stateResolving
	reader := newStatementReader(decodeLossy(data))
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return fail(validationErrorf("CSV has no header row"))
	}
	if err != nil {
		return fail(validationErrorf(fmt.Sprintf("Failed to read CSV: %v", err)))
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return fail(err)
	}
	log.Debug().Str("state", string(state)).Interface("columns", cols.describe(header)).Msg("columns resolved")

	categories, err := in.store.ListCategories(ctx)
	if err != nil {
		return fail(err)
	}
	cats := newCategorizer(categories)

	state = stateRows
	batch, err := in.store.BeginIngest(ctx, filename)
	if err != nil {
		return fail(err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := batch.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("rolling back ingest")
			}
		}
	}()

	rows := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(validationErrorf(fmt.Sprintf("Malformed CSV at line %d: %v", line, err)))
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		t, ok := rowToTransaction(cols, record, cats)
		if !ok {
			continue
		}
		if err := batch.Add(ctx, t); err != nil {
			return fail(fmt.Errorf("row %d: %w", line, err))
		}
		rows++
	}

	if err := batch.Commit(); err != nil {
		return fail(err)
	}
	committed = true

	state = stateCommitted
	log.Info().
		Str("state", string(state)).
		Int("rows", rows).
		Int64("source_file_id", batch.SourceFileID()).
		Msg("ingest committed")
	return IngestResult{Rows: rows, SourceFileID: batch.SourceFileID()}, nil
}

// decodeLossy drops invalid UTF-8 sequences and a leading byte order mark.
func decodeLossy(data []byte) string {
	return strings.TrimPrefix(strings.ToValidUTF8(string(data), ""), "\ufeff")
}

func newStatementReader(text string) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r
}

// rowToTransaction normalizes one record. It reports false for rows with no
// content at all.
func rowToTransaction(cols columnMap, record []string, cats *categorizer) (Transaction, bool) {
	if isBlankRecord(record) {
		return Transaction{}, false
	}

	description := cols.cell(record, fieldDescription)
	merchant := cols.cell(record, fieldMerchant)
	if merchant == "" {
		merchant = description
	}
	amount := parseAmount(cols.cell(record, fieldAmount))

	return Transaction{
		Date:        parseDate(cols.cell(record, fieldDate)),
		Description: description,
		Merchant:    merchant,
		Amount:      amount,
		Type:        normalizeType(cols.cell(record, fieldType), amount),
		Category:    cats.infer(merchant, description),
	}, true
}

// normalizeType maps a bank's type column onto debit/credit, inferring
// from the sign of amount when the value is empty or unrecognized.
func normalizeType(raw string, amount float64) TxType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debit", "dr", "withdrawal":
		return TxDebit
	case "credit", "cr", "deposit":
		return TxCredit
	}
	if amount < 0 {
		return TxDebit
	}
	return TxCredit
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// describe maps each resolved field to its original header, for logging.
func (c columnMap) describe(header []string) map[string]string {
	out := make(map[string]string, numFields)
	for f := field(0); f < numFields; f++ {
		if i := c[f]; i >= 0 && i < len(header) {
			out[f.String()] = header[i]
		}
	}
	return out
}
