package main

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Parse failures in this file never surface as errors: a bad amount cell
// becomes 0, a bad date stays as the raw text and a bad month bucket is "".

var monthPrefixPattern = regexp.MustCompile(`^(\d{4})[-/](\d{2})(?:[-/]\d{2})?$`)

// monthBucketLayouts are tried in order after the prefix pattern.
var monthBucketLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// dateLayouts extends monthBucketLayouts with the looser forms seen in bank exports.
var dateLayouts = append(append([]string{}, monthBucketLayouts...),
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"1/2/06",
	"01/02/06",
	"2-1-2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"20060102",
	// day-first slashes only after every month-first form has failed
	"02/01/2006",
	"2/1/2006",
)

// parseAmount converts a statement amount into a signed float.
// Strings may carry currency symbols, thousands separators and the
// accounting form "(1,234.56)" for negatives. Unparseable input yields 0.
func parseAmount(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case decimal.Decimal:
		return v.InexactFloat64()
	case string:
		return parseAmountString(v)
	default:
		return 0
	}
}

func parseAmountString(s string) float64 {
	s = strings.TrimSpace(s)
	neg := false
	if len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	if neg {
		d = d.Neg()
	}
	return d.InexactFloat64()
}

// toMonthBucket returns the YYYY-MM bucket of a date, or "" when unknown.
func toMonthBucket(raw any) string {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01")
	case *time.Time:
		if v == nil {
			return ""
		}
		return toMonthBucket(*v)
	case string:
		return monthBucketString(v)
	default:
		return ""
	}
}

func monthBucketString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if m := monthPrefixPattern.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2]
	}
	for _, layout := range monthBucketLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01")
		}
	}
	return ""
}

// parseDate normalizes a raw date cell to YYYY-MM-DD. Anything it cannot
// read is returned unchanged so the row is still stored.
func parseDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}
