package ingestion

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/reflexity/ingest/internal/domain"
)

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.000000",
	"2006/01/02",
	"01/02/2006",
}

// inferColumns assigns a type to every sanitized column by profiling its
// values. A column where every non-blank cell parses as the same narrow type
// gets that type; anything mixed or unparseable stays text.
func inferColumns(names []string, rows [][]string) []domain.Column {
	columns := make([]domain.Column, len(names))
	for idx, name := range names {
		columns[idx] = domain.Column{Name: name, Type: profileColumn(idx, rows)}
	}
	return columns
}

func profileColumn(col int, rows [][]string) domain.ColumnType {
	isBool := true
	isInt := true
	isFloat := true
	isTimestamp := true
	hasValue := false

	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		hasValue = true

		if !looksLikeBool(value) {
			isBool = false
		}
		if !looksLikeInt(value) {
			isInt = false
		}
		if !looksLikeFloat(value) {
			isFloat = false
		}
		if !looksLikeTimestamp(value) {
			isTimestamp = false
		}
	}

	switch {
	case isBool && hasValue:
		return domain.ColumnTypeBoolean
	case isInt && hasValue:
		return domain.ColumnTypeBigint
	case isFloat && hasValue:
		return domain.ColumnTypeDouble
	case isTimestamp && hasValue:
		return domain.ColumnTypeTimestamp
	default:
		return domain.ColumnTypeText
	}
}

func looksLikeBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "false", "1", "0", "yes", "no":
		return true
	}
	_, err := strconv.ParseBool(strings.ToLower(value))
	return err == nil
}

func looksLikeInt(value string) bool {
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return true
	}
	// Spreadsheet exports often render integers as 42.0.
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return math.Mod(f, 1) == 0
	}
	return false
}

func looksLikeFloat(value string) bool {
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

func looksLikeTimestamp(value string) bool {
	_, err := parseTimestamp(value)
	return err == nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// coerceValue converts a cell to the Go value matching the column's type.
// Cells are trimmed first; blank cells become NULL. Profiling guarantees
// non-blank cells parse for typed columns; text columns keep the trimmed
// string.
func coerceValue(columnType domain.ColumnType, raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	switch columnType {
	case domain.ColumnTypeBigint:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil && math.Mod(f, 1) == 0 {
			return int64(f)
		}
	case domain.ColumnTypeDouble:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case domain.ColumnTypeBoolean:
		switch strings.ToLower(raw) {
		case "1", "yes", "y":
			return true
		case "0", "no", "n":
			return false
		}
		if b, err := strconv.ParseBool(strings.ToLower(raw)); err == nil {
			return b
		}
	case domain.ColumnTypeTimestamp:
		if ts, err := parseTimestamp(raw); err == nil {
			return ts
		}
	}

	return raw
}
