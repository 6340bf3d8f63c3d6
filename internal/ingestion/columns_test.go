package ingestion

import (
	"testing"
	"time"

	"github.com/reflexity/ingest/internal/domain"
)

func TestInferColumns(t *testing.T) {
	names := []string{"id", "score", "active", "joined", "note"}
	rows := [][]string{
		{"1", "1.5", "true", "2024-01-02", "hello"},
		{"2", "2.25", "false", "2024-03-04", "42"},
		{"3", "", "yes", "2024-05-06", ""},
	}

	columns := inferColumns(names, rows)

	want := []domain.ColumnType{
		domain.ColumnTypeBigint,
		domain.ColumnTypeDouble,
		domain.ColumnTypeBoolean,
		domain.ColumnTypeTimestamp,
		domain.ColumnTypeText,
	}
	for i, col := range columns {
		if col.Type != want[i] {
			t.Errorf("column %q: got %s, want %s", col.Name, col.Type, want[i])
		}
	}
}

func TestInferColumnsAllBlankIsText(t *testing.T) {
	columns := inferColumns([]string{"empty"}, [][]string{{""}, {"  "}})
	if columns[0].Type != domain.ColumnTypeText {
		t.Errorf("blank column inferred as %s, want text", columns[0].Type)
	}
}

func TestCoerceValue(t *testing.T) {
	if v := coerceValue(domain.ColumnTypeBigint, "42"); v != int64(42) {
		t.Errorf("bigint coercion: %v", v)
	}
	if v := coerceValue(domain.ColumnTypeBigint, "42.0"); v != int64(42) {
		t.Errorf("bigint from float representation: %v", v)
	}
	if v := coerceValue(domain.ColumnTypeDouble, "3.14"); v != 3.14 {
		t.Errorf("double coercion: %v", v)
	}
	if v := coerceValue(domain.ColumnTypeBoolean, "yes"); v != true {
		t.Errorf("boolean coercion: %v", v)
	}
	if v := coerceValue(domain.ColumnTypeText, " padded "); v != "padded" {
		t.Errorf("text coercion: %v", v)
	}
	if v := coerceValue(domain.ColumnTypeBigint, ""); v != nil {
		t.Errorf("blank cell should be nil, got %v", v)
	}

	ts := coerceValue(domain.ColumnTypeTimestamp, "2024-01-02")
	if parsed, ok := ts.(time.Time); !ok || parsed.Year() != 2024 {
		t.Errorf("timestamp coercion: %v", ts)
	}
}
