package repository

import (
	"context"

	"github.com/reflexity/ingest/internal/domain"
)

// RawTableRepository owns the raw schema and the per-file tables inside it.
type RawTableRepository interface {
	// EnsureSchema creates the raw schema when missing. Idempotent.
	EnsureSchema(ctx context.Context) error
	// TableExists reports whether a table of that name is already present
	// in the raw schema.
	TableExists(ctx context.Context, table string) (bool, error)
	// Replace drops any existing table of that exact name, creates it with
	// the given columns, and bulk-loads the rows in chunks. Returns the
	// driver-reported number of rows written.
	Replace(ctx context.Context, table string, columns []domain.Column, rows [][]any) (int64, error)
	// CountRows reads back the row count of a table in the raw schema.
	CountRows(ctx context.Context, table string) (int64, error)
}

// IngestionLogRepository persists ingestion problems for later inspection.
type IngestionLogRepository interface {
	Record(ctx context.Context, entry domain.IngestionLogEntry) error
	List(ctx context.Context, fileName string, limit int, offset int) ([]domain.IngestionLogEntry, error)
}
