package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestStatus classifies the outcome of a write against the source row count.
type IngestStatus string

const (
	// IngestStatusSuccess means every parsed row is present in the target table.
	IngestStatusSuccess IngestStatus = "success"
	// IngestStatusPartial means some, but not all, rows made it into the table.
	IngestStatusPartial IngestStatus = "partial"
	// IngestStatusFailure means the target table ended up with zero rows.
	IngestStatusFailure IngestStatus = "failure"
)

// ColumnType is the Postgres-facing type assigned to an ingested column.
type ColumnType string

const (
	ColumnTypeText      ColumnType = "text"
	ColumnTypeBigint    ColumnType = "bigint"
	ColumnTypeDouble    ColumnType = "double precision"
	ColumnTypeBoolean   ColumnType = "boolean"
	ColumnTypeTimestamp ColumnType = "timestamptz"
)

// Column pairs a sanitized column name with its inferred type.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// IngestResult is returned by the orchestrator after a write attempt.
type IngestResult struct {
	TableName     string       `json:"table_name"`
	FileName      string       `json:"file_name"`
	RowsProcessed int          `json:"rows_processed"`
	Columns       []string     `json:"columns"`
	VerifiedRows  int64        `json:"verified_rows"`
	Status        IngestStatus `json:"status"`
}

// IngestionLogEntry records ingestion problems for later inspection.
// Background ingestions surface failures only here and in the logs.
type IngestionLogEntry struct {
	ID           uuid.UUID `json:"id"`
	FileName     string    `json:"file_name"`
	TableName    string    `json:"table_name,omitempty"`
	RowNumber    *int      `json:"row_number,omitempty"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}
