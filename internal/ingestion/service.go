package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/reflexity/ingest/internal/domain"
	"github.com/reflexity/ingest/internal/repository"
)

// maxNameAttempts caps the collision probe when deriving a free table name.
const maxNameAttempts = 100

// Service runs the file-to-table pipeline: validate, parse, name, sanitize,
// write, verify.
type Service struct {
	tables repository.RawTableRepository
	logs   repository.IngestionLogRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an ingestion service. The ingestion log repository may
// be nil; audit logging is best-effort and never fails an ingestion.
func NewService(tables repository.RawTableRepository, logs repository.IngestionLogRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tables: tables,
		logs:   logs,
		logger: logger,
		now:    time.Now,
	}
}

// Request describes one ingestion: the original filename plus the file bytes.
type Request struct {
	FileName string
	Data     io.Reader
}

// Ingest loads one tabular file into a fresh table under the raw schema and
// verifies the row count. Each pipeline step's failure is wrapped with its
// own cause so callers can report which stage broke.
func (s *Service) Ingest(ctx context.Context, req Request) (domain.IngestResult, error) {
	result := domain.IngestResult{FileName: req.FileName, Status: domain.IngestStatusFailure}

	if err := ValidateFileName(req.FileName); err != nil {
		return result, err
	}
	if req.Data == nil {
		return result, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return result, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return result, ErrEmptyFile
	}

	table, err := parseTable(req.FileName, payload)
	if err != nil {
		s.recordFailure(ctx, req.FileName, "", err)
		return result, fmt.Errorf("failed to parse %s: %w", req.FileName, err)
	}

	if err := s.tables.EnsureSchema(ctx); err != nil {
		s.recordFailure(ctx, req.FileName, "", err)
		return result, fmt.Errorf("failed to ensure raw schema: %w", err)
	}

	tableName, err := s.allocateTableName(ctx, req.FileName)
	if err != nil {
		s.recordFailure(ctx, req.FileName, "", err)
		return result, err
	}
	result.TableName = tableName

	columnNames := SanitizeColumns(table.headers)
	columns := inferColumns(columnNames, table.rows)
	result.Columns = columnNames
	result.RowsProcessed = len(table.rows)

	typedRows := make([][]any, len(table.rows))
	for i, row := range table.rows {
		values := make([]any, len(columns))
		for colIdx, col := range columns {
			if colIdx < len(row) {
				values[colIdx] = coerceValue(col.Type, row[colIdx])
			}
		}
		typedRows[i] = values
	}

	written, err := s.tables.Replace(ctx, tableName, columns, typedRows)
	if err != nil {
		s.recordFailure(ctx, req.FileName, tableName, err)
		return result, fmt.Errorf("failed to write table %s: %w", tableName, err)
	}

	verified, err := s.tables.CountRows(ctx, tableName)
	if err != nil {
		s.recordFailure(ctx, req.FileName, tableName, err)
		return result, fmt.Errorf("failed to verify table %s: %w", tableName, err)
	}
	result.VerifiedRows = verified

	switch {
	case verified > 0 && verified == int64(len(table.rows)):
		result.Status = domain.IngestStatusSuccess
	case verified > 0:
		result.Status = domain.IngestStatusPartial
		s.recordFailure(ctx, req.FileName, tableName,
			fmt.Errorf("partial write: %d of %d rows verified", verified, len(table.rows)))
	default:
		result.Status = domain.IngestStatusFailure
		s.recordFailure(ctx, req.FileName, tableName,
			fmt.Errorf("no rows verified after write (%d written)", written))
	}

	s.logger.Info("ingestion finished",
		"file", req.FileName,
		"table", tableName,
		"rows", result.RowsProcessed,
		"verified", verified,
		"status", string(result.Status),
	)

	return result, nil
}

// allocateTableName derives the timestamped table name and, when a table of
// that name already exists, appends a numeric suffix instead of letting two
// same-second ingestions of one filename silently overwrite each other.
func (s *Service) allocateTableName(ctx context.Context, fileName string) (string, error) {
	base := DeriveTableName(fileName, s.now())

	candidate := base
	for attempt := 2; attempt <= maxNameAttempts; attempt++ {
		exists, err := s.tables.TableExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to probe table name %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, attempt)
	}

	return "", fmt.Errorf("could not allocate a free table name for %s", base)
}

func (s *Service) recordFailure(ctx context.Context, fileName, tableName string, cause error) {
	if cause == nil {
		return
	}
	s.logger.Error("ingestion error", "file", fileName, "table", tableName, "error", cause)
	if s.logs == nil {
		return
	}
	entry := domain.IngestionLogEntry{
		FileName:     fileName,
		TableName:    tableName,
		ErrorMessage: cause.Error(),
	}
	if err := s.logs.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record ingestion log", "file", fileName, "error", err)
	}
}
