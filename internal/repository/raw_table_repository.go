package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/reflexity/ingest/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaName is the namespace every ingested table lands in.
const SchemaName = "raw"

// copyChunkSize bounds the size of a single bulk-insert call so large files
// do not turn into one giant copy.
const copyChunkSize = 1000

type rawTableRepository struct {
	pool *pgxpool.Pool
}

// NewRawTableRepository wires a raw-schema table writer backed by pgxpool.
func NewRawTableRepository(pool *pgxpool.Pool) RawTableRepository {
	return &rawTableRepository{pool: pool}
}

func (r *rawTableRepository) EnsureSchema(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("raw table repository not initialized")
	}

	_, err := r.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{SchemaName}.Sanitize()))
	if err != nil {
		return fmt.Errorf("failed to ensure schema %s: %w", SchemaName, err)
	}
	return nil
}

func (r *rawTableRepository) TableExists(ctx context.Context, table string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("raw table repository not initialized")
	}

	var exists bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`,
		SchemaName,
		table,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}

func (r *rawTableRepository) Replace(ctx context.Context, table string, columns []domain.Column, rows [][]any) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("raw table repository not initialized")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("cannot create table %s with no columns", table)
	}

	qualified := pgx.Identifier{SchemaName, table}.Sanitize()

	if _, err := r.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified)); err != nil {
		return 0, fmt.Errorf("failed to drop existing table %s: %w", table, err)
	}

	defs := make([]string, len(columns))
	columnNames := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", pgx.Identifier{col.Name}.Sanitize(), col.Type)
		columnNames[i] = col.Name
	}

	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", qualified, strings.Join(defs, ", "))
	if _, err := r.pool.Exec(ctx, createStmt); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	var written int64
	for start := 0; start < len(rows); start += copyChunkSize {
		end := start + copyChunkSize
		if end > len(rows) {
			end = len(rows)
		}

		count, err := r.pool.CopyFrom(
			ctx,
			pgx.Identifier{SchemaName, table},
			columnNames,
			pgx.CopyFromRows(rows[start:end]),
		)
		if err != nil {
			return written, fmt.Errorf("bulk insert into %s failed at row %d: %w", table, start, err)
		}
		written += count
	}

	return written, nil
}

func (r *rawTableRepository) CountRows(ctx context.Context, table string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("raw table repository not initialized")
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{SchemaName, table}.Sanitize())
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}
