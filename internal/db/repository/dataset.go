package repository

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ad-tracker/youtube-channel-etl/internal/dataset"
	"github.com/ad-tracker/youtube-channel-etl/internal/db"
	"github.com/ad-tracker/youtube-channel-etl/internal/duration"
)

// LoadResult reports the rows written to one table.
type LoadResult struct {
	Table string
	Rows  int64
}

// DatasetRepository writes canonical tables to PostgreSQL.
type DatasetRepository interface {
	// ReplaceTables truncates each table and copies in its rows, all in one
	// transaction. On error nothing is changed.
	ReplaceTables(ctx context.Context, tables ...*dataset.Table) ([]LoadResult, error)

	// Count returns the number of rows in table.
	Count(ctx context.Context, table string) (int64, error)
}

type datasetRepository struct {
	pool *pgxpool.Pool
}

// NewDatasetRepository creates a new DatasetRepository.
func NewDatasetRepository(pool *pgxpool.Pool) DatasetRepository {
	return &datasetRepository{pool: pool}
}

func (r *datasetRepository) ReplaceTables(ctx context.Context, tables ...*dataset.Table) ([]LoadResult, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	// Convert before touching the database so bad values never open a transaction.
	rows := make([][][]any, len(tables))
	for i, tbl := range tables {
		converted, err := copyRows(tbl)
		if err != nil {
			return nil, &db.PersistenceError{Table: tbl.Name, Op: "convert", Err: err}
		}
		rows[i] = converted
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, &db.PersistenceError{Table: tables[0].Name, Op: "begin", Err: db.WrapError(err, "begin transaction")}
	}
	defer tx.Rollback(ctx) // Rollback is safe to call even if committed

	results := make([]LoadResult, 0, len(tables))
	for i, tbl := range tables {
		ident := pgx.Identifier{tbl.Name}

		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+ident.Sanitize()); err != nil {
			return nil, &db.PersistenceError{Table: tbl.Name, Op: "truncate", Err: db.WrapError(err, "truncate "+tbl.Name)}
		}

		n, err := tx.CopyFrom(ctx, ident, tbl.ColumnNames(), pgx.CopyFromRows(rows[i]))
		if err != nil {
			return nil, &db.PersistenceError{Table: tbl.Name, Op: "copy", Err: db.WrapError(err, "copy into "+tbl.Name)}
		}

		results = append(results, LoadResult{Table: tbl.Name, Rows: n})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &db.PersistenceError{Table: tables[len(tables)-1].Name, Op: "commit", Err: db.WrapError(err, "commit transaction")}
	}

	return results, nil
}

func (r *datasetRepository) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	query := "SELECT count(*) FROM " + pgx.Identifier{table}.Sanitize()
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, db.WrapError(err, "count "+table)
	}
	return n, nil
}

// copyRows converts table values into the types pgx encodes for each column kind.
func copyRows(tbl *dataset.Table) ([][]any, error) {
	out := make([][]any, len(tbl.Rows))
	for i, row := range tbl.Rows {
		if len(row) != len(tbl.Columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(tbl.Columns))
		}
		converted := make([]any, len(row))
		for j, val := range row {
			v, err := copyValue(tbl.Columns[j], val)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, tbl.Columns[j].Name, err)
			}
			converted[j] = v
		}
		out[i] = converted
	}
	return out, nil
}

func copyValue(col dataset.Column, val any) (any, error) {
	if val == nil {
		return nil, nil
	}

	switch col.Kind {
	case dataset.KindString, dataset.KindText:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", val)
		}
		return truncateRunes(s, col.MaxLength), nil

	case dataset.KindInt64:
		n, ok := val.(int64)
		if !ok {
			return nil, fmt.Errorf("expected int64, got %T", val)
		}
		return n, nil

	case dataset.KindTimestamp:
		ts, ok := val.(time.Time)
		if !ok {
			return nil, fmt.Errorf("expected time.Time, got %T", val)
		}
		return ts, nil

	case dataset.KindDate:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected date string, got %T", val)
		}
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("parse date: %w", err)
		}
		return pgtype.Date{Time: d, Valid: true}, nil

	case dataset.KindTime:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected time string, got %T", val)
		}
		secs, err := duration.ParseStandard(s)
		if err != nil {
			return nil, fmt.Errorf("parse time of day: %w", err)
		}
		if secs > 24*60*60 {
			return nil, fmt.Errorf("time of day %q out of range", s)
		}
		return pgtype.Time{Microseconds: secs * int64(time.Second/time.Microsecond), Valid: true}, nil

	default:
		return nil, fmt.Errorf("unsupported column kind %s", col.Kind)
	}
}

// truncateRunes shortens s to at most n runes. n <= 0 means no limit.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
