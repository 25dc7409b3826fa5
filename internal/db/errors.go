package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateKey is returned when attempting to insert a duplicate record.
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrUndefinedTable is returned when a destination table does not exist,
	// usually because migrations have not been applied.
	ErrUndefinedTable = errors.New("undefined table")

	// ErrValueTooLong is returned when a value exceeds its column's length limit.
	ErrValueTooLong = errors.New("value too long for column")
)

// PersistenceError reports a failed write to a destination table.
type PersistenceError struct {
	Table string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s (%s): %v", e.Table, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// WrapError wraps database errors with additional context and maps them to custom error types.
func WrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Handle PostgreSQL errors
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w (constraint: %s)", operation, ErrDuplicateKey, pgErr.ConstraintName)
		case "42P01": // undefined_table
			return fmt.Errorf("%s: %w: %s", operation, ErrUndefinedTable, pgErr.Message)
		case "22001": // string_data_right_truncation
			return fmt.Errorf("%s: %w: %s", operation, ErrValueTooLong, pgErr.Message)
		default:
			return fmt.Errorf("%s: database error [%s]: %w", operation, pgErr.Code, err)
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// IsDuplicateKey returns true if the error is an ErrDuplicateKey error.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsUndefinedTable returns true if the error is an ErrUndefinedTable error.
func IsUndefinedTable(err error) bool {
	return errors.Is(err, ErrUndefinedTable)
}
