// Package dberr defines the data layer's error taxonomy and translates
// driver-level failures into it so callers can branch on error category
// without importing driver packages.
package dberr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrConnection covers transport and authentication failures reaching
	// the data store. Retryable with backoff.
	ErrConnection = errors.New("database connection error")

	// ErrPoolExhausted means no pooled connection became available within
	// the acquire timeout. Retryable after backoff; signals capacity
	// pressure.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrDuplicateEntry is a unique-constraint violation. Not retryable
	// without changing input.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrReferencedRecordMissing is a foreign-key violation.
	ErrReferencedRecordMissing = errors.New("referenced record missing")

	// ErrNotFound means the operation targeted a nonexistent row.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is a check-constraint-equivalent violation caught
	// before or at the data layer.
	ErrValidation = errors.New("validation failed")

	// ErrQuery is the catch-all for any other data-layer failure.
	ErrQuery = errors.New("query error")
)

// PostgreSQL SQLSTATE codes the layer maps exhaustively.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// Translate maps a raw error from gorm or the driver onto the taxonomy.
// The original error stays wrapped for logging.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrConnection) || errors.Is(err, ErrPoolExhausted) ||
		errors.Is(err, ErrDuplicateEntry) || errors.Is(err, ErrReferencedRecordMissing) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrQuery) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s: %v", ErrDuplicateEntry, pgErr.ConstraintName, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s: %v", ErrReferencedRecordMissing, pgErr.ConstraintName, err)
		case pgCheckViolation, pgNotNullViolation:
			return fmt.Errorf("%w: %s: %v", ErrValidation, pgErr.ConstraintName, err)
		}
		// Class 08 is connection exceptions, class 28 authentication.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "28") {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return fmt.Errorf("%w: %v", ErrQuery, err)
	}

	// SQLite (test engine) reports constraints in the error text.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrDuplicateEntry, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrReferencedRecordMissing, err)
	case strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"):
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return fmt.Errorf("%w: %v", ErrQuery, err)
}

// Retryable reports whether the caller may retry the failed operation with
// backoff without changing its input.
func Retryable(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrPoolExhausted)
}
