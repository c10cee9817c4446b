package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// sqlState extracts the SQLSTATE from either driver's error type.
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isTransientState covers connection exceptions, serialization failures,
// deadlocks and admin shutdowns.
func isTransientState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"):
		return true
	case code == "40001", code == "40P01", code == "57P01", code == "53300":
		return true
	}
	return false
}

// classify marks retryable failures with domain.ErrTransient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || isTransientState(sqlState(err)) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	return sqlState(err) == uniqueViolation
}
