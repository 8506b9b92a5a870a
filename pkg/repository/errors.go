package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// MapError maps sql.ErrNoRows to notFoundErr and unique violations to
// duplicateErr. Other errors pass through unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return duplicateErr
	}
	return err
}

// MapWriteError classifies a failed write. sql.ErrNoRows becomes
// notFoundErr; anything else is wrapped in storeErr carrying the store's
// own message so callers can surface it verbatim.
func MapWriteError(err error, notFoundErr, storeErr error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}
	return fmt.Errorf("%w: %s", storeErr, Message(err))
}

// Message returns the PostgreSQL message for err when one is available.
func Message(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgCheckViolation && pgErr.ConstraintName != "" {
			return fmt.Sprintf("%s (%s)", pgErr.Message, pgErr.ConstraintName)
		}
		return pgErr.Message
	}
	return err.Error()
}
