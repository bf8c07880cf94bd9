package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors surfaced by repositories when a database constraint or
// guard clause rejects an operation. Services translate these into their own
// error vocabulary; anything else is an infrastructure failure.
var (
	ErrNotFound            = errors.New("not_found")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrDuplicateWatch      = errors.New("duplicate_watch")
	ErrDuplicateEntry      = errors.New("duplicate_entry")
	ErrQuotaExhausted      = errors.New("quota_exhausted")
	ErrAlreadyProcessed    = errors.New("already_processed")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
