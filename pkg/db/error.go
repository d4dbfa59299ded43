package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if hasPGCode(err, "23505") {
		return true
	}
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsSerializationErr reports whether the error is a serialization failure
// that should be retried at the transaction level.
func IsSerializationErr(err error) bool {
	if err == nil {
		return false
	}
	if hasPGCode(err, "40001") {
		return true
	}
	return strings.Contains(err.Error(), "could not serialize access")
}

// IsRetryableTxErr reports whether a transaction should be re-run from the
// top. Serialization conflicts and duplicate-key races on idempotency keys
// both resolve once the competing transaction has committed.
func IsRetryableTxErr(err error) bool {
	return IsSerializationErr(err) || IsDuplicateKeyErr(err)
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
