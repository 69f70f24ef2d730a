package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	sqlStateSerialization = "40001"
	sqlStateDeadlock      = "40P01"
)

// IsUniqueViolation reports a unique constraint violation. Connections are
// opened with TranslateError so both postgres and sqlite surface
// gorm.ErrDuplicatedKey; a non-empty constraintName must appear in the
// message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsRetryableTx reports whether postgres aborted the transaction in a way a
// fresh attempt can succeed.
func IsRetryableTx(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerialization || pgErr.Code == sqlStateDeadlock
}
