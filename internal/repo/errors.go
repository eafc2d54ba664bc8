package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrMultipleResults   = errors.New("more than one row matches")
	ErrDuplicate         = errors.New("unique constraint violated")
	ErrForeignKey        = errors.New("foreign key constraint violated")
	ErrTransactionActive = errors.New("transaction already active")
	ErrPersistence       = errors.New("persistence failure")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify maps driver-level constraint failures onto the repo sentinels.
// gorm translates most of them when TranslateError is on; the pgconn and
// sqlite message checks cover drivers that return raw errors.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	isPg := errors.As(err, &pgErr)

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey),
		isPg && pgErr.Code == pgUniqueViolation,
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		isPg && pgErr.Code == pgForeignKeyViolation,
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
