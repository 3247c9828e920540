package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/subgate/subgate/internal/model"
)

var (
	// ErrNotFound is returned when a requested resource does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("conflict")

	// ErrInUse is returned when a delete is refused because other records
	// still reference the target.
	ErrInUse = errors.New("in use")

	// ErrInvalidReference is returned when a write points at a related
	// record that does not exist.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidState is returned when a transition is not allowed from the
	// record's current state.
	ErrInvalidState = errors.New("invalid state")
)

// DuplicateSubscriptionError reports that the user already holds a
// subscription for the product. It matches ErrConflict.
type DuplicateSubscriptionError struct {
	ExistingID string
	Status     model.SubscriptionStatus
}

func (e *DuplicateSubscriptionError) Error() string {
	return fmt.Sprintf("user already has a subscription for this product (id %s, status %s)", e.ExistingID, e.Status)
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *DuplicateSubscriptionError) Is(target error) bool {
	return target == ErrConflict
}

// classifyDBError maps driver constraint violations to the store's sentinel
// errors. Errors that are not constraint violations are returned unchanged.
func classifyDBError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case "23503":
			return fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case 1451, 1452:
			return fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
	}

	// Wrapped or proxied drivers lose their typed errors; fall back to the
	// message text.
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry"):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case strings.Contains(lower, "foreign key"):
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return err
}
