package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"repairdesk-service/internal/domain/lifecycle"
)

// Postgres error codes
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

var (
	fkKeyPattern   = regexp.MustCompile(`Key \(([^)]+)\)`)
	fkTablePattern = regexp.MustCompile(`table "([^"]+)"`)
)

// actorColumns reference the user performing the command
var actorColumns = map[string]bool{
	"changed_by_id":   true,
	"adjusted_by_id":  true,
	"performed_by_id": true,
}

// StoreError is an infrastructure failure that could not be mapped to a rejection
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Code is the error code reported to clients
func (e *StoreError) Code() string {
	return "STORE_UNAVAILABLE"
}

// translateStoreError maps a dangling reference to a rejection and wraps everything else
func translateStoreError(op string, err error) (*lifecycle.Rejection, error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		field := ""
		if m := fkKeyPattern.FindStringSubmatch(pgErr.Detail); m != nil {
			field = m[1]
		}
		referenced := ""
		if m := fkTablePattern.FindStringSubmatch(pgErr.Detail); m != nil {
			referenced = m[1]
		}

		if referenced == "users" && actorColumns[field] {
			rej := lifecycle.Reject(lifecycle.CodeAuthStale, "the acting user no longer exists, sign in again")
			rej.Field = field
			rej.Model = pgErr.TableName
			return rej, nil
		}

		rej := lifecycle.Reject(lifecycle.CodeForeignKeyViolation, "%s refers to a missing %s record", field, referenced)
		rej.Field = field
		rej.Model = pgErr.TableName
		return rej, nil
	}
	return nil, &StoreError{Op: op, Err: err}
}

// isDuplicatePaymentNumber reports whether err is a unique violation on payment_number
func isDuplicatePaymentNumber(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return strings.Contains(pgErr.ConstraintName, "payment_number") ||
		strings.Contains(pgErr.Detail, "payment_number")
}
