package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

type (
	NotFound struct {
		Entity string
		Key    string
	}

	// Duplicate is returned when a write violates a unique constraint
	Duplicate struct {
		Entity string
		Field  string
	}

	// StoreUnavailable wraps every failure that is not the caller's fault.
	// Its message never includes the underlying cause, use errors.Unwrap
	// to get to it.
	StoreUnavailable struct {
		Op    string
		cause error
	}
)

func (n NotFound) Error() string {
	if n.Key == "" {
		return fmt.Sprintf("%v not found", n.Entity)
	}
	return fmt.Sprintf("%v %v not found", n.Entity, n.Key)
}

func (d Duplicate) Error() string {
	return fmt.Sprintf("%v with the same %v already exists", d.Entity, d.Field)
}

func (s StoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable during %v", s.Op)
}

func (s StoreUnavailable) Unwrap() error {
	return s.cause
}

func (s StoreUnavailable) Is(target error) bool {
	_, ok := target.(StoreUnavailable)
	return ok
}

// classify maps driver errors into the store error taxonomy
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		nf  NotFound
		dup Duplicate
		su  StoreUnavailable
	)
	if errors.As(err, &nf) || errors.As(err, &dup) || errors.As(err, &su) {
		return err
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
		entity, field := uniqueTarget(serr.Error())
		return Duplicate{Entity: entity, Field: field}
	}
	return StoreUnavailable{Op: op, cause: err}
}

func notFoundOr(op string, err error, nf NotFound) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nf
	}
	return classify(op, err)
}

// uniqueTarget extracts table and column from
// "UNIQUE constraint failed: users.email"
func uniqueTarget(msg string) (string, string) {
	idx := strings.LastIndex(msg, ":")
	if idx < 0 {
		return "record", "key"
	}
	target := strings.TrimSpace(msg[idx+1:])
	// composite keys are reported as "t.a, t.b", keep the first column
	target = strings.TrimSpace(strings.Split(target, ",")[0])
	table, column, found := strings.Cut(target, ".")
	if !found {
		return "record", target
	}
	return strings.TrimSuffix(table, "s"), column
}
