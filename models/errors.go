package models

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate key violation")
	ErrForeignKey = errors.New("foreign key violation")
)

// classify maps driver errors onto the sentinels above, keeping the original
// error reachable through the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s: %w", ErrDuplicate, pqErr.Constraint, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s: %w", ErrForeignKey, pqErr.Constraint, err)
		}
	}
	return err
}

// expectOne turns a write that touched no row into ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
