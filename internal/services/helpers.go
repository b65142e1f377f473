package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"siaf-backend/internal/codes"
	"siaf-backend/internal/query"

	"github.com/jmoiron/sqlx"
)

// requireAffected turns a zero-row update into a not-found error.
func requireAffected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return WrapError(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound(notFound)
	}
	return nil
}

func filterError(err error) error {
	var invalid query.InvalidFilterError
	if errors.As(err, &invalid) {
		return ValidationError{Errors: []FieldError{{Field: invalid.Param, Message: "has an invalid value"}}}
	}
	return err
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

// transitionError explains a zero-row state transition: the row is either
// missing or in a state the transition does not start from. table is always
// a constant from this package.
func transitionError(ctx context.Context, db sqlx.QueryerContext, table string, id int64, notFound, conflict string) error {
	var exists bool
	if err := sqlx.GetContext(ctx, db, &exists, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id); err != nil {
		return WrapError(err, "check "+table)
	}
	if !exists {
		return ErrNotFound(notFound)
	}
	return ErrConflict(conflict)
}

// requireTransition is requireAffected for guarded state changes: zero rows
// becomes not-found or conflict via transitionError.
func requireTransition(ctx context.Context, db sqlx.QueryerContext, res sql.Result, table string, id int64, notFound, conflict string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return WrapError(err, "rows affected")
	}
	if n == 0 {
		return transitionError(ctx, db, table, id, notFound, conflict)
	}
	return nil
}

func codeTaken(db sqlx.QueryerContext, table, column string) codes.ExistsFunc {
	return func(ctx context.Context, code string) (bool, error) {
		var exists bool
		err := sqlx.GetContext(ctx, db, &exists, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE `+column+` = $1)`, code)
		return exists, err
	}
}

// newCode draws a code that is free at the time of the check.
func newCode(ctx context.Context, db sqlx.QueryerContext, gen *codes.Generator, prefix, table, column string) (string, error) {
	code, err := gen.Unique(ctx, prefix, codeTaken(db, table, column))
	if errors.Is(err, codes.ErrExhausted) {
		return "", ErrConflict("Could not allocate a unique code, please retry")
	}
	if err != nil {
		return "", WrapError(err, "allocate code")
	}
	return code, nil
}
