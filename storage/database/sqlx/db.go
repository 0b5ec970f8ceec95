package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

// postgres error codes
const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
	checkViolation      pq.ErrorCode = "23514"
)

var errNoRow = errors.New("no row")

func pgError(err error) (*pq.Error, bool) {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return pqErr, ok
}

// isCode reports whether err is a postgres error with the given code (and constraint, when provided).
func isCode(err error, code pq.ErrorCode, constraint ...string) bool {
	pqErr, ok := pgError(err)
	if !ok || pqErr.Code != code {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pqErr.Constraint == c {
			return true
		}
	}
	return false
}

// conflictOrWrap turns the remaining integrity violations into conflicts and wraps anything else.
func conflictOrWrap(err error, msg string) error {
	if isCode(err, uniqueViolation) || isCode(err, foreignKeyViolation) || isCode(err, checkViolation) {
		pqErr, _ := pgError(err)
		return core.NewConflictError(pqErr.Message)
	}
	return errors.Wrap(err, msg)
}

// getOne runs a single-row query, reporting sql.ErrNoRows as `notFound`.
func getOne(ctx context.Context, db sqlx.QueryerContext, dest interface{}, notFound error, query string, args ...interface{}) error {
	if err := sqlx.GetContext(ctx, db, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}
		return errors.Wrap(err, "querying row")
	}
	return nil
}

// execOne runs a statement expected to affect exactly one row, reporting none as `notFound`.
func execOne(ctx context.Context, db sqlx.ExecerContext, notFound error, query string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// inTx runs fn in a transaction, rolling back when it fails.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
