package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrStoreUnavailable is returned when no usable store connection exists.
var ErrStoreUnavailable = errors.New("store unavailable")

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
		PingContext(ctx context.Context) error
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

var (
	_ DB           = (*sqlx.DB)(nil)
	_ DBTransactor = (*sqlx.Tx)(nil)
)

// TrapUnavailable marks err as ErrStoreUnavailable when db no longer answers a ping,
// e.g. once the handle is closed. A done ctx leaves err untouched.
func TrapUnavailable(ctx context.Context, db DB, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	if pingErr := db.PingContext(ctx); pingErr != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

// RunInTx runs fn inside a single transaction.
// Any error returned by fn rolls the whole transaction back; the caller gets that one error,
// annotated with the rollback failure if there was one.
func RunInTx(ctx context.Context, db DB, fn func(tx DBExecutor) error) error {
	if db == nil {
		return ErrStoreUnavailable
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(TrapUnavailable(ctx, db, err), "beginning transaction")
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction failed: %v", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings keeps the orderings whose field is allowed, in order.
func FilterOrderings(ordering []DBOrdering, allowed ...string) []DBOrdering {
	res := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if ord.Field == fld {
				res = append(res, ord)
				break
			}
		}
	}
	return res
}
