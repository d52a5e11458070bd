package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/ledger"
)

// Every value that needs parsing is read as text so both engines hand back the same shape.
const (
	ledgerStudentsQuery = `SELECT id, fullname, phone_number, payment_due, CAST(created_at AS TEXT) AS created_at
FROM student ORDER BY id`
	ledgerGroupsQuery = `SELECT id, title, CAST(course_price AS TEXT) AS course_price, CAST(created_at AS TEXT) AS created_at
FROM "group" ORDER BY id`
	ledgerEnrollmentsQuery = `SELECT student_id, group_id FROM student_group ORDER BY student_id, group_id`
	ledgerPaymentsQuery    = `SELECT id, student_id, group_id,
	CAST(date AS TEXT) AS date,
	CAST(amount AS TEXT) AS amount,
	CAST(course_price_at_payment AS TEXT) AS course_price_at_payment,
	payment_period
FROM payment ORDER BY id`
)

type ledgerStore struct {
	db core.DB
}

var _ ledger.Store = (*ledgerStore)(nil) // interface compliance check

func NewLedgerStore(db core.DB) *ledgerStore {
	return &ledgerStore{db: db}
}

// Load reads students, groups, enrollments and payments inside one read transaction.
func (store ledgerStore) Load(ctx context.Context) (ledger.Raw, error) {
	if store.db == nil {
		return ledger.Raw{}, core.ErrStoreUnavailable
	}

	var opts *sql.TxOptions
	if store.db.DriverName() == core.EnginePostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	tx, err := store.db.BeginTxx(ctx, opts)
	if err != nil {
		return ledger.Raw{}, errors.Wrap(core.TrapUnavailable(ctx, store.db, err), "beginning read transaction")
	}
	defer func() { _ = tx.Rollback() }() // nothing to commit

	raw := ledger.Raw{
		Students:    make([]ledger.RawStudent, 0),
		Groups:      make([]ledger.RawGroup, 0),
		Enrollments: make([]ledger.RawEnrollment, 0),
		Payments:    make([]ledger.RawPayment, 0),
	}
	if err = tx.SelectContext(ctx, &raw.Students, ledgerStudentsQuery); err != nil {
		return ledger.Raw{}, errors.Wrap(err, "reading students")
	}
	if err = tx.SelectContext(ctx, &raw.Groups, ledgerGroupsQuery); err != nil {
		return ledger.Raw{}, errors.Wrap(err, "reading groups")
	}
	if err = tx.SelectContext(ctx, &raw.Enrollments, ledgerEnrollmentsQuery); err != nil {
		return ledger.Raw{}, errors.Wrap(err, "reading enrollments")
	}
	if err = tx.SelectContext(ctx, &raw.Payments, ledgerPaymentsQuery); err != nil {
		return ledger.Raw{}, errors.Wrap(err, "reading payments")
	}
	return raw, nil
}
