package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
)

// queries are built with "?" placeholders and rebound for the executor's driver
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type baseRepository struct {
	db core.DB
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

func (repo baseRepository) getOne(ctx context.Context, exec core.DBExecutor, dest interface{}, q sq.Sqlizer) error {
	if exec == nil {
		return core.ErrStoreUnavailable
	}
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.GetContext(ctx, dest, exec.Rebind(query), args...)
}

func (repo baseRepository) selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, q sq.Sqlizer) error {
	if exec == nil {
		return core.ErrStoreUnavailable
	}
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.SelectContext(ctx, dest, exec.Rebind(query), args...)
}

func (repo baseRepository) execute(ctx context.Context, exec core.DBExecutor, q sq.Sqlizer) (sql.Result, error) {
	if exec == nil {
		return nil, core.ErrStoreUnavailable
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return exec.ExecContext(ctx, exec.Rebind(query), args...)
}

// trapNoRowsErr maps "no rows" to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when res touched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func orderBy(ordering []core.DBOrdering, table string) []string {
	if len(ordering) == 0 {
		return []string{table + ".id ASC"}
	}
	res := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		res = append(res, table+"."+ord.String())
	}
	return append(res, table+".id ASC")
}

func likePattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}

// countExisting counts how many of ids exist in table.
func (repo baseRepository) countExisting(ctx context.Context, exec core.DBExecutor, table string, ids []int) (int, error) {
	var n int
	err := repo.getOne(ctx, exec, &n, builder.Select("COUNT(*)").From(table).Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s rows", table)
	}
	return n, nil
}
