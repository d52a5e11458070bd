package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/student"
)

var studentColumns = []string{
	"student.id",
	"student.fullname",
	"student.phone_number",
	"student.payment_due",
	"student.address",
	"student.created_at",
}

type studentRepository struct {
	baseRepository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) *studentRepository {
	return &studentRepository{baseRepository{db: db}}
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := builder.Insert("student").
		Columns("fullname", "phone_number", "payment_due", "address", "created_at").
		Values(s.Fullname, s.PhoneNumber, s.PaymentDue, s.Address, s.CreatedAt).
		Suffix("RETURNING id")
	if err := repo.getOne(ctx, repo.getExec(exec), &s.ID, q); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	q := builder.Select(studentColumns...).From("student")

	if filter != nil {
		filter.Clean()
		// students with Fullname or PhoneNumber matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			q = q.Where(sq.Or{
				sq.Expr("LOWER(student.fullname) LIKE ?", val),
				sq.Expr("LOWER(student.phone_number) LIKE ?", val),
			})
		}
		if filter.PaymentDue != 0 {
			q = q.Where(sq.Eq{"student.payment_due": filter.PaymentDue})
		}
		if filter.GroupID != 0 {
			q = q.Where("student.id IN (SELECT student_id FROM student_group WHERE group_id = ?)", filter.GroupID)
		}
	}

	students := make([]student.Student, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &students, q.OrderBy(orderBy(ordering, "student")...)); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (student.Student, error) {
	var s student.Student
	q := builder.Select(studentColumns...).From("student").Where(sq.Eq{"student.id": id})
	if err := repo.getOne(ctx, repo.getExec(exec), &s, q); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "querying student")
	}
	return s, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := builder.Update("student").
		SetMap(sq.Eq{
			"fullname":     s.Fullname,
			"phone_number": s.PhoneNumber,
			"payment_due":  s.PaymentDue,
			"address":      s.Address,
		}).
		Where(sq.Eq{"id": s.ID})
	res, err := repo.execute(ctx, repo.getExec(exec), q)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.execute(ctx, repo.getExec(exec), builder.Delete("student").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}

func (repo studentRepository) GroupIDs(ctx context.Context, id int, exec ...core.DBExecutor) ([]int, error) {
	ids := make([]int, 0)
	q := builder.Select("group_id").From("student_group").Where(sq.Eq{"student_id": id}).OrderBy("group_id")
	if err := repo.selectAll(ctx, repo.getExec(exec), &ids, q); err != nil {
		return nil, errors.Wrap(err, "querying student groups")
	}
	return ids, nil
}

func (repo studentRepository) ReplaceGroups(ctx context.Context, id int, groupIDs []int, exec ...core.DBExecutor) error {
	return replaceLinks(ctx, repo.baseRepository, repo.getExec(exec), link{
		ownerColumn: "student_id",
		ownerID:     id,
		otherColumn: "group_id",
		otherTable:  `"group"`,
		otherIDs:    groupIDs,
		errUnknown:  student.ErrUnknownGroup,
	})
}

// link describes one side of the student_group table.
type link struct {
	ownerColumn string
	ownerID     int
	otherColumn string
	otherTable  string
	otherIDs    []int
	errUnknown  error
}

// replaceLinks sets the owner's enrollments to exactly l.otherIDs.
// Callers run it in a transaction so a failed insert keeps the old links.
func replaceLinks(ctx context.Context, repo baseRepository, exec core.DBExecutor, l link) error {
	ids := core.UniqueIDs(l.otherIDs)
	if len(ids) > 0 {
		n, err := repo.countExisting(ctx, exec, l.otherTable, ids)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return l.errUnknown
		}
	}

	if _, err := repo.execute(ctx, exec, builder.Delete("student_group").Where(sq.Eq{l.ownerColumn: l.ownerID})); err != nil {
		return errors.Wrap(err, "clearing enrollments")
	}
	if len(ids) == 0 {
		return nil
	}

	q := builder.Insert("student_group").Columns(l.ownerColumn, l.otherColumn)
	for _, other := range ids {
		q = q.Values(l.ownerID, other)
	}
	if _, err := repo.execute(ctx, exec, q); err != nil {
		return errors.Wrap(err, "inserting enrollments")
	}
	return nil
}
