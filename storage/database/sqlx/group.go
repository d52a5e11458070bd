package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/core/student"
)

const groupTable = `"group"`

var groupColumns = []string{
	`"group".id`,
	`"group".title`,
	`"group".course_price`,
	`"group".created_at`,
	`(SELECT COUNT(*) FROM student_group sg WHERE sg.group_id = "group".id) AS students_count`,
}

type groupRepository struct {
	baseRepository
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db core.DB) *groupRepository {
	return &groupRepository{baseRepository{db: db}}
}

func (repo groupRepository) CreateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	q := builder.Insert(groupTable).
		Columns("title", "course_price", "created_at").
		Values(g.Title, g.CoursePrice, g.CreatedAt).
		Suffix("RETURNING id")
	if err := repo.getOne(ctx, repo.getExec(exec), &g.ID, q); err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	g.StudentsCount = 0
	return g, nil
}

func (repo groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]group.Group, error) {
	q := builder.Select(groupColumns...).From(groupTable)

	if filter != nil {
		filter.Clean()
		if filter.Search != "" {
			q = q.Where(sq.Expr(`LOWER("group".title) LIKE ?`, likePattern(filter.Search)))
		}
		// groups the student is enrolled in
		if filter.StudentID != 0 {
			q = q.Where(`"group".id IN (SELECT group_id FROM student_group WHERE student_id = ?)`, filter.StudentID)
		}
	}

	groups := make([]group.Group, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &groups, q.OrderBy(orderBy(ordering, groupTable)...)); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	return groups, nil
}

func (repo groupRepository) GetGroup(ctx context.Context, id int, exec ...core.DBExecutor) (group.Group, error) {
	var g group.Group
	q := builder.Select(groupColumns...).From(groupTable).Where(sq.Eq{`"group".id`: id})
	if err := repo.getOne(ctx, repo.getExec(exec), &g, q); err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "querying group")
	}
	return g, nil
}

// UpdateGroup saves title and price, and re-reads the group so StudentsCount reflects the current roster.
func (repo groupRepository) UpdateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	ex := repo.getExec(exec)
	q := builder.Update(groupTable).
		SetMap(sq.Eq{
			"title":        g.Title,
			"course_price": g.CoursePrice,
		}).
		Where(sq.Eq{"id": g.ID})
	res, err := repo.execute(ctx, ex, q)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if err = checkAffected(res, group.ErrNotFound); err != nil {
		return group.Group{}, err
	}
	return repo.GetGroup(ctx, g.ID, ex)
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.execute(ctx, repo.getExec(exec), builder.Delete(groupTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return checkAffected(res, group.ErrNotFound)
}

func (repo groupRepository) QueryGroupStudents(ctx context.Context, id int, exec ...core.DBExecutor) ([]student.Student, error) {
	q := builder.Select(studentColumns...).
		From("student").
		Join("student_group ON student_group.student_id = student.id").
		Where(sq.Eq{"student_group.group_id": id}).
		OrderBy("student.fullname ASC", "student.id ASC")

	students := make([]student.Student, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &students, q); err != nil {
		return nil, errors.Wrap(err, "querying group students")
	}
	return students, nil
}

func (repo groupRepository) ReplaceStudents(ctx context.Context, id int, studentIDs []int, exec ...core.DBExecutor) error {
	return replaceLinks(ctx, repo.baseRepository, repo.getExec(exec), link{
		ownerColumn: "group_id",
		ownerID:     id,
		otherColumn: "student_id",
		otherTable:  "student",
		otherIDs:    studentIDs,
		errUnknown:  group.ErrUnknownStudent,
	})
}

func (repo groupRepository) AddStudent(ctx context.Context, id, studentID int, exec ...core.DBExecutor) error {
	q := builder.Insert("student_group").
		Columns("student_id", "group_id").
		Values(studentID, id).
		Suffix("ON CONFLICT DO NOTHING")
	if _, err := repo.execute(ctx, repo.getExec(exec), q); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}

func (repo groupRepository) RemoveStudent(ctx context.Context, id, studentID int, exec ...core.DBExecutor) error {
	q := builder.Delete("student_group").Where(sq.Eq{"group_id": id, "student_id": studentID})
	res, err := repo.execute(ctx, repo.getExec(exec), q)
	if err != nil {
		return errors.Wrap(err, "removing student from group")
	}
	return checkAffected(res, group.ErrNotEnrolled)
}
