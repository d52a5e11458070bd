package group

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/student"
)

var (
	// errors
	ErrNotFound       = fmt.Errorf("group %w", core.ErrNotFound)
	ErrNotEnrolled    = fmt.Errorf("enrollment %w", core.ErrNotFound)
	ErrUnknownStudent = errors.New("one or more students do not exist")

	// QueryOrderings are the fields a group list may be ordered by.
	QueryOrderings = []string{"id", "title", "course_price", "created_at"}
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		// QueryGroups applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Group.Title.
		QueryGroups(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Group, error)
		GetGroup(ctx context.Context, id int, exec ...core.DBExecutor) (Group, error)
		UpdateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		DeleteGroup(ctx context.Context, id int, exec ...core.DBExecutor) error
		QueryGroupStudents(ctx context.Context, id int, exec ...core.DBExecutor) ([]student.Student, error)
		// ReplaceStudents sets the group's roster to exactly studentIDs.
		// Returns ErrUnknownStudent when any of studentIDs does not exist.
		ReplaceStudents(ctx context.Context, id int, studentIDs []int, exec ...core.DBExecutor) error
		// AddStudent enrolls a student; enrolling twice is a no-op.
		AddStudent(ctx context.Context, id, studentID int, exec ...core.DBExecutor) error
		// RemoveStudent returns ErrNotEnrolled when the student is not in the group.
		RemoveStudent(ctx context.Context, id, studentID int, exec ...core.DBExecutor) error
	}

	Service struct {
		db      core.DB
		repo    Repository
		stdRepo student.Repository
	}
)

func NewService(db core.DB, repo Repository, stdRepo student.Repository) *Service {
	return &Service{db: db, repo: repo, stdRepo: stdRepo}
}

func (svc *Service) trapUnknownStudent(err error) error {
	if errors.Cause(err) == ErrUnknownStudent {
		return core.NewValidationError(err, core.FieldError{Field: "student_ids", Error: ErrUnknownStudent.Error()})
	}
	return err
}

// Create creates the group and links its initial students atomically.
func (svc *Service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	g := Group{
		Title:       ng.Title,
		CoursePrice: ng.CoursePrice,
		CreatedAt:   core.Now(),
	}
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if g, err = svc.repo.CreateGroup(ctx, g, tx); err != nil {
			return err
		}
		if len(ng.StudentIDs) > 0 {
			if err = svc.repo.ReplaceStudents(ctx, g.ID, ng.StudentIDs, tx); err != nil {
				return err
			}
			g.StudentsCount = len(ng.StudentIDs)
		}
		return nil
	})
	if err != nil {
		return Group{}, svc.trapUnknownStudent(err)
	}
	return g, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Group, error) {
	return svc.repo.QueryGroups(ctx, filter, core.FilterOrderings(ordering, QueryOrderings...))
}

func (svc *Service) Get(ctx context.Context, id int) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

func (svc *Service) Students(ctx context.Context, id int) ([]student.Student, error) {
	if _, err := svc.repo.GetGroup(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.QueryGroupStudents(ctx, id)
}

// Update applies ug to the group and, when ug.StudentIDs is set, replaces the roster in the same transaction.
func (svc *Service) Update(ctx context.Context, id int, ug UpdateGroup) (Group, error) {
	var g Group
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		orig, err := svc.repo.GetGroup(ctx, id, tx)
		if err != nil {
			return err
		}
		if ug.StudentIDs != nil {
			if err = svc.repo.ReplaceStudents(ctx, id, ug.StudentIDs, tx); err != nil {
				return err
			}
		}
		g, err = svc.repo.UpdateGroup(ctx, ug.apply(orig), tx)
		return err
	})
	if err != nil {
		return Group{}, svc.trapUnknownStudent(err)
	}
	return g, nil
}

func (svc *Service) AddStudent(ctx context.Context, id, studentID int) error {
	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repo.GetGroup(ctx, id, tx); err != nil {
			return err
		}
		if _, err := svc.stdRepo.GetStudent(ctx, studentID, tx); err != nil {
			return err
		}
		return svc.repo.AddStudent(ctx, id, studentID, tx)
	})
}

func (svc *Service) RemoveStudent(ctx context.Context, id, studentID int) error {
	return svc.repo.RemoveStudent(ctx, id, studentID)
}

// Delete removes the group; its enrollments and payments go with it.
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteGroup(ctx, id)
}
