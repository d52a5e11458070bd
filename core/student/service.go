package student

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
)

var (
	// errors
	ErrNotFound     = fmt.Errorf("student %w", core.ErrNotFound)
	ErrUnknownGroup = errors.New("one or more groups do not exist")

	// QueryOrderings are the fields a student list may be ordered by.
	QueryOrderings = []string{"id", "fullname", "payment_due", "created_at"}
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.Fullname or Student.PhoneNumber.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error
		GroupIDs(ctx context.Context, id int, exec ...core.DBExecutor) ([]int, error)
		// ReplaceGroups sets the student's enrollments to exactly groupIDs.
		// Returns ErrUnknownGroup when any of groupIDs does not exist.
		ReplaceGroups(ctx context.Context, id int, groupIDs []int, exec ...core.DBExecutor) error
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) trapUnknownGroup(err error) error {
	if errors.Cause(err) == ErrUnknownGroup {
		return core.NewValidationError(err, core.FieldError{Field: "group_ids", Error: ErrUnknownGroup.Error()})
	}
	return err
}

// Create inserts the student and enrolls them in ns.GroupIDs, all or nothing.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	s := Student{
		Fullname:    ns.Fullname,
		PhoneNumber: ns.PhoneNumber,
		PaymentDue:  ns.PaymentDue,
		Address:     ns.Address,
		CreatedAt:   core.Now(),
	}
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if s, err = svc.repo.CreateStudent(ctx, s, tx); err != nil {
			return err
		}
		if len(ns.GroupIDs) > 0 {
			return svc.repo.ReplaceGroups(ctx, s.ID, ns.GroupIDs, tx)
		}
		return nil
	})
	if err != nil {
		return Student{}, svc.trapUnknownGroup(err)
	}
	return s, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, core.FilterOrderings(ordering, QueryOrderings...))
}

func (svc *Service) Get(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) GroupIDs(ctx context.Context, id int) ([]int, error) {
	if _, err := svc.repo.GetStudent(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.GroupIDs(ctx, id)
}

// Update applies us to the student and, when us.GroupIDs is set, replaces the enrollments in the same transaction.
func (svc *Service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	var s Student
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		orig, err := svc.repo.GetStudent(ctx, id, tx)
		if err != nil {
			return err
		}
		if s, err = svc.repo.UpdateStudent(ctx, us.apply(orig), tx); err != nil {
			return err
		}
		if us.GroupIDs != nil {
			return svc.repo.ReplaceGroups(ctx, id, us.GroupIDs, tx)
		}
		return nil
	})
	if err != nil {
		return Student{}, svc.trapUnknownGroup(err)
	}
	return s, nil
}

// Delete removes the student; enrollments and payments go with it.
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteStudent(ctx, id)
}
