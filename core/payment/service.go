package payment

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/core/student"
)

// ErrNotFound is returned when a payment does not exist.
var ErrNotFound = fmt.Errorf("payment %w", core.ErrNotFound)

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments applies AND operation on available QueryFilter fields, newest first.
		QueryPayments(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Payment, error)
		GetPayment(ctx context.Context, id int, exec ...core.DBExecutor) (Payment, error)
		UpdatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		DeletePayment(ctx context.Context, id int, exec ...core.DBExecutor) error
		// TotalsByStudent sums every student's payments, largest total first.
		TotalsByStudent(ctx context.Context, exec ...core.DBExecutor) ([]StudentTotal, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		stdRepo student.Repository
		grpRepo group.Repository
	}
)

func NewService(db core.DB, repo Repository, stdRepo student.Repository, grpRepo group.Repository) *Service {
	return &Service{db: db, repo: repo, stdRepo: stdRepo, grpRepo: grpRepo}
}

// trapMissingRelation reports a missing student or group as a field error.
func trapMissingRelation(err error, field string) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

// Create records the payment. The group's current price is snapshotted when np.CoursePriceAtPayment is nil.
func (svc *Service) Create(ctx context.Context, np NewPayment) (Payment, error) {
	var p Payment
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.stdRepo.GetStudent(ctx, np.StudentID, tx); err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return trapMissingRelation(err, "student_id")
			}
			return err
		}
		grp, err := svc.grpRepo.GetGroup(ctx, np.GroupID, tx)
		if err != nil {
			if errors.Cause(err) == group.ErrNotFound {
				return trapMissingRelation(err, "group_id")
			}
			return err
		}

		price := grp.CoursePrice
		if np.CoursePriceAtPayment != nil {
			price = *np.CoursePriceAtPayment
		}
		period := np.PaymentPeriod
		if period.IsZero() {
			period = np.Date.Period()
		}

		p, err = svc.repo.CreatePayment(ctx, Payment{
			Date:                 np.Date,
			Amount:               np.Amount,
			StudentID:            np.StudentID,
			GroupID:              np.GroupID,
			CoursePriceAtPayment: price,
			PaymentPeriod:        period,
			PaymentType:          np.PaymentType,
			Notes:                np.Notes,
			CreatedAt:            core.Now(),
		}, tx)
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, id int) (Payment, error) {
	return svc.repo.GetPayment(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int, up UpdatePayment) (Payment, error) {
	var p Payment
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		orig, err := svc.repo.GetPayment(ctx, id, tx)
		if err != nil {
			return err
		}
		if up.GroupID != 0 && up.GroupID != orig.GroupID {
			if _, err = svc.grpRepo.GetGroup(ctx, up.GroupID, tx); err != nil {
				if errors.Cause(err) == group.ErrNotFound {
					return trapMissingRelation(err, "group_id")
				}
				return err
			}
		}
		p, err = svc.repo.UpdatePayment(ctx, up.apply(orig), tx)
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeletePayment(ctx, id)
}

func (svc *Service) TotalsByStudent(ctx context.Context) ([]StudentTotal, error) {
	return svc.repo.TotalsByStudent(ctx)
}
