package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/payment"
)

var paymentColumns = []string{
	"payment.id",
	"payment.date",
	"payment.amount",
	"payment.student_id",
	"payment.group_id",
	"payment.course_price_at_payment",
	"payment.payment_period",
	"payment.payment_type",
	"payment.notes",
	"payment.created_at",
}

type paymentRepository struct {
	baseRepository
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db core.DB) *paymentRepository {
	return &paymentRepository{baseRepository{db: db}}
}

func (repo paymentRepository) CreatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	q := builder.Insert("payment").
		Columns(
			"date", "amount", "student_id", "group_id", "course_price_at_payment",
			"payment_period", "payment_type", "notes", "created_at",
		).
		Values(
			p.Date, p.Amount, p.StudentID, p.GroupID, p.CoursePriceAtPayment,
			p.PaymentPeriod, p.PaymentType, p.Notes, p.CreatedAt,
		).
		Suffix("RETURNING id")
	if err := repo.getOne(ctx, repo.getExec(exec), &p.ID, q); err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, exec ...core.DBExecutor) ([]payment.Payment, error) {
	q := builder.Select(paymentColumns...).From("payment")

	if filter != nil {
		if filter.StudentID != 0 {
			q = q.Where(sq.Eq{"payment.student_id": filter.StudentID})
		}
		if filter.GroupID != 0 {
			q = q.Where(sq.Eq{"payment.group_id": filter.GroupID})
		}
		if !filter.DateFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"payment.date": filter.DateFrom})
		}
		if !filter.DateTo.IsZero() {
			q = q.Where(sq.LtOrEq{"payment.date": filter.DateTo})
		}
		// payments attributed to the period: recorded for it, or dated in it when no period was recorded
		if !filter.Period.IsZero() {
			start := core.NewDate(filter.Period.Start())
			end := core.NewDate(filter.Period.AddMonths(1).Start())
			q = q.Where(sq.Or{
				sq.Eq{"payment.payment_period": filter.Period},
				sq.And{
					sq.Expr("(payment.payment_period IS NULL OR payment.payment_period = '')"),
					sq.GtOrEq{"payment.date": start},
					sq.Lt{"payment.date": end},
				},
			})
		}
	}

	payments := make([]payment.Payment, 0)
	q = q.OrderBy("payment.date DESC", "payment.id DESC")
	if err := repo.selectAll(ctx, repo.getExec(exec), &payments, q); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return payments, nil
}

func (repo paymentRepository) GetPayment(ctx context.Context, id int, exec ...core.DBExecutor) (payment.Payment, error) {
	var p payment.Payment
	q := builder.Select(paymentColumns...).From("payment").Where(sq.Eq{"payment.id": id})
	if err := repo.getOne(ctx, repo.getExec(exec), &p, q); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "querying payment")
	}
	return p, nil
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	q := builder.Update("payment").
		SetMap(sq.Eq{
			"date":                    p.Date,
			"amount":                  p.Amount,
			"group_id":                p.GroupID,
			"course_price_at_payment": p.CoursePriceAtPayment,
			"payment_period":          p.PaymentPeriod,
			"payment_type":            p.PaymentType,
			"notes":                   p.Notes,
		}).
		Where(sq.Eq{"id": p.ID})
	res, err := repo.execute(ctx, repo.getExec(exec), q)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if err = checkAffected(res, payment.ErrNotFound); err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (repo paymentRepository) DeletePayment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.execute(ctx, repo.getExec(exec), builder.Delete("payment").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return checkAffected(res, payment.ErrNotFound)
}

func (repo paymentRepository) TotalsByStudent(ctx context.Context, exec ...core.DBExecutor) ([]payment.StudentTotal, error) {
	q := builder.Select(
		"student.id AS student_id",
		"student.fullname",
		"COUNT(payment.id) AS payments_count",
		"COALESCE(SUM(payment.amount), 0) AS total_amount",
	).
		From("student").
		Join("payment ON payment.student_id = student.id").
		GroupBy("student.id", "student.fullname").
		OrderBy("total_amount DESC", "student.fullname ASC", "student.id ASC")

	totals := make([]payment.StudentTotal, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &totals, q); err != nil {
		return nil, errors.Wrap(err, "querying payment totals")
	}
	return totals, nil
}
