package debt

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core"
)

const (
	DefaultLookahead     = 3
	DefaultCriticalAfter = 5
	DefaultAlertDays     = 7
)

type Status string

const (
	StatusCurrent  Status = "current"
	StatusUpcoming Status = "upcoming"
	StatusOverdue  Status = "overdue"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SeverityOf buckets days overdue: up to criticalAfter days (inclusive) is a warning, more is critical.
func SeverityOf(daysOverdue, criticalAfter int) Severity {
	if daysOverdue > criticalAfter {
		return SeverityCritical
	}
	return SeverityWarning
}

// Input is everything the classifier needs about one student.
type Input struct {
	Due               DueDate
	Expected          decimal.Decimal
	Paid              decimal.Decimal
	LastPaymentPeriod core.Period // zero when the student never paid
	CurrentPeriod     core.Period
}

type Classification struct {
	Status               Status
	Remaining            decimal.Decimal
	DaysOverdue          int
	DaysUntilDue         int
	HasNotPaidThisPeriod bool
}

// Classify decides whether a student is overdue, upcoming or current.
//
//	overdue:  past due AND (no payment this period OR balance remaining)
//	upcoming: not past due AND no payment this period AND due within lookahead days
//
// The two sets are disjoint. A negative lookahead means DefaultLookahead.
func Classify(in Input, lookahead int) Classification {
	if lookahead < 0 {
		lookahead = DefaultLookahead
	}

	c := Classification{
		Remaining:            in.Expected.Sub(in.Paid),
		HasNotPaidThisPeriod: in.LastPaymentPeriod.IsZero() || in.LastPaymentPeriod.Before(in.CurrentPeriod),
		Status:               StatusCurrent,
	}

	if in.Due.IsPastDue() {
		if c.HasNotPaidThisPeriod || c.Remaining.IsPositive() {
			c.Status = StatusOverdue
			c.DaysOverdue = in.Due.DaysOverdue()
		}
		return c
	}

	c.DaysUntilDue = in.Due.DaysUntilDue()
	if c.HasNotPaidThisPeriod && c.DaysUntilDue <= lookahead {
		c.Status = StatusUpcoming
	}
	return c
}
