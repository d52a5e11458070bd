package debt

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/ledger"
)

var nowFunc = time.Now // mockable

type Service struct {
	store  ledger.Store
	logger core.Logger

	loc           *time.Location
	lookahead     int
	criticalAfter int
	alertDays     int
}

func NewService(store ledger.Store, logger core.Logger, conf *core.Config) *Service {
	svc := &Service{
		store:         store,
		logger:        logger,
		loc:           time.Local,
		lookahead:     DefaultLookahead,
		criticalAfter: DefaultCriticalAfter,
		alertDays:     DefaultAlertDays,
	}
	if conf != nil {
		svc.loc = conf.Location()
		if conf.Reports.UpcomingDays >= 0 {
			svc.lookahead = conf.Reports.UpcomingDays
		}
		if conf.Reports.CriticalAfterDays > 0 {
			svc.criticalAfter = conf.Reports.CriticalAfterDays
		}
		if conf.Reports.AlertDays > 0 {
			svc.alertDays = conf.Reports.AlertDays
		}
	}
	return svc
}

// CriticalAfter is the number of days overdue above which a debt is critical.
func (svc *Service) CriticalAfter() int {
	return svc.criticalAfter
}

func (svc *Service) now() time.Time {
	return nowFunc().In(svc.loc)
}

// evaluation is one student's standing for the current period.
type evaluation struct {
	student  ledger.Student
	groups   []ledger.Group
	summary  PaymentSummary
	live     decimal.Decimal
	expected decimal.Decimal
	class    Classification
}

func (svc *Service) load(ctx context.Context) (*ledger.Snapshot, error) {
	return ledger.Load(ctx, svc.store, svc.logger)
}

// evaluate runs every student of snap through the normalizer, aggregator and classifier.
func (svc *Service) evaluate(snap *ledger.Snapshot, now time.Time, lookahead int) []evaluation {
	period := core.PeriodOf(now)
	evals := make([]evaluation, 0, len(snap.Students))
	for _, s := range snap.Students {
		groups := snap.GroupsOf(s.ID)
		sum := Aggregate(snap.PaymentsOf(s.ID), period)
		expected := ExpectedAmount(groups, sum)
		evals = append(evals, evaluation{
			student:  s,
			groups:   groups,
			summary:  sum,
			live:     LiveObligation(groups),
			expected: expected,
			class: Classify(Input{
				Due:               Normalize(s.PaymentDue, now),
				Expected:          expected,
				Paid:              sum.Paid,
				LastPaymentPeriod: sum.LastPaymentPeriod,
				CurrentPeriod:     period,
			}, lookahead),
		})
	}
	return evals
}

func (svc *Service) overdue(evals []evaluation) []evaluation {
	res := make([]evaluation, 0)
	for _, e := range evals {
		if e.class.Status == StatusOverdue {
			res = append(res, e)
		}
	}
	// worst first: days overdue desc, remaining desc, name asc
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.class.DaysOverdue != b.class.DaysOverdue {
			return a.class.DaysOverdue > b.class.DaysOverdue
		}
		if cmp := a.class.Remaining.Cmp(b.class.Remaining); cmp != 0 {
			return cmp > 0
		}
		return lessName(a.student.Fullname, b.student.Fullname)
	})
	return res
}

func (svc *Service) summarize(overdue []evaluation) OverdueSummary {
	sum := OverdueSummary{Total: len(overdue)}
	if len(overdue) == 0 {
		return sum
	}
	var days int
	for _, e := range overdue {
		days += e.class.DaysOverdue
		if SeverityOf(e.class.DaysOverdue, svc.criticalAfter) == SeverityCritical {
			sum.Critical++
		} else {
			sum.Warning++
		}
	}
	sum.AvgDaysOverdue = core.Round(float64(days)/float64(len(overdue)), 1)
	return sum
}

// OverdueStudents lists every overdue student, worst first.
func (svc *Service) OverdueStudents(ctx context.Context) ([]OverdueRecord, error) {
	snap, err := svc.load(ctx)
	if err != nil {
		return nil, err
	}

	overdue := svc.overdue(svc.evaluate(snap, svc.now(), svc.lookahead))
	records := make([]OverdueRecord, 0, len(overdue))
	for _, e := range overdue {
		records = append(records, OverdueRecord{
			ID:              e.student.ID,
			Fullname:        e.student.Fullname,
			PhoneNumber:     e.student.PhoneNumber,
			PaymentDue:      e.student.PaymentDue,
			DaysOverdue:     e.class.DaysOverdue,
			RemainingAmount: e.class.Remaining,
			LastPaymentDate: e.summary.LastPaymentDate,
			Severity:        SeverityOf(e.class.DaysOverdue, svc.criticalAfter),
		})
	}
	return records, nil
}

// UpcomingPayments lists the students due within daysAhead days who have not paid this period,
// soonest first. A negative daysAhead uses the configured default.
func (svc *Service) UpcomingPayments(ctx context.Context, daysAhead int) ([]UpcomingRecord, error) {
	if daysAhead < 0 {
		daysAhead = svc.lookahead
	}
	snap, err := svc.load(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]UpcomingRecord, 0)
	for _, e := range svc.evaluate(snap, svc.now(), daysAhead) {
		if e.class.Status != StatusUpcoming {
			continue
		}
		records = append(records, UpcomingRecord{
			ID:           e.student.ID,
			Fullname:     e.student.Fullname,
			PhoneNumber:  e.student.PhoneNumber,
			PaymentDue:   e.student.PaymentDue,
			DaysUntilDue: e.class.DaysUntilDue,
		})
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].DaysUntilDue != records[j].DaysUntilDue {
			return records[i].DaysUntilDue < records[j].DaysUntilDue
		}
		return lessName(records[i].Fullname, records[j].Fullname)
	})
	return records, nil
}

// DashboardStats aggregates totals, this month's activity and the overdue summary.
// "This month" counts payments by their calendar date.
func (svc *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	snap, err := svc.load(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	now := svc.now()
	period := core.PeriodOf(now)
	inPeriod := func(t time.Time) bool {
		return !t.IsZero() && core.PeriodOf(t.In(svc.loc)) == period
	}

	stats := DashboardStats{
		TotalStudents:          len(snap.Students),
		TotalGroups:            len(snap.Groups),
		TotalPayments:          len(snap.Payments),
		TotalPaymentAmount:     decimal.Zero,
		PaymentAmountThisMonth: decimal.Zero,
	}
	for _, s := range snap.Students {
		if inPeriod(s.CreatedAt) {
			stats.StudentsThisMonth++
		}
	}
	for _, g := range snap.Groups {
		if inPeriod(g.CreatedAt) {
			stats.GroupsThisMonth++
		}
	}
	for _, p := range snap.Payments {
		stats.TotalPaymentAmount = stats.TotalPaymentAmount.Add(p.Amount)
		if p.Date.Period() == period {
			stats.PaymentsThisMonth++
			stats.PaymentAmountThisMonth = stats.PaymentAmountThisMonth.Add(p.Amount)
		}
	}

	stats.Overdue = svc.summarize(svc.overdue(svc.evaluate(snap, now, svc.lookahead)))
	stats.OverduePaymentsCount = stats.Overdue.Total
	return stats, nil
}

// DebtorSummary counts overdue students per severity.
func (svc *Service) DebtorSummary(ctx context.Context) (OverdueSummary, error) {
	snap, err := svc.load(ctx)
	if err != nil {
		return OverdueSummary{}, err
	}
	return svc.summarize(svc.overdue(svc.evaluate(snap, svc.now(), svc.lookahead))), nil
}

// GroupOverdueRates gives, per group, the share of its students that are overdue.
// Groups without students are reported at 0%.
func (svc *Service) GroupOverdueRates(ctx context.Context) ([]GroupOverdueRecord, error) {
	snap, err := svc.load(ctx)
	if err != nil {
		return nil, err
	}

	overdue := make(map[int]bool)
	for _, e := range svc.evaluate(snap, svc.now(), svc.lookahead) {
		if e.class.Status == StatusOverdue {
			overdue[e.student.ID] = true
		}
	}

	records := make([]GroupOverdueRecord, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		rec := GroupOverdueRecord{GroupID: g.ID, GroupTitle: g.Title}
		for _, sID := range snap.StudentsOf(g.ID) {
			rec.TotalStudents++
			if overdue[sID] {
				rec.OverdueCount++
			}
		}
		rec.OverduePercentage = core.Percentage(rec.OverdueCount, rec.TotalStudents)
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.OverduePercentage != b.OverduePercentage {
			return a.OverduePercentage > b.OverduePercentage
		}
		if a.OverdueCount != b.OverdueCount {
			return a.OverdueCount > b.OverdueCount
		}
		return lessName(a.GroupTitle, b.GroupTitle)
	})
	return records, nil
}

// StudentMonthlyDebts details every student's bill for the current period, ordered by name.
// When studentIDs are given only those students are returned.
func (svc *Service) StudentMonthlyDebts(ctx context.Context, studentIDs ...int) ([]StudentMonthlyDebt, error) {
	snap, err := svc.load(ctx)
	if err != nil {
		return nil, err
	}

	var only map[int]bool
	if len(studentIDs) > 0 {
		only = make(map[int]bool, len(studentIDs))
		for _, id := range studentIDs {
			only[id] = true
		}
	}

	records := make([]StudentMonthlyDebt, 0)
	for _, e := range svc.evaluate(snap, svc.now(), svc.lookahead) {
		if only != nil && !only[e.student.ID] {
			continue
		}
		records = append(records, StudentMonthlyDebt{
			StudentID:          e.student.ID,
			StudentFullname:    e.student.Fullname,
			PhoneNumber:        e.student.PhoneNumber,
			PaymentDue:         e.student.PaymentDue,
			TotalCoursePrice:   e.live,
			PaidThisMonth:      e.summary.Paid,
			ExpectedAmount:     e.expected,
			TotalMonthlyAmount: e.class.Remaining,
			GroupsCount:        len(e.groups),
			Groups:             groupRefs(e.groups),
			LastPaymentDate:    e.summary.LastPaymentDate,
			DaysOverdue:        e.class.DaysOverdue,
			IsOverdue:          e.class.Status == StatusOverdue,
			Status:             e.class.Status,
		})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return lessName(records[i].StudentFullname, records[j].StudentFullname)
	})
	return records, nil
}

// CriticalAlerts lists overdue students with a positive balance who are at least minDays late.
// A minDays <= 0 uses the configured alert threshold.
func (svc *Service) CriticalAlerts(ctx context.Context, minDays int) ([]CriticalAlert, error) {
	if minDays <= 0 {
		minDays = svc.alertDays
	}
	snap, err := svc.load(ctx)
	if err != nil {
		return nil, err
	}

	alerts := make([]CriticalAlert, 0)
	for _, e := range svc.overdue(svc.evaluate(snap, svc.now(), svc.lookahead)) {
		if e.class.DaysOverdue < minDays || !e.class.Remaining.IsPositive() {
			continue
		}
		alerts = append(alerts, CriticalAlert{
			StudentID:       e.student.ID,
			Fullname:        e.student.Fullname,
			PhoneNumber:     e.student.PhoneNumber,
			DaysOverdue:     e.class.DaysOverdue,
			RemainingAmount: e.class.Remaining,
			Groups:          groupRefs(e.groups),
		})
	}
	return alerts, nil
}

func lessName(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
