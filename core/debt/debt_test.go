package debt

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/ledger"
)

type fakeStore struct {
	raw ledger.Raw
	err error
}

func (fs *fakeStore) Load(context.Context) (ledger.Raw, error) {
	return fs.raw, fs.err
}

func (fs *fakeStore) student(id, due int, name string) {
	fs.raw.Students = append(fs.raw.Students, ledger.RawStudent{
		ID:          id,
		Fullname:    name,
		PhoneNumber: "+100" + name,
		PaymentDue:  sql.NullInt64{Int64: int64(due), Valid: true},
		CreatedAt:   nullStr("2023-01-15T10:00:00Z"),
	})
}

func (fs *fakeStore) group(id int, title, price string) {
	fs.raw.Groups = append(fs.raw.Groups, ledger.RawGroup{
		ID:          id,
		Title:       title,
		CoursePrice: nullStr(price),
		CreatedAt:   nullStr("2023-01-15T10:00:00Z"),
	})
}

func (fs *fakeStore) enroll(studentID int, groupIDs ...int) {
	for _, gID := range groupIDs {
		fs.raw.Enrollments = append(fs.raw.Enrollments, ledger.RawEnrollment{StudentID: studentID, GroupID: gID})
	}
}

func (fs *fakeStore) pay(id, studentID, groupID int, date, amount, expected, period string) {
	fs.raw.Payments = append(fs.raw.Payments, ledger.RawPayment{
		ID:                   id,
		StudentID:            studentID,
		GroupID:              groupID,
		Date:                 nullStr(date),
		Amount:               nullStr(amount),
		CoursePriceAtPayment: nullStr(expected),
		PaymentPeriod:        nullStr(period),
	})
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type loggerMock struct {
	warnings []string
}

func (l *loggerMock) Debug(string, ...interface{}) {}
func (l *loggerMock) Info(string, ...interface{})  {}
func (l *loggerMock) Warn(msg string, _ ...interface{}) {
	l.warnings = append(l.warnings, msg)
}
func (l *loggerMock) Error(string, ...interface{}) {}
func (l *loggerMock) Fatal(string, ...interface{}) {}

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// setNow freezes the clock for the duration of the test.
func setNow(t *testing.T, now time.Time) {
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
}

func newTestService(store ledger.Store, logger core.Logger) *Service {
	conf := &core.Config{
		Timezone: "UTC",
		Reports:  core.ReportsConfig{UpcomingDays: 3, CriticalAfterDays: 5, AlertDays: 7},
	}
	return NewService(store, logger, conf)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		due           int
		now           time.Time
		wantEffective int
		wantOverdue   int
		wantUntil     int
		wantPastDue   bool
	}{
		{name: "31st in april", due: 31, now: at(2023, time.April, 10), wantEffective: 30, wantUntil: 20},
		{name: "31st in february", due: 31, now: at(2023, time.February, 28), wantEffective: 28, wantPastDue: true},
		{name: "30th in leap february", due: 30, now: at(2024, time.February, 29), wantEffective: 29, wantPastDue: true},
		{name: "29th in february", due: 29, now: at(2023, time.February, 10), wantEffective: 28, wantUntil: 18},
		{name: "past due", due: 15, now: at(2023, time.April, 20), wantEffective: 15, wantOverdue: 5, wantPastDue: true},
		{name: "before due", due: 15, now: at(2023, time.April, 10), wantEffective: 15, wantUntil: 5},
		{name: "due today", due: 1, now: at(2023, time.April, 1), wantEffective: 1, wantPastDue: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.due, tt.now)
			assert.Equal(t, tt.wantEffective, got.Effective, "Effective")
			assert.Equal(t, tt.wantOverdue, got.DaysOverdue(), "DaysOverdue")
			assert.Equal(t, tt.wantUntil, got.DaysUntilDue(), "DaysUntilDue")
			assert.Equal(t, tt.wantPastDue, got.IsPastDue(), "IsPastDue")
		})
	}
}

func TestNormalize_neverNegative(t *testing.T) {
	for _, month := range []time.Time{at(2023, time.February, 1), at(2024, time.February, 1), at(2023, time.April, 1), at(2023, time.May, 1)} {
		for day := month; day.Month() == month.Month(); day = day.AddDate(0, 0, 1) {
			for due := 1; due <= 31; due++ {
				dd := Normalize(due, day)
				if dd.DaysOverdue() < 0 || dd.DaysUntilDue() < 0 {
					t.Fatalf("Normalize(%d, %v) gave negative days: %+v", due, day, dd)
				}
				if dd.Effective > dd.LastDay || dd.Effective < 1 {
					t.Fatalf("Normalize(%d, %v) effective day out of month: %+v", due, day, dd)
				}
			}
		}
	}
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityWarning, SeverityOf(0, 5))
	assert.Equal(t, SeverityWarning, SeverityOf(5, 5))
	assert.Equal(t, SeverityCritical, SeverityOf(6, 5))
}

func TestClassify_balanceMonotonicity(t *testing.T) {
	now := at(2023, time.April, 20)
	period := core.PeriodOf(now)
	expected := dec("100")

	prev := expected.Add(decimal.NewFromInt(1))
	for paid := 0; paid <= 150; paid += 10 {
		c := Classify(Input{
			Due:               Normalize(15, now),
			Expected:          expected,
			Paid:              decimal.NewFromInt(int64(paid)),
			LastPaymentPeriod: period,
			CurrentPeriod:     period,
		}, DefaultLookahead)

		if c.Remaining.GreaterThan(prev) {
			t.Fatalf("paid %d: remaining %s increased from %s", paid, c.Remaining, prev)
		}
		prev = c.Remaining
		if c.Remaining.IsPositive() {
			assert.Equal(t, StatusOverdue, c.Status, "paid %d", paid)
		} else {
			assert.Equal(t, StatusCurrent, c.Status, "paid %d", paid)
		}
	}
}

func TestClassify(t *testing.T) {
	april := core.Period{Year: 2023, Month: time.April}
	march := core.Period{Year: 2023, Month: time.March}
	may := core.Period{Year: 2023, Month: time.May}

	tests := []struct {
		name      string
		now       time.Time
		due       int
		expected  string
		paid      string
		last      core.Period
		lookahead int
		want      Status
		wantDays  int
	}{
		{name: "never paid, past due", now: at(2023, time.April, 20), due: 15, expected: "100", paid: "0", want: StatusOverdue, wantDays: 5},
		{name: "paid last month, past due", now: at(2023, time.April, 20), due: 15, expected: "100", paid: "0", last: march, want: StatusOverdue, wantDays: 5},
		{name: "paid in full", now: at(2023, time.April, 20), due: 15, expected: "100", paid: "100", last: april, want: StatusCurrent},
		{name: "overpaid", now: at(2023, time.April, 20), due: 15, expected: "100", paid: "120", last: april, want: StatusCurrent},
		{name: "partially paid", now: at(2023, time.April, 20), due: 15, expected: "100", paid: "60", last: april, want: StatusOverdue, wantDays: 5},
		{name: "paid ahead but nothing this month", now: at(2023, time.April, 20), due: 15, expected: "100", paid: "0", last: may, want: StatusOverdue, wantDays: 5},
		{name: "no groups, never paid", now: at(2023, time.April, 20), due: 15, expected: "0", paid: "0", want: StatusOverdue, wantDays: 5},
		{name: "due within lookahead", now: at(2023, time.April, 12), due: 15, expected: "100", paid: "0", lookahead: 3, want: StatusUpcoming},
		{name: "due beyond lookahead", now: at(2023, time.April, 10), due: 15, expected: "100", paid: "0", lookahead: 3, want: StatusCurrent},
		{name: "already paid before due", now: at(2023, time.April, 12), due: 15, expected: "100", paid: "40", last: april, lookahead: 3, want: StatusCurrent},
		{name: "due on the day", now: at(2023, time.April, 15), due: 15, expected: "100", paid: "0", want: StatusOverdue, wantDays: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(Input{
				Due:               Normalize(tt.due, tt.now),
				Expected:          dec(tt.expected),
				Paid:              dec(tt.paid),
				LastPaymentPeriod: tt.last,
				CurrentPeriod:     core.PeriodOf(tt.now),
			}, tt.lookahead)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.wantDays, got.DaysOverdue)
		})
	}
}

func TestAggregate(t *testing.T) {
	april := core.Period{Year: 2023, Month: time.April}
	march := core.Period{Year: 2023, Month: time.March}
	may := core.Period{Year: 2023, Month: time.May}
	payments := []ledger.Payment{
		{ID: 1, Date: core.DateOf(2023, time.March, 10), Amount: dec("100"), CoursePriceAtPayment: dec("100"), Period: march},
		{ID: 2, Date: core.DateOf(2023, time.April, 2), Amount: dec("50"), CoursePriceAtPayment: dec("100"), Period: march}, // backdated
		{ID: 3, Date: core.DateOf(2023, time.April, 2), Amount: dec("30"), CoursePriceAtPayment: dec("90"), Period: april},
		{ID: 4, Date: core.DateOf(2023, time.March, 28), Amount: dec("70"), CoursePriceAtPayment: dec("70"), Period: april}, // in advance
		{ID: 5, Date: core.DateOf(2023, time.March, 30), Amount: dec("10"), CoursePriceAtPayment: dec("70"), Period: may},
	}

	got := Aggregate(payments, april)
	assert.True(t, dec("100").Equal(got.Paid), "Paid = %s", got.Paid)
	assert.True(t, dec("160").Equal(got.Expected), "Expected = %s", got.Expected)
	assert.Equal(t, 2, got.Count)
	// latest date, highest id on ties
	assert.Equal(t, "2023-04-02", got.LastPaymentDate.String())
	assert.Equal(t, april, got.LastPaymentPeriod)

	empty := Aggregate(nil, april)
	assert.True(t, empty.Paid.IsZero())
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.LastPaymentDate.IsZero())
	assert.True(t, empty.LastPaymentPeriod.IsZero())
}

func TestExpectedAmount(t *testing.T) {
	groups := []ledger.Group{{ID: 1, CoursePrice: dec("50")}, {ID: 2, CoursePrice: dec("70")}}

	assert.True(t, dec("120").Equal(ExpectedAmount(groups, PaymentSummary{})))
	assert.True(t, dec("0").Equal(ExpectedAmount(nil, PaymentSummary{})))
	// snapshot wins over the live price
	assert.True(t, dec("45").Equal(ExpectedAmount(groups, PaymentSummary{Count: 1, Expected: dec("45")})))
}

func TestService_scenarioA(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.student(1, 15, "Ada")
	store.group(1, "Go", "100")
	store.enroll(1, 1)

	got, err := newTestService(store, nil).OverdueStudents(context.Background())
	if err != nil {
		t.Fatalf("OverdueStudents() error = %v", err)
	}
	if assert.Len(t, got, 1) {
		assert.Equal(t, 1, got[0].ID)
		assert.Equal(t, 5, got[0].DaysOverdue)
		assert.True(t, dec("100").Equal(got[0].RemainingAmount))
		assert.Equal(t, SeverityWarning, got[0].Severity)
		assert.True(t, got[0].LastPaymentDate.IsZero())
	}
}

func TestService_scenarioB(t *testing.T) {
	setNow(t, at(2023, time.April, 10))
	store := new(fakeStore)
	store.student(1, 15, "Ada")
	store.group(1, "Go", "100")
	store.enroll(1, 1)
	svc := newTestService(store, nil)
	ctx := context.Background()

	got, err := svc.UpcomingPayments(ctx, 3)
	assert.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.UpcomingPayments(ctx, 7)
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, 5, got[0].DaysUntilDue)
	}

	overdue, err := svc.OverdueStudents(ctx)
	assert.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestService_scenarioC(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.student(1, 15, "Ada")
	store.group(1, "Go", "100")
	store.enroll(1, 1)
	store.pay(1, 1, 1, "2023-04-05", "60", "100", "2023-04")

	got, err := newTestService(store, nil).OverdueStudents(context.Background())
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.True(t, dec("40").Equal(got[0].RemainingAmount), "remaining = %s", got[0].RemainingAmount)
		assert.Equal(t, "2023-04-05", got[0].LastPaymentDate.String())
	}
}

func TestService_scenarioD(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.student(1, 15, "Ada")
	store.group(1, "Go", "50")
	store.group(2, "Rust", "70")
	store.enroll(1, 1, 2)

	got, err := newTestService(store, nil).StudentMonthlyDebts(context.Background())
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.True(t, dec("120").Equal(got[0].ExpectedAmount))
		assert.True(t, dec("120").Equal(got[0].TotalCoursePrice))
		assert.True(t, dec("120").Equal(got[0].TotalMonthlyAmount))
		assert.Equal(t, 2, got[0].GroupsCount)
		assert.Equal(t, []GroupRef{{ID: 1, Title: "Go", CoursePrice: dec("50")}, {ID: 2, Title: "Rust", CoursePrice: dec("70")}}, got[0].Groups)
		assert.True(t, got[0].IsOverdue)
		assert.Equal(t, 5, got[0].DaysOverdue)
	}
}

func TestService_priceEditAfterPayment(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.student(1, 15, "Ada")
	store.group(1, "Go", "150") // was 100 when paid
	store.enroll(1, 1)
	store.pay(1, 1, 1, "2023-04-10", "100", "100", "2023-04")
	svc := newTestService(store, nil)
	ctx := context.Background()

	overdue, err := svc.OverdueStudents(ctx)
	assert.NoError(t, err)
	assert.Empty(t, overdue)

	debts, err := svc.StudentMonthlyDebts(ctx, 1)
	assert.NoError(t, err)
	if assert.Len(t, debts, 1) {
		assert.True(t, dec("100").Equal(debts[0].ExpectedAmount))
		assert.True(t, dec("150").Equal(debts[0].TotalCoursePrice))
		assert.True(t, debts[0].TotalMonthlyAmount.IsZero())
		assert.Equal(t, StatusCurrent, debts[0].Status)
	}
}

func TestService_ordering(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.group(1, "Go", "100")
	store.group(2, "Rust", "200")
	store.student(1, 15, "Zoe") // 5 days, 100
	store.student(2, 10, "Bob") // 10 days, 100
	store.student(3, 15, "Amy") // 5 days, 100
	store.student(4, 15, "Kim") // 5 days, 300
	store.enroll(1, 1)
	store.enroll(2, 1)
	store.enroll(3, 1)
	store.enroll(4, 1, 2)

	got, err := newTestService(store, nil).OverdueStudents(context.Background())
	assert.NoError(t, err)
	ids := make([]int, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{2, 4, 3, 1}, ids)
	assert.Equal(t, SeverityCritical, got[0].Severity)
}

func TestService_disjointness(t *testing.T) {
	store := new(fakeStore)
	store.group(1, "Go", "100")
	for due := 1; due <= 31; due++ {
		store.student(due, due, "S")
		store.enroll(due, 1)
		if due%3 == 0 {
			store.pay(due, due, 1, "2023-04-01", "40", "100", "2023-04")
		}
	}
	svc := newTestService(store, nil)
	ctx := context.Background()

	for day := at(2023, time.April, 1); day.Month() == time.April; day = day.AddDate(0, 0, 1) {
		setNow(t, day)
		overdue, err := svc.OverdueStudents(ctx)
		assert.NoError(t, err)
		upcoming, err := svc.UpcomingPayments(ctx, 31)
		assert.NoError(t, err)

		seen := make(map[int]bool, len(overdue))
		for _, r := range overdue {
			seen[r.ID] = true
		}
		for _, r := range upcoming {
			if seen[r.ID] {
				t.Fatalf("%v: student %d is both overdue and upcoming", day, r.ID)
			}
		}
	}
}

func TestService_GroupOverdueRates(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.group(1, "Go", "100")
	store.group(2, "Empty", "100")
	store.group(3, "Rust", "100")
	store.student(1, 15, "Ada") // overdue
	store.student(2, 25, "Bob") // not yet due
	store.student(3, 15, "Cy")  // overdue
	store.enroll(1, 1, 3)
	store.enroll(2, 1)
	store.enroll(3, 3)

	got, err := newTestService(store, nil).GroupOverdueRates(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []GroupOverdueRecord{
		{GroupID: 3, GroupTitle: "Rust", OverdueCount: 2, TotalStudents: 2, OverduePercentage: 100},
		{GroupID: 1, GroupTitle: "Go", OverdueCount: 1, TotalStudents: 2, OverduePercentage: 50},
		{GroupID: 2, GroupTitle: "Empty", OverdueCount: 0, TotalStudents: 0, OverduePercentage: 0},
	}, got)
}

func TestService_DashboardStats(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.group(1, "Go", "100")
	store.student(1, 15, "Ada") // 5 days
	store.student(2, 10, "Bob") // 10 days
	store.student(3, 18, "Cy")  // 2 days
	store.student(4, 25, "Dan") // not due
	store.enroll(1, 1)
	store.enroll(2, 1)
	store.enroll(3, 1)
	store.enroll(4, 1)
	store.raw.Students[3].CreatedAt = nullStr("2023-04-02 08:00:00")
	store.pay(1, 4, 1, "2023-04-03", "100", "100", "2023-04")
	store.pay(2, 4, 1, "2023-03-31", "25.5", "100", "2023-04")

	got, err := newTestService(store, nil).DashboardStats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4, got.TotalStudents)
	assert.Equal(t, 1, got.TotalGroups)
	assert.Equal(t, 2, got.TotalPayments)
	assert.True(t, dec("125.5").Equal(got.TotalPaymentAmount))
	assert.Equal(t, 1, got.StudentsThisMonth)
	assert.Equal(t, 0, got.GroupsThisMonth)
	assert.Equal(t, 1, got.PaymentsThisMonth) // by calendar date
	assert.True(t, dec("100").Equal(got.PaymentAmountThisMonth))
	assert.Equal(t, 3, got.OverduePaymentsCount)
	assert.Equal(t, OverdueSummary{Total: 3, Warning: 2, Critical: 1, AvgDaysOverdue: 5.7}, got.Overdue)
}

func TestService_DebtorSummary_empty(t *testing.T) {
	setNow(t, at(2023, time.April, 1))
	store := new(fakeStore)
	store.student(1, 15, "Ada")

	got, err := newTestService(store, nil).DebtorSummary(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, OverdueSummary{}, got)
}

func TestService_CriticalAlerts(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.group(1, "Go", "100")
	store.student(1, 10, "Ada") // 10 days, owes 100
	store.student(2, 13, "Bob") // 7 days, owes 100
	store.student(3, 14, "Cy")  // 6 days
	store.student(4, 5, "Dan")  // 15 days, no groups: owes nothing
	store.enroll(1, 1)
	store.enroll(2, 1)
	store.enroll(3, 1)
	svc := newTestService(store, nil)

	got, err := svc.CriticalAlerts(context.Background(), 0)
	assert.NoError(t, err)
	if assert.Len(t, got, 2) {
		assert.Equal(t, 1, got[0].StudentID)
		assert.Equal(t, 2, got[1].StudentID)
		assert.Equal(t, []GroupRef{{ID: 1, Title: "Go", CoursePrice: dec("100")}}, got[0].Groups)
	}

	got, err = svc.CriticalAlerts(context.Background(), 12)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_malformedRows(t *testing.T) {
	setNow(t, at(2023, time.April, 20))
	store := new(fakeStore)
	store.group(1, "Go", "100")
	store.group(2, "Broken", "a lot")
	store.student(1, 15, "Ada")
	store.student(2, 0, "Bad due")
	store.student(3, 15, "Cy")
	store.enroll(1, 1, 2)
	store.enroll(2, 1)
	store.enroll(3, 1)
	store.pay(1, 1, 1, "2023-04-05", "100", "100", "2023-04")
	store.pay(2, 3, 1, "05/04/2023", "100", "100", "2023-04") // unreadable date
	store.pay(3, 3, 1, "2023-04-05", "1e", "100", "2023-04")  // unreadable amount
	store.pay(4, 3, 1, "2023-04-05", "10", "100", "April")    // unreadable period
	logger := new(loggerMock)

	got, err := newTestService(store, logger).OverdueStudents(context.Background())
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, 3, got[0].ID)
		assert.True(t, dec("100").Equal(got[0].RemainingAmount))
	}
	assert.Equal(t, []string{
		"skipping malformed student",
		"skipping malformed group",
		"skipping malformed payment",
		"skipping malformed payment",
		"skipping malformed payment",
	}, logger.warnings)
}

func TestService_storeErrors(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("disk on fire")

	svc := newTestService(&fakeStore{err: storeErr}, nil)
	_, err := svc.OverdueStudents(ctx)
	assert.Equal(t, storeErr, errors.Cause(err))

	_, err = svc.DashboardStats(ctx)
	assert.Equal(t, storeErr, errors.Cause(err))

	svc = newTestService(nil, nil)
	_, err = svc.GroupOverdueRates(ctx)
	assert.Equal(t, core.ErrStoreUnavailable, err)
}
