// Package ledger loads a consistent snapshot of students, groups, enrollments and payments
// for the report engines. Rows are read raw and parsed in Go so a single malformed row
// can be skipped instead of failing a whole report.
package ledger

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core"
)

// Store reads every ledger row inside one read transaction.
type Store interface {
	Load(ctx context.Context) (Raw, error)
}

type (
	RawStudent struct {
		ID          int            `db:"id"`
		Fullname    string         `db:"fullname"`
		PhoneNumber string         `db:"phone_number"`
		PaymentDue  sql.NullInt64  `db:"payment_due"`
		CreatedAt   sql.NullString `db:"created_at"`
	}

	RawGroup struct {
		ID          int            `db:"id"`
		Title       string         `db:"title"`
		CoursePrice sql.NullString `db:"course_price"`
		CreatedAt   sql.NullString `db:"created_at"`
	}

	RawEnrollment struct {
		StudentID int `db:"student_id"`
		GroupID   int `db:"group_id"`
	}

	RawPayment struct {
		ID                   int            `db:"id"`
		StudentID            int            `db:"student_id"`
		GroupID              int            `db:"group_id"`
		Date                 sql.NullString `db:"date"`
		Amount               sql.NullString `db:"amount"`
		CoursePriceAtPayment sql.NullString `db:"course_price_at_payment"`
		PaymentPeriod        sql.NullString `db:"payment_period"`
	}

	Raw struct {
		Students    []RawStudent
		Groups      []RawGroup
		Enrollments []RawEnrollment
		Payments    []RawPayment
	}
)

type (
	Student struct {
		ID          int
		Fullname    string
		PhoneNumber string
		PaymentDue  int
		CreatedAt   time.Time // zero when unreadable
	}

	Group struct {
		ID          int             `json:"id"`
		Title       string          `json:"title"`
		CoursePrice decimal.Decimal `json:"course_price"`
		CreatedAt   time.Time       `json:"-"`
	}

	Payment struct {
		ID                   int
		StudentID            int
		GroupID              int
		Date                 core.Date
		Amount               decimal.Decimal
		CoursePriceAtPayment decimal.Decimal
		// Period is the billing month the payment counts toward:
		// its payment_period, or the month of Date when none was recorded.
		Period core.Period
	}

	// Snapshot is the parsed, indexed ledger. Students, Groups and Payments are ordered by id.
	Snapshot struct {
		Students []Student
		Groups   []Group
		Payments []Payment

		groups     map[int]Group
		enrolled   map[int][]int // student id -> group ids
		rosters    map[int][]int // group id -> student ids
		byStudent  map[int][]Payment
		skippedRow int
	}
)

// Group returns the group with the given id.
func (snap *Snapshot) Group(id int) (Group, bool) {
	g, ok := snap.groups[id]
	return g, ok
}

// GroupsOf returns the groups a student is currently enrolled in, ordered by id.
func (snap *Snapshot) GroupsOf(studentID int) []Group {
	ids := snap.enrolled[studentID]
	groups := make([]Group, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, snap.groups[id])
	}
	return groups
}

// StudentsOf returns the ids of the students enrolled in a group.
func (snap *Snapshot) StudentsOf(groupID int) []int {
	return snap.rosters[groupID]
}

// PaymentsOf returns every payment of a student, ordered by id.
func (snap *Snapshot) PaymentsOf(studentID int) []Payment {
	return snap.byStudent[studentID]
}

// Skipped is the number of malformed rows left out of the snapshot.
func (snap *Snapshot) Skipped() int {
	return snap.skippedRow
}

// Load reads the raw ledger from store and parses it.
func Load(ctx context.Context, store Store, logger core.Logger) (*Snapshot, error) {
	if store == nil {
		return nil, core.ErrStoreUnavailable
	}
	raw, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading ledger")
	}
	return Parse(raw, logger), nil
}

// Parse turns raw rows into a Snapshot. Malformed rows are skipped with a warning:
//   - students with a missing or out of range payment_due
//   - groups with an unreadable or negative course_price
//   - payments with an unreadable date, amount, course_price_at_payment or payment_period
//
// Enrollments and payments pointing at a skipped row are dropped with it.
func Parse(raw Raw, logger core.Logger) *Snapshot {
	snap := &Snapshot{
		Students:  make([]Student, 0, len(raw.Students)),
		Groups:    make([]Group, 0, len(raw.Groups)),
		Payments:  make([]Payment, 0, len(raw.Payments)),
		groups:    make(map[int]Group, len(raw.Groups)),
		enrolled:  make(map[int][]int),
		rosters:   make(map[int][]int),
		byStudent: make(map[int][]Payment),
	}
	skip := func(kind string, id int, err error) {
		snap.skippedRow++
		if logger != nil {
			logger.Warn("skipping malformed "+kind, err, map[string]interface{}{kind + "_id": id})
		}
	}

	students := make(map[int]bool, len(raw.Students))
	for _, rs := range raw.Students {
		s, err := parseStudent(rs)
		if err != nil {
			skip("student", rs.ID, err)
			continue
		}
		students[s.ID] = true
		snap.Students = append(snap.Students, s)
	}

	for _, rg := range raw.Groups {
		g, err := parseGroup(rg)
		if err != nil {
			skip("group", rg.ID, err)
			continue
		}
		snap.groups[g.ID] = g
		snap.Groups = append(snap.Groups, g)
	}

	for _, re := range raw.Enrollments {
		if _, ok := snap.groups[re.GroupID]; !ok || !students[re.StudentID] {
			continue
		}
		snap.enrolled[re.StudentID] = append(snap.enrolled[re.StudentID], re.GroupID)
		snap.rosters[re.GroupID] = append(snap.rosters[re.GroupID], re.StudentID)
	}

	for _, rp := range raw.Payments {
		if !students[rp.StudentID] {
			continue
		}
		p, err := parsePayment(rp)
		if err != nil {
			skip("payment", rp.ID, err)
			continue
		}
		snap.Payments = append(snap.Payments, p)
		snap.byStudent[p.StudentID] = append(snap.byStudent[p.StudentID], p)
	}

	sort.Slice(snap.Students, func(i, j int) bool { return snap.Students[i].ID < snap.Students[j].ID })
	sort.Slice(snap.Groups, func(i, j int) bool { return snap.Groups[i].ID < snap.Groups[j].ID })
	sort.Slice(snap.Payments, func(i, j int) bool { return snap.Payments[i].ID < snap.Payments[j].ID })
	for _, ids := range snap.enrolled {
		sort.Ints(ids)
	}
	for _, ids := range snap.rosters {
		sort.Ints(ids)
	}
	for _, ps := range snap.byStudent {
		sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
	}
	return snap
}

func parseStudent(rs RawStudent) (Student, error) {
	if !rs.PaymentDue.Valid || rs.PaymentDue.Int64 < 1 || rs.PaymentDue.Int64 > 31 {
		return Student{}, errors.Errorf("invalid payment_due %v", rs.PaymentDue.Int64)
	}
	s := Student{
		ID:          rs.ID,
		Fullname:    rs.Fullname,
		PhoneNumber: rs.PhoneNumber,
		PaymentDue:  int(rs.PaymentDue.Int64),
	}
	if rs.CreatedAt.Valid {
		s.CreatedAt, _ = core.ParseTimestamp(rs.CreatedAt.String)
	}
	return s, nil
}

func parseGroup(rg RawGroup) (Group, error) {
	price, err := parseAmount(rg.CoursePrice, "course_price")
	if err != nil {
		return Group{}, err
	}
	g := Group{ID: rg.ID, Title: rg.Title, CoursePrice: price}
	if rg.CreatedAt.Valid {
		g.CreatedAt, _ = core.ParseTimestamp(rg.CreatedAt.String)
	}
	return g, nil
}

func parsePayment(rp RawPayment) (Payment, error) {
	if !rp.Date.Valid {
		return Payment{}, errors.New("missing date")
	}
	date, err := core.ParseDate(rp.Date.String)
	if err != nil {
		return Payment{}, err
	}
	amount, err := parseAmount(rp.Amount, "amount")
	if err != nil {
		return Payment{}, err
	}
	expected, err := parseAmount(rp.CoursePriceAtPayment, "course_price_at_payment")
	if err != nil {
		return Payment{}, err
	}

	period := date.Period()
	if rp.PaymentPeriod.Valid && core.CleanString(rp.PaymentPeriod.String) != "" {
		if period, err = core.ParsePeriod(rp.PaymentPeriod.String); err != nil {
			return Payment{}, err
		}
	}

	return Payment{
		ID:                   rp.ID,
		StudentID:            rp.StudentID,
		GroupID:              rp.GroupID,
		Date:                 date,
		Amount:               amount,
		CoursePriceAtPayment: expected,
		Period:               period,
	}, nil
}

func parseAmount(s sql.NullString, field string) (decimal.Decimal, error) {
	if !s.Valid {
		return decimal.Zero, errors.Errorf("missing %s", field)
	}
	d, err := decimal.NewFromString(core.CleanString(s.String))
	if err != nil {
		return decimal.Zero, errors.Errorf("invalid %s %q", field, s.String)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Errorf("negative %s %s", field, d)
	}
	return d, nil
}
