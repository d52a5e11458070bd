package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/core/payment"
	"github.com/trezcool/tuition/core/student"
	"github.com/trezcool/tuition/storage/database"
)

// PrepareDB opens a private, migrated in-memory sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()
	db, err := database.Open(&core.Config{
		Database: core.DatabaseConfig{
			Engine: core.EngineSQLite,
			Path:   name + "?mode=memory&cache=shared",
		},
	})
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateStudent(t *testing.T, repo student.Repository, fullname string, paymentDue int, createdAt ...time.Time) student.Student {
	t.Helper()

	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = core.Timestamp{Time: createdAt[0].UTC()}
	}
	s, err := repo.CreateStudent(context.Background(), student.Student{
		Fullname:    fullname,
		PhoneNumber: "+243 81 000 0000",
		PaymentDue:  paymentDue,
		CreatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateGroup(t *testing.T, repo group.Repository, title, price string, studentIDs ...int) group.Group {
	t.Helper()

	g, err := repo.CreateGroup(context.Background(), group.Group{
		Title:       title,
		CoursePrice: decimal.RequireFromString(price),
		CreatedAt:   core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	if len(studentIDs) > 0 {
		if err = repo.ReplaceStudents(context.Background(), g.ID, studentIDs); err != nil {
			t.Fatalf("CreateGroup() failed: %v", err)
		}
		g.StudentsCount = len(studentIDs)
	}
	return g
}

// CreatePayment records amount for the student in grp on date (YYYY-MM-DD).
// Like payment.Service.Create, it snapshots the group's course price; the period defaults to date's month.
func CreatePayment(t *testing.T, repo payment.Repository, studentID int, grp group.Group, date, amount string, period ...string) payment.Payment {
	t.Helper()

	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	p := payment.Payment{
		Date:                 d,
		Amount:               decimal.RequireFromString(amount),
		StudentID:            studentID,
		GroupID:              grp.ID,
		CoursePriceAtPayment: grp.CoursePrice,
		PaymentPeriod:        d.Period(),
		PaymentType:          payment.TypeCash,
		CreatedAt:            core.Now(),
	}
	if len(period) > 0 {
		if p.PaymentPeriod, err = core.ParsePeriod(period[0]); err != nil {
			t.Fatalf("CreatePayment() failed: %v", err)
		}
	}
	if p, err = repo.CreatePayment(context.Background(), p); err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return p
}
