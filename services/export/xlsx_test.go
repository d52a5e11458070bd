package exportsvc

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/debt"
)

func readRows(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	return rows
}

func TestWriteOverdue(t *testing.T) {
	var buf bytes.Buffer
	err := WriteOverdue(&buf, []debt.OverdueRecord{
		{
			ID:              3,
			Fullname:        "Ada Lovelace",
			PhoneNumber:     "+1000",
			PaymentDue:      10,
			DaysOverdue:     12,
			RemainingAmount: decimal.RequireFromString("40.5"),
			LastPaymentDate: core.DateOf(2023, time.March, 2),
			Severity:        debt.SeverityCritical,
		},
		{ID: 4, Fullname: "Bob", PaymentDue: 15, DaysOverdue: 2, RemainingAmount: decimal.Zero, Severity: debt.SeverityWarning},
	})
	if !assert.NoError(t, err) {
		return
	}

	rows := readRows(t, &buf, OverdueSheet)
	if assert.Len(t, rows, 3) {
		assert.Equal(t, "Full name", rows[0][1])
		assert.Equal(t, []string{"3", "Ada Lovelace", "+1000", "10", "12", "40.5", "2023-03-02", "critical"}, rows[1])
		assert.Equal(t, "Bob", rows[2][1])
		assert.Equal(t, "", rows[2][6])
		assert.Equal(t, "warning", rows[2][7])
	}
}

func TestWriteMonthlyDebts(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMonthlyDebts(&buf, []debt.StudentMonthlyDebt{
		{
			StudentID:          1,
			StudentFullname:    "Ada",
			PhoneNumber:        "+1000",
			PaymentDue:         5,
			TotalCoursePrice:   decimal.RequireFromString("150"),
			PaidThisMonth:      decimal.RequireFromString("100"),
			ExpectedAmount:     decimal.RequireFromString("150"),
			TotalMonthlyAmount: decimal.RequireFromString("50"),
			GroupsCount:        2,
			Groups:             []debt.GroupRef{{ID: 1, Title: "Go"}, {ID: 2, Title: "Rust"}},
			DaysOverdue:        3,
			IsOverdue:          true,
			Status:             debt.StatusOverdue,
		},
	})
	if !assert.NoError(t, err) {
		return
	}

	rows := readRows(t, &buf, DebtsSheet)
	if assert.Len(t, rows, 2) {
		assert.Len(t, rows[0], len(debtsHeader))
		assert.Equal(t, "Go, Rust", rows[1][4])
		assert.Equal(t, "50", rows[1][8])
		assert.Equal(t, "overdue", rows[1][11])
	}
}

func TestWriteOverdue_empty(t *testing.T) {
	var buf bytes.Buffer
	if assert.NoError(t, WriteOverdue(&buf, nil)) {
		rows := readRows(t, &buf, OverdueSheet)
		assert.Len(t, rows, 1)
	}
}
