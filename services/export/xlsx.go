package exportsvc

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/debt"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	OverdueSheet = "Overdue"
	DebtsSheet   = "Monthly debts"
)

var (
	overdueHeader = []interface{}{
		"ID", "Full name", "Phone number", "Payment due", "Days overdue", "Remaining amount", "Last payment", "Severity",
	}
	debtsHeader = []interface{}{
		"ID", "Full name", "Phone number", "Payment due", "Groups", "Total course price", "Expected amount",
		"Paid this month", "Remaining", "Last payment", "Days overdue", "Status",
	}
)

// writeSheet fills a single-sheet workbook with header and rows, then writes it to w.
func writeSheet(w io.Writer, sheet string, header []interface{}, rows [][]interface{}) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cErr := f.Close(); err == nil && cErr != nil {
			err = errors.Wrap(cErr, "closing workbook")
		}
	}()

	if err = f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err = f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return errors.Wrap(err, "locating last column")
	}
	if err = f.SetCellStyle(sheet, "A1", lastCol+"1", style); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "locating row")
		}
		if err = f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

func dateCell(d core.Date) interface{} {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// WriteOverdue writes the overdue report as an XLSX workbook.
func WriteOverdue(w io.Writer, records []debt.OverdueRecord) error {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.ID,
			r.Fullname,
			r.PhoneNumber,
			r.PaymentDue,
			r.DaysOverdue,
			r.RemainingAmount.InexactFloat64(),
			dateCell(r.LastPaymentDate),
			string(r.Severity),
		})
	}
	return writeSheet(w, OverdueSheet, overdueHeader, rows)
}

// WriteMonthlyDebts writes every student's bill for the current month as an XLSX workbook.
func WriteMonthlyDebts(w io.Writer, records []debt.StudentMonthlyDebt) error {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		titles := ""
		for i, g := range r.Groups {
			if i > 0 {
				titles += ", "
			}
			titles += g.Title
		}
		rows = append(rows, []interface{}{
			r.StudentID,
			r.StudentFullname,
			r.PhoneNumber,
			r.PaymentDue,
			titles,
			r.TotalCoursePrice.InexactFloat64(),
			r.ExpectedAmount.InexactFloat64(),
			r.PaidThisMonth.InexactFloat64(),
			r.TotalMonthlyAmount.InexactFloat64(),
			dateCell(r.LastPaymentDate),
			r.DaysOverdue,
			string(r.Status),
		})
	}
	return writeSheet(w, DebtsSheet, debtsHeader, rows)
}
