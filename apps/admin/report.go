package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/tuition/services/export"
)

func (cli *commandLine) writeJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable prints a tab-aligned table, header first.
func (cli *commandLine) writeTable(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func (cli *commandLine) overdue(format string) error {
	records, err := cli.debtSvc.OverdueStudents(context.Background())
	if err != nil {
		return errors.Wrap(err, "computing overdue students")
	}
	if format == formatJSON {
		return cli.writeJSON(records)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.ID),
			r.Fullname,
			r.PhoneNumber,
			strconv.Itoa(r.PaymentDue),
			strconv.Itoa(r.DaysOverdue),
			r.RemainingAmount.StringFixed(2),
			r.LastPaymentDate.String(),
			string(r.Severity),
		})
	}
	return cli.writeTable([]string{"ID", "NAME", "PHONE", "DUE", "DAYS", "REMAINING", "LAST PAID", "SEVERITY"}, rows)
}

func (cli *commandLine) upcoming(days int, format string) error {
	records, err := cli.debtSvc.UpcomingPayments(context.Background(), days)
	if err != nil {
		return errors.Wrap(err, "computing upcoming payments")
	}
	if format == formatJSON {
		return cli.writeJSON(records)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.ID),
			r.Fullname,
			r.PhoneNumber,
			strconv.Itoa(r.PaymentDue),
			strconv.Itoa(r.DaysUntilDue),
		})
	}
	return cli.writeTable([]string{"ID", "NAME", "PHONE", "DUE", "IN DAYS"}, rows)
}

func (cli *commandLine) debts(studentID int, format string) error {
	var ids []int
	if studentID > 0 {
		ids = append(ids, studentID)
	}
	records, err := cli.debtSvc.StudentMonthlyDebts(context.Background(), ids...)
	if err != nil {
		return errors.Wrap(err, "computing monthly debts")
	}
	if format == formatJSON {
		return cli.writeJSON(records)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		titles := make([]string, 0, len(r.Groups))
		for _, g := range r.Groups {
			titles = append(titles, g.Title)
		}
		rows = append(rows, []string{
			strconv.Itoa(r.StudentID),
			r.StudentFullname,
			strings.Join(titles, ", "),
			r.ExpectedAmount.StringFixed(2),
			r.PaidThisMonth.StringFixed(2),
			r.TotalMonthlyAmount.StringFixed(2),
			strconv.Itoa(r.DaysOverdue),
			string(r.Status),
		})
	}
	return cli.writeTable([]string{"ID", "NAME", "GROUPS", "EXPECTED", "PAID", "REMAINING", "DAYS", "STATUS"}, rows)
}

func (cli *commandLine) export(report, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = errors.Wrap(cErr, "closing export file")
		}
	}()

	ctx := context.Background()
	var n int
	switch report {
	case "overdue":
		records, err := cli.debtSvc.OverdueStudents(ctx)
		if err != nil {
			return errors.Wrap(err, "computing overdue students")
		}
		n = len(records)
		if err = exportsvc.WriteOverdue(f, records); err != nil {
			return err
		}
	case "debts":
		records, err := cli.debtSvc.StudentMonthlyDebts(ctx)
		if err != nil {
			return errors.Wrap(err, "computing monthly debts")
		}
		n = len(records)
		if err = exportsvc.WriteMonthlyDebts(f, records); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown report %q", report)
	}

	fmt.Fprintf(cli.out, "wrote %d %s records to %s\n", n, report, path)
	return nil
}

func (cli *commandLine) digest() error {
	dg, err := cli.digestSvc.RunDigest(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d overdue students (%d warning, %d critical)\n", dg.Total, dg.Warning, dg.Critical)
	if dg.File != "" {
		fmt.Fprintf(cli.out, "saved to %s\n", dg.File)
	}
	if dg.Emailed > 0 {
		fmt.Fprintf(cli.out, "emailed to %d recipients\n", dg.Emailed)
	}
	return nil
}
