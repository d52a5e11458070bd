// Package debt derives what every student owes for the current billing period,
// whether they are overdue and by how many days. Nothing here is stored:
// every report recomputes from a fresh ledger snapshot.
package debt

import "time"

// DueDate is a nominal due day resolved against a given day of a given month.
type DueDate struct {
	Nominal    int // payment_due, 1-31
	LastDay    int // days in the month
	Effective  int // Nominal clamped to LastDay
	CurrentDay int
}

// Normalize resolves the nominal due day against now's month.
// A due day past the end of the month falls on the month's last day.
func Normalize(due int, now time.Time) DueDate {
	y, m, d := now.Date()
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()

	eff := due
	if eff > last {
		eff = last
	}
	if eff < 1 {
		eff = 1
	}
	return DueDate{
		Nominal:    due,
		LastDay:    last,
		Effective:  eff,
		CurrentDay: d,
	}
}

// IsPastDue reports whether the due day has been reached. The due day itself counts.
func (dd DueDate) IsPastDue() bool {
	return dd.CurrentDay >= dd.Effective
}

func (dd DueDate) DaysOverdue() int {
	if n := dd.CurrentDay - dd.Effective; n > 0 {
		return n
	}
	return 0
}

func (dd DueDate) DaysUntilDue() int {
	if n := dd.Effective - dd.CurrentDay; n > 0 {
		return n
	}
	return 0
}
