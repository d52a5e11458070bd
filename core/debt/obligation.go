package debt

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core/ledger"
)

// LiveObligation is the monthly charge of the groups a student is enrolled in today.
func LiveObligation(groups []ledger.Group) decimal.Decimal {
	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.CoursePrice)
	}
	return total
}

// ExpectedAmount is what the student is billed for the period: the prices snapshotted
// by this period's payments when there are any, the live obligation otherwise.
// Editing a group's price mid-period does not change a bill already being paid.
func ExpectedAmount(groups []ledger.Group, sum PaymentSummary) decimal.Decimal {
	if sum.Count > 0 {
		return sum.Expected
	}
	return LiveObligation(groups)
}
