package debt

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/ledger"
)

// PaymentSummary aggregates one student's payments for a billing period.
type PaymentSummary struct {
	Paid     decimal.Decimal // sum of amounts attributed to the period
	Expected decimal.Decimal // sum of course_price_at_payment of those payments
	Count    int             // payments attributed to the period

	// over all periods
	LastPaymentDate   core.Date
	LastPaymentPeriod core.Period
}

// Aggregate sums the payments attributed to period. The most recent payment
// (latest date, then highest id) gives LastPaymentDate and LastPaymentPeriod.
func Aggregate(payments []ledger.Payment, period core.Period) PaymentSummary {
	sum := PaymentSummary{Paid: decimal.Zero, Expected: decimal.Zero}

	var last *ledger.Payment
	for i := range payments {
		p := &payments[i]
		if p.Period == period {
			sum.Paid = sum.Paid.Add(p.Amount)
			sum.Expected = sum.Expected.Add(p.CoursePriceAtPayment)
			sum.Count++
		}
		if last == nil || p.Date.After(last.Date.Time) || (p.Date.Equal(last.Date.Time) && p.ID > last.ID) {
			last = p
		}
	}
	if last != nil {
		sum.LastPaymentDate = last.Date
		sum.LastPaymentPeriod = last.Period
	}
	return sum
}
