package stats

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/ledger"
)

const (
	DefaultMonths   = 6
	MaxMonths       = 120
	DefaultTopLimit = 10
	DefaultCapacity = 20
)

var nowFunc = time.Now // mockable

type (
	MonthlyCount struct {
		Month core.Period `json:"month"`
		Count int         `json:"count"`
	}

	MonthlyPayments struct {
		Month       core.Period     `json:"month"`
		Count       int             `json:"count"`
		TotalAmount decimal.Decimal `json:"total_amount"`
	}

	TopPayer struct {
		ID            int             `json:"id"`
		Fullname      string          `json:"fullname"`
		TotalPaid     decimal.Decimal `json:"total_paid"`
		PaymentsCount int             `json:"payments_count"`
		AvgPayment    decimal.Decimal `json:"avg_payment"` // 2 decimals
	}

	GroupCapacity struct {
		GroupID         int     `json:"group_id"`
		GroupTitle      string  `json:"group_title"`
		CurrentStudents int     `json:"current_students"`
		Capacity        int     `json:"capacity"`
		FillPercentage  float64 `json:"fill_percentage"`
	}
)

type Service struct {
	store    ledger.Store
	logger   core.Logger
	loc      *time.Location
	capacity int
}

func NewService(store ledger.Store, logger core.Logger, conf *core.Config) *Service {
	svc := &Service{store: store, logger: logger, loc: time.Local, capacity: DefaultCapacity}
	if conf != nil {
		svc.loc = conf.Location()
		if conf.Reports.GroupCapacity > 0 {
			svc.capacity = conf.Reports.GroupCapacity
		}
	}
	return svc
}

// lastMonths returns the n periods ending with the current one, oldest first.
// n is capped at MaxMonths.
func (svc *Service) lastMonths(n int) []core.Period {
	if n <= 0 {
		n = DefaultMonths
	} else if n > MaxMonths {
		n = MaxMonths
	}
	current := core.PeriodOf(nowFunc().In(svc.loc))
	months := make([]core.Period, 0, n)
	for i := n - 1; i >= 0; i-- {
		months = append(months, current.AddMonths(-i))
	}
	return months
}

func (svc *Service) monthlyCounts(months int, createdAt func(*ledger.Snapshot) []time.Time, snap *ledger.Snapshot) []MonthlyCount {
	periods := svc.lastMonths(months)
	counts := make(map[core.Period]int, len(periods))
	for _, t := range createdAt(snap) {
		if !t.IsZero() {
			counts[core.PeriodOf(t.In(svc.loc))]++
		}
	}
	res := make([]MonthlyCount, 0, len(periods))
	for _, p := range periods {
		res = append(res, MonthlyCount{Month: p, Count: counts[p]})
	}
	return res
}

// MonthlyStudents counts the students created in each of the last months, missing months at 0.
func (svc *Service) MonthlyStudents(ctx context.Context, months int) ([]MonthlyCount, error) {
	snap, err := ledger.Load(ctx, svc.store, svc.logger)
	if err != nil {
		return nil, err
	}
	return svc.monthlyCounts(months, func(snap *ledger.Snapshot) []time.Time {
		ts := make([]time.Time, 0, len(snap.Students))
		for _, s := range snap.Students {
			ts = append(ts, s.CreatedAt)
		}
		return ts
	}, snap), nil
}

// MonthlyGroups counts the groups created in each of the last months, missing months at 0.
func (svc *Service) MonthlyGroups(ctx context.Context, months int) ([]MonthlyCount, error) {
	snap, err := ledger.Load(ctx, svc.store, svc.logger)
	if err != nil {
		return nil, err
	}
	return svc.monthlyCounts(months, func(snap *ledger.Snapshot) []time.Time {
		ts := make([]time.Time, 0, len(snap.Groups))
		for _, g := range snap.Groups {
			ts = append(ts, g.CreatedAt)
		}
		return ts
	}, snap), nil
}

// MonthlyPayments counts and sums payments by the month of their date.
func (svc *Service) MonthlyPayments(ctx context.Context, months int) ([]MonthlyPayments, error) {
	snap, err := ledger.Load(ctx, svc.store, svc.logger)
	if err != nil {
		return nil, err
	}

	periods := svc.lastMonths(months)
	byMonth := make(map[core.Period]*MonthlyPayments, len(periods))
	res := make([]MonthlyPayments, len(periods))
	for i, p := range periods {
		res[i] = MonthlyPayments{Month: p, TotalAmount: decimal.Zero}
		byMonth[p] = &res[i]
	}
	for _, p := range snap.Payments {
		if mp, ok := byMonth[p.Date.Period()]; ok {
			mp.Count++
			mp.TotalAmount = mp.TotalAmount.Add(p.Amount)
		}
	}
	return res, nil
}

// TopPayingStudents ranks students by total paid. Students who never paid are left out.
func (svc *Service) TopPayingStudents(ctx context.Context, limit int) ([]TopPayer, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	snap, err := ledger.Load(ctx, svc.store, svc.logger)
	if err != nil {
		return nil, err
	}

	payers := make([]TopPayer, 0)
	for _, s := range snap.Students {
		tp := TopPayer{ID: s.ID, Fullname: s.Fullname, TotalPaid: decimal.Zero, AvgPayment: decimal.Zero}
		for _, p := range snap.PaymentsOf(s.ID) {
			tp.TotalPaid = tp.TotalPaid.Add(p.Amount)
			tp.PaymentsCount++
		}
		if !tp.TotalPaid.IsPositive() {
			continue
		}
		tp.AvgPayment = tp.TotalPaid.Div(decimal.NewFromInt(int64(tp.PaymentsCount))).Round(2)
		payers = append(payers, tp)
	}
	sort.SliceStable(payers, func(i, j int) bool {
		if cmp := payers[i].TotalPaid.Cmp(payers[j].TotalPaid); cmp != 0 {
			return cmp > 0
		}
		return strings.ToLower(payers[i].Fullname) < strings.ToLower(payers[j].Fullname)
	})
	if len(payers) > limit {
		payers = payers[:limit]
	}
	return payers, nil
}

// GroupCapacity reports how full each group is against capacity seats.
// A capacity <= 0 uses the configured default.
func (svc *Service) GroupCapacity(ctx context.Context, capacity int) ([]GroupCapacity, error) {
	if capacity <= 0 {
		capacity = svc.capacity
	}
	snap, err := ledger.Load(ctx, svc.store, svc.logger)
	if err != nil {
		return nil, err
	}

	res := make([]GroupCapacity, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		n := len(snap.StudentsOf(g.ID))
		res = append(res, GroupCapacity{
			GroupID:         g.ID,
			GroupTitle:      g.Title,
			CurrentStudents: n,
			Capacity:        capacity,
			FillPercentage:  core.Percentage(n, capacity),
		})
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].FillPercentage != res[j].FillPercentage {
			return res[i].FillPercentage > res[j].FillPercentage
		}
		if res[i].CurrentStudents != res[j].CurrentStudents {
			return res[i].CurrentStudents > res[j].CurrentStudents
		}
		return strings.ToLower(res[i].GroupTitle) < strings.ToLower(res[j].GroupTitle)
	})
	return res, nil
}
