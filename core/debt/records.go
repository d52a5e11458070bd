package debt

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/ledger"
)

type (
	OverdueRecord struct {
		ID              int             `json:"id"`
		Fullname        string          `json:"fullname"`
		PhoneNumber     string          `json:"phone_number"`
		PaymentDue      int             `json:"payment_due"`
		DaysOverdue     int             `json:"days_overdue"`
		RemainingAmount decimal.Decimal `json:"remaining_amount"`
		LastPaymentDate core.Date       `json:"last_payment_date"` // null when never paid
		Severity        Severity        `json:"severity"`
	}

	UpcomingRecord struct {
		ID           int    `json:"id"`
		Fullname     string `json:"fullname"`
		PhoneNumber  string `json:"phone_number"`
		PaymentDue   int    `json:"payment_due"`
		DaysUntilDue int    `json:"days_until_due"`
	}

	OverdueSummary struct {
		Total          int     `json:"total"`
		Warning        int     `json:"warning"`
		Critical       int     `json:"critical"`
		AvgDaysOverdue float64 `json:"avg_days_overdue"` // 1 decimal, 0 when nobody is overdue
	}

	DashboardStats struct {
		TotalStudents          int             `json:"total_students"`
		TotalGroups            int             `json:"total_groups"`
		TotalPayments          int             `json:"total_payments"`
		TotalPaymentAmount     decimal.Decimal `json:"total_payment_amount"`
		StudentsThisMonth      int             `json:"students_this_month"`
		GroupsThisMonth        int             `json:"groups_this_month"`
		PaymentsThisMonth      int             `json:"payments_this_month"`
		PaymentAmountThisMonth decimal.Decimal `json:"payment_amount_this_month"`
		OverduePaymentsCount   int             `json:"overdue_payments_count"`
		Overdue                OverdueSummary  `json:"overdue"`
	}

	GroupOverdueRecord struct {
		GroupID           int     `json:"group_id"`
		GroupTitle        string  `json:"group_title"`
		OverdueCount      int     `json:"overdue_count"`
		TotalStudents     int     `json:"total_students"`
		OverduePercentage float64 `json:"overdue_percentage"`
	}

	GroupRef struct {
		ID          int             `json:"id"`
		Title       string          `json:"title"`
		CoursePrice decimal.Decimal `json:"course_price"`
	}

	StudentMonthlyDebt struct {
		StudentID          int             `json:"student_id"`
		StudentFullname    string          `json:"student_fullname"`
		PhoneNumber        string          `json:"phone_number"`
		PaymentDue         int             `json:"payment_due"`
		TotalCoursePrice   decimal.Decimal `json:"total_course_price"`
		PaidThisMonth      decimal.Decimal `json:"paid_this_month"`
		ExpectedAmount     decimal.Decimal `json:"expected_amount"`
		TotalMonthlyAmount decimal.Decimal `json:"total_monthly_amount"` // remaining for the period
		GroupsCount        int             `json:"groups_count"`
		Groups             []GroupRef      `json:"groups"`
		LastPaymentDate    core.Date       `json:"last_payment_date"`
		DaysOverdue        int             `json:"days_overdue"`
		IsOverdue          bool            `json:"is_overdue"`
		Status             Status          `json:"status"`
	}

	CriticalAlert struct {
		StudentID       int             `json:"student_id"`
		Fullname        string          `json:"fullname"`
		PhoneNumber     string          `json:"phone_number"`
		DaysOverdue     int             `json:"days_overdue"`
		RemainingAmount decimal.Decimal `json:"remaining_amount"`
		Groups          []GroupRef      `json:"groups"`
	}
)

func groupRefs(groups []ledger.Group) []GroupRef {
	refs := make([]GroupRef, 0, len(groups))
	for _, g := range groups {
		refs = append(refs, GroupRef{ID: g.ID, Title: g.Title, CoursePrice: g.CoursePrice})
	}
	return refs
}
