package payment

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tuition/core"
)

// Payment types
const (
	TypeCash     = "cash"
	TypeCard     = "card"
	TypeTransfer = "transfer"
	TypeOnline   = "online"
)

type Payment struct {
	ID                   int             `json:"id" db:"id"`
	Date                 core.Date       `json:"date" db:"date"`
	Amount               decimal.Decimal `json:"amount" db:"amount"`
	StudentID            int             `json:"student_id" db:"student_id"`
	GroupID              int             `json:"group_id" db:"group_id"`
	CoursePriceAtPayment decimal.Decimal `json:"course_price_at_payment" db:"course_price_at_payment"`
	PaymentPeriod        core.Period     `json:"payment_period" db:"payment_period"`
	PaymentType          string          `json:"payment_type" db:"payment_type"`
	Notes                null.String     `json:"notes" db:"notes"`
	CreatedAt            core.Timestamp  `json:"created_at" db:"created_at"` // UTC
}

// NewPayment contains information needed to record a Payment.
// A nil CoursePriceAtPayment snapshots the group's current price;
// a zero PaymentPeriod defaults to the month of Date.
type NewPayment struct {
	Date                 core.Date        `json:"date" validate:"required"`
	Amount               decimal.Decimal  `json:"amount" validate:"nonneg"`
	StudentID            int              `json:"student_id" validate:"required,gt=0"`
	GroupID              int              `json:"group_id" validate:"required,gt=0"`
	CoursePriceAtPayment *decimal.Decimal `json:"course_price_at_payment" validate:"omitempty,nonneg"`
	PaymentPeriod        core.Period      `json:"payment_period"`
	PaymentType          string           `json:"payment_type" validate:"paytype"`
	Notes                null.String      `json:"notes" validate:"max=1000"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.PaymentType = core.CleanString(np.PaymentType, true /* lower */)
	if np.PaymentType == "" {
		np.PaymentType = TypeCash
	}
	np.Notes = cleanNotes(np.Notes)
	if np.PaymentPeriod.IsZero() && !np.Date.IsZero() {
		np.PaymentPeriod = np.Date.Period()
	}
	return validate.Struct(np)
}

// UpdatePayment defines what information may be provided to modify an existing Payment.
// Zero fields keep their current value.
type UpdatePayment struct {
	Date                 core.Date        `json:"date"`
	Amount               *decimal.Decimal `json:"amount" validate:"omitempty,nonneg"`
	GroupID              int              `json:"group_id" validate:"omitempty,gt=0"`
	CoursePriceAtPayment *decimal.Decimal `json:"course_price_at_payment" validate:"omitempty,nonneg"`
	PaymentPeriod        core.Period      `json:"payment_period"`
	PaymentType          string           `json:"payment_type" validate:"omitempty,paytype"`
	Notes                *string          `json:"notes" validate:"omitempty,max=1000"`
}

func (up *UpdatePayment) Validate(validate *validator.Validate) error {
	up.PaymentType = core.CleanString(up.PaymentType, true /* lower */)
	if up.Notes != nil {
		notes := core.CleanString(*up.Notes)
		up.Notes = &notes
	}
	return validate.Struct(up)
}

func (up UpdatePayment) apply(p Payment) Payment {
	if !up.Date.IsZero() {
		p.Date = up.Date
	}
	if up.Amount != nil {
		p.Amount = *up.Amount
	}
	if up.GroupID != 0 {
		p.GroupID = up.GroupID
	}
	if up.CoursePriceAtPayment != nil {
		p.CoursePriceAtPayment = *up.CoursePriceAtPayment
	}
	if !up.PaymentPeriod.IsZero() {
		p.PaymentPeriod = up.PaymentPeriod
	}
	if up.PaymentType != "" {
		p.PaymentType = up.PaymentType
	}
	if up.Notes != nil {
		p.Notes = null.NewString(*up.Notes, *up.Notes != "")
	}
	return p
}

type QueryFilter struct {
	StudentID int         `query:"student_id"`
	GroupID   int         `query:"group_id"`
	DateFrom  core.Date   `query:"date_from"`
	DateTo    core.Date   `query:"date_to"`
	Period    core.Period `query:"period"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == 0 && qf.GroupID == 0 && qf.DateFrom.IsZero() && qf.DateTo.IsZero() && qf.Period.IsZero()
}

// StudentTotal is the total amount a student paid over all periods.
type StudentTotal struct {
	StudentID     int             `json:"student_id" db:"student_id"`
	Fullname      string          `json:"fullname" db:"fullname"`
	PaymentsCount int             `json:"payments_count" db:"payments_count"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
}

func cleanNotes(notes null.String) null.String {
	if !notes.Valid {
		return notes
	}
	s := core.CleanString(notes.String)
	return null.NewString(s, s != "")
}
