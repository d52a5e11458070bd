package student

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tuition/core"
)

type Student struct {
	ID          int            `json:"id" db:"id"`
	Fullname    string         `json:"fullname" db:"fullname"`
	PhoneNumber string         `json:"phone_number" db:"phone_number"`
	PaymentDue  int            `json:"payment_due" db:"payment_due"` // nominal day of month, 1-31
	Address     null.String    `json:"address" db:"address"`
	CreatedAt   core.Timestamp `json:"created_at" db:"created_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Fullname    string      `json:"fullname" validate:"required,max=255"`
	PhoneNumber string      `json:"phone_number" validate:"required,max=32"`
	PaymentDue  int         `json:"payment_due" validate:"dueday"`
	Address     null.String `json:"address" validate:"max=255"`
	GroupIDs    []int       `json:"group_ids" validate:"omitempty,dive,gt=0"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Fullname = core.CleanString(ns.Fullname)
	ns.PhoneNumber = core.CleanString(ns.PhoneNumber)
	ns.Address = cleanAddress(ns.Address)
	ns.GroupIDs = core.UniqueIDs(ns.GroupIDs)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields keep their current value. A nil GroupIDs leaves the enrollments untouched,
// any other value (even empty) replaces them.
type UpdateStudent struct {
	Fullname    string  `json:"fullname" validate:"max=255"`
	PhoneNumber string  `json:"phone_number" validate:"max=32"`
	PaymentDue  int     `json:"payment_due" validate:"dueday"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	GroupIDs    []int   `json:"group_ids" validate:"omitempty,dive,gt=0"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.Fullname); name != "" {
		us.Fullname = name
	} else {
		us.Fullname = orig.Fullname
	}

	if phone := core.CleanString(us.PhoneNumber); phone != "" {
		us.PhoneNumber = phone
	} else {
		us.PhoneNumber = orig.PhoneNumber
	}

	if us.PaymentDue == 0 {
		us.PaymentDue = orig.PaymentDue
	}

	if us.Address != nil {
		addr := core.CleanString(*us.Address)
		us.Address = &addr
	}
	if us.GroupIDs != nil {
		us.GroupIDs = core.UniqueIDs(us.GroupIDs)
	}
	return validate.Struct(us)
}

// apply returns a copy of s with the update applied.
func (us UpdateStudent) apply(s Student) Student {
	s.Fullname = us.Fullname
	s.PhoneNumber = us.PhoneNumber
	s.PaymentDue = us.PaymentDue
	if us.Address != nil {
		s.Address = null.NewString(*us.Address, *us.Address != "")
	}
	return s
}

type QueryFilter struct {
	Search     string `query:"search"`
	PaymentDue int    `query:"payment_due"`
	GroupID    int    `query:"group_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.PaymentDue == 0 && qf.GroupID == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func cleanAddress(addr null.String) null.String {
	if !addr.Valid {
		return addr
	}
	s := core.CleanString(addr.String)
	return null.NewString(s, s != "")
}
