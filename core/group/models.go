package group

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/tuition/core"
)

type Group struct {
	ID            int             `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	CoursePrice   decimal.Decimal `json:"course_price" db:"course_price"` // monthly charge per enrolled student
	StudentsCount int             `json:"students_count" db:"students_count"`
	CreatedAt     core.Timestamp  `json:"created_at" db:"created_at"` // UTC
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Title       string          `json:"title" validate:"required,max=255"`
	CoursePrice decimal.Decimal `json:"course_price" validate:"nonneg"`
	StudentIDs  []int           `json:"student_ids" validate:"omitempty,dive,gt=0"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Title = core.CleanString(ng.Title)
	ng.StudentIDs = core.UniqueIDs(ng.StudentIDs)
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
// A nil StudentIDs leaves the roster untouched, any other value (even empty) replaces it.
type UpdateGroup struct {
	Title       string           `json:"title" validate:"max=255"`
	CoursePrice *decimal.Decimal `json:"course_price" validate:"omitempty,nonneg"`
	StudentIDs  []int            `json:"student_ids" validate:"omitempty,dive,gt=0"`
}

func (ug *UpdateGroup) Validate(orig Group, validate *validator.Validate) error {
	if title := core.CleanString(ug.Title); title != "" {
		ug.Title = title
	} else {
		ug.Title = orig.Title
	}
	if ug.CoursePrice == nil {
		price := orig.CoursePrice
		ug.CoursePrice = &price
	}
	if ug.StudentIDs != nil {
		ug.StudentIDs = core.UniqueIDs(ug.StudentIDs)
	}
	return validate.Struct(ug)
}

func (ug UpdateGroup) apply(g Group) Group {
	g.Title = ug.Title
	if ug.CoursePrice != nil {
		g.CoursePrice = *ug.CoursePrice
	}
	return g
}

type QueryFilter struct {
	Search    string `query:"search"`
	StudentID int    `query:"student_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.StudentID == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
