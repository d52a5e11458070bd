package payment

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tuition/core"
)

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func TestNewPayment_Validate(t *testing.T) {
	validate, translator := newValidator()
	date := core.DateOf(2024, time.March, 30)
	neg := decimal.NewFromInt(-1)

	tests := []struct {
		name      string
		np        NewPayment
		wantField string
		wantMsg   string
	}{
		{name: "valid", np: NewPayment{Date: date, Amount: decimal.NewFromInt(100), StudentID: 1, GroupID: 1, PaymentType: "Card "}},
		{name: "free payment", np: NewPayment{Date: date, StudentID: 1, GroupID: 1}},
		{name: "missing date", np: NewPayment{StudentID: 1, GroupID: 1}, wantField: "date", wantMsg: "this field is required"},
		{name: "negative amount", np: NewPayment{Date: date, Amount: neg, StudentID: 1, GroupID: 1}, wantField: "amount", wantMsg: "must not be negative"},
		{name: "missing student", np: NewPayment{Date: date, GroupID: 1}, wantField: "student_id"},
		{name: "negative snapshot", np: NewPayment{Date: date, StudentID: 1, GroupID: 1, CoursePriceAtPayment: &neg}, wantField: "course_price_at_payment"},
		{name: "unknown type", np: NewPayment{Date: date, StudentID: 1, GroupID: 1, PaymentType: "barter"}, wantField: "payment_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.np.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				t.Fatalf("Validate() error = %v, want validator.ValidationErrors", err)
			}
			assert.Equal(t, tt.wantField, vErrs[0].Field())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, vErrs[0].Translate(translator))
			}
		})
	}
}

func TestNewPayment_Validate_defaults(t *testing.T) {
	validate, _ := newValidator()
	np := NewPayment{
		Date:      core.DateOf(2024, time.March, 30),
		StudentID: 1,
		GroupID:   2,
		Notes:     null.StringFrom("  "),
	}
	assert.NoError(t, np.Validate(validate))
	assert.Equal(t, TypeCash, np.PaymentType)
	assert.Equal(t, "2024-03", np.PaymentPeriod.String())
	assert.False(t, np.Notes.Valid)

	// an explicit period wins over the date's month
	np = NewPayment{
		Date:          core.DateOf(2024, time.March, 30),
		StudentID:     1,
		GroupID:       2,
		PaymentPeriod: core.Period{Year: 2024, Month: time.April},
	}
	assert.NoError(t, np.Validate(validate))
	assert.Equal(t, "2024-04", np.PaymentPeriod.String())
}

func TestUpdatePayment_apply(t *testing.T) {
	orig := Payment{
		ID:                   7,
		Date:                 core.DateOf(2024, time.March, 1),
		Amount:               decimal.NewFromInt(50),
		StudentID:            1,
		GroupID:              2,
		CoursePriceAtPayment: decimal.NewFromInt(100),
		PaymentPeriod:        core.Period{Year: 2024, Month: time.March},
		PaymentType:          TypeCash,
		Notes:                null.StringFrom("first half"),
	}
	amount := decimal.NewFromInt(100)
	empty := ""
	got := UpdatePayment{Amount: &amount, Notes: &empty}.apply(orig)

	assert.True(t, got.Amount.Equal(amount))
	assert.False(t, got.Notes.Valid)
	assert.Equal(t, orig.Date, got.Date)
	assert.Equal(t, orig.PaymentPeriod, got.PaymentPeriod)
	assert.True(t, got.CoursePriceAtPayment.Equal(orig.CoursePriceAtPayment))
	assert.Equal(t, orig.GroupID, got.GroupID)
}
