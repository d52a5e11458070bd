package payment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tuition/core"
)

var (
	Types = []string{TypeCash, TypeCard, TypeTransfer, TypeOnline}

	paymentTypeTag  = "paytype"
	paymentTypeText = "must be one of cash, card, transfer or online"
)

// InitValidators registers the payment validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(paymentTypeTag, paymentTypeValidation)
	core.RegisterCustomTranslation(validate, translator, paymentTypeTag, paymentTypeText)
}

// Custom Validators

func paymentTypeValidation(fl validator.FieldLevel) bool {
	pt := fl.Field().String()
	for _, t := range Types {
		if pt == t {
			return true
		}
	}
	return false
}
