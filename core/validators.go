package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

var (
	// custom validation tags & texts
	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	nonNegativeTag  = "nonneg"
	nonNegativeText = "must not be negative"

	dueDayTag  = "dueday"
	dueDayText = "must be a day of the month between 1 and 31"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// validate the underlying values of our wrapper types
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	validate.RegisterCustomTypeFunc(nullStringValue, null.String{})
	validate.RegisterCustomTypeFunc(dateValue, Date{})
	validate.RegisterCustomTypeFunc(periodValue, Period{})

	// register custom validators
	_ = validate.RegisterValidation(nonNegativeTag, nonNegativeValidation)
	RegisterCustomTranslation(validate, translator, nonNegativeTag, nonNegativeText)

	_ = validate.RegisterValidation(dueDayTag, dueDayValidation)
	RegisterCustomTranslation(validate, translator, dueDayTag, dueDayText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Type Funcs

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func nullStringValue(field reflect.Value) interface{} {
	if s, ok := field.Interface().(null.String); ok && s.Valid {
		return s.String
	}
	return ""
}

func dateValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(Date); ok {
		return d.String()
	}
	return ""
}

func periodValue(field reflect.Value) interface{} {
	if p, ok := field.Interface().(Period); ok {
		return p.String()
	}
	return ""
}

// Custom Global Validators

// nonNegativeValidation accepts numbers >= 0, decimals included.
func nonNegativeValidation(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		return fl.Field().Float() >= 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fl.Field().Int() >= 0
	default:
		return true
	}
}

// dueDayValidation only allows a nominal day of the month.
func dueDayValidation(fl validator.FieldLevel) bool {
	day := fl.Field().Int()
	return day >= 1 && day <= 31
}
