package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var setupOnce sync.Once

// SetupValidator registers the decimal tags used by request DTOs and makes
// validation errors report JSON field names
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("decimal_gt0", decimalRule(func(d decimal.Decimal) bool { return d.IsPositive() }))
		_ = v.RegisterValidation("decimal_gte0", decimalRule(func(d decimal.Decimal) bool { return !d.IsNegative() }))
		_ = v.RegisterValidation("percent", decimalRule(func(d decimal.Decimal) bool {
			return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
		}))
	})
}

// decimalRule validates a string field holding a decimal number. Empty
// strings pass so that "" can clear nullable values.
func decimalRule(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		if field.String() == "" {
			return true
		}
		d, err := decimal.NewFromString(field.String())
		return err == nil && ok(d)
	}
}

// describeBindError turns validator errors into "field: message" pairs
func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		parts = append(parts, e.Field()+": "+validationMessage(e))
	}
	return strings.Join(parts, "; ")
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "decimal_gt0":
		return "must be a positive decimal number"
	case "decimal_gte0":
		return "must be a non-negative decimal number"
	case "percent":
		return "must be a percentage between 0 and 100"
	default:
		return "invalid value"
	}
}
