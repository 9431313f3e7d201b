package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator checks the shape of decoded request bodies using struct
// tags, and reports failures as the typed errors of this package.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	v.RegisterValidation("cron", validateCron)

	return &RequestValidator{validate: v}
}

var defaultValidator = NewRequestValidator()

// Struct validates v with the shared request validator.
func Struct(v interface{}) error {
	return defaultValidator.Validate(v)
}

func (rv *RequestValidator) Validate(v interface{}) error {
	err := rv.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &FormatError{Field: "request", Reason: err.Error()}
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, translate(fe))
	}
	return Join(errs...)
}

func validateCron(fl validator.FieldLevel) bool {
	return Cron(fl.Field().String()) == nil
}

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func numeric(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func translate(fe validator.FieldError) error {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return &RequiredError{Field: field}
	case "cron":
		return Cron(fmt.Sprint(deref(fe.Value())))
	case "datetime":
		return &FormatError{Field: field, Value: fmt.Sprint(deref(fe.Value())), Reason: fmt.Sprintf("expected a date in the format %v", fe.Param())}
	case "min", "max", "gte", "lte", "gt", "lt":
		limit, err := strconv.ParseFloat(fe.Param(), 64)
		if value, ok := numeric(fe.Value()); ok && fe.Kind() != reflect.String && err == nil {
			re := &RangeError{Field: field, Value: value}
			if fe.Tag() == "min" || fe.Tag() == "gte" || fe.Tag() == "gt" {
				re.Min = &limit
			} else {
				re.Max = &limit
			}
			return re
		}
		unit := "characters"
		if fe.Kind() == reflect.Slice {
			unit = "items"
		}
		if fe.Tag() == "max" || fe.Tag() == "lte" {
			return &FormatError{Field: field, Reason: fmt.Sprintf("must be at most %v %v", fe.Param(), unit)}
		}
		return &FormatError{Field: field, Reason: fmt.Sprintf("must be at least %v %v", fe.Param(), unit)}
	}

	return &FormatError{Field: field, Reason: fmt.Sprintf("failed '%v' check", fe.Tag())}
}
