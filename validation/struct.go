package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator. Field names in violations use
// the json tag so they match the request payload.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s using its `validate` tags and records failures in v.
// Non-validation errors (e.g. a nil or non-struct argument) are returned.
func Struct(s any, v Violations) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, exists := v[field]; exists {
			continue
		}
		v[field] = messageFor(fe)
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "gt":
		if fe.Param() == "0" {
			return "must_be_positive"
		}
		return "too_small"
	case "gte", "min":
		if fe.Param() == "0" {
			return "must_not_be_negative"
		}
		return "too_small"
	case "lte", "max":
		return "too_large"
	case "oneof":
		return "invalid_value"
	default:
		return "invalid"
	}
}
