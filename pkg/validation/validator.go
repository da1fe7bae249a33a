// Package validation checks struct tags and reports failures as
// InvalidInput errors carrying one field error per violated rule.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

// Validator wraps go-playground/validator with field names taken from the
// yaml or mapstructure tags, so errors name keys as users write them.
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a validator instance.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(fieldName)
	return &Validator{validator: v}
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"yaml", "mapstructure", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Struct validates s. The returned error is an InvalidInput error whose
// fields list every violation, or nil.
func (v *Validator) Struct(s any) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !apperrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.InvalidInput.Explain("validation failed: %v", err).Wrap(err)
	}

	out := apperrors.InvalidInput.Explain("validation failed: %s", message(fieldErrs[0]))
	for _, fe := range fieldErrs {
		out = out.WithField(fe.Tag(), fe.Namespace(), message(fe))
	}
	return out.Wrap(err)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

var defaultValidator = NewValidator()

// Struct validates s with the shared validator.
func Struct(s any) error {
	return defaultValidator.Struct(s)
}
