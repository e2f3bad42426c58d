package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "authcore/internal/errors"
)

// SystemClock returns the current UTC instant at millisecond precision,
// the finest resolution every supported driver stores.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Clock supplies timestamps for created_at, data_joined and login_date.
type Clock func() time.Time

func clockOrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validator exposes the shared validator so request binding applies the same rules.
func Validator() *validator.Validate {
	return validate
}

// validateStruct reports the first violated constraint as a ValidationError.
func validateStruct(in any) error {
	return FirstValidationError(validate.Struct(in))
}

// FirstValidationError converts validator output into a ValidationError for
// the first failed field. Other errors pass through.
func FirstValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidationError(fe.Field(), describe(fe))
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "uuid":
		return "must be a UUID"
	case "email":
		return "must be a valid email address"
	case "handle":
		return "may only contain letters, digits, '.', '_' and '-'"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// optional trims s and maps blank input to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
