package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"rental-backend/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Money fields are compared numerically (gt=0, gte=0)
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// DecodeJSON reads the request body into dst and validates its struct tags.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Validation("Invalid request body")
	}
	return Validate(dst)
}

// Validate checks dst's `validate` tags and converts failures to a validation error.
func Validate(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperror.Validation("Invalid request body")
	}

	fields := make([]apperror.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, apperror.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperror.Validation("Validation failed", fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Valid email is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		layout := strings.NewReplacer("2006", "YYYY", "01", "MM", "02", "DD").Replace(fe.Param())
		return fmt.Sprintf("%s must be a date in %s format", fe.Field(), layout)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
