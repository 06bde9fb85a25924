package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/medilink/clinic-api/internal/model"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var errorMessages = map[string]string{
	"required":  "field is required",
	"email":     "invalid email format",
	"min":       "value is too small",
	"max":       "value is too large",
	"oneof":     "value is not allowed",
	"gtfield":   "must be after start",
	"category":  "unknown appointment category",
	"frequency": "frequency must be daily, weekly or monthly",
}

func validateCategory(fl validator.FieldLevel) bool {
	return model.AppointmentCategory(fl.Field().String()).Valid()
}

func validateFrequency(fl validator.FieldLevel) bool {
	return model.Frequency(fl.Field().String()).Valid()
}

// RegisterValidators installs the custom binding tags on gin's validator
// and reports fields by their json names. Call once at startup.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	if err := v.RegisterValidation("category", validateCategory); err != nil {
		return err
	}
	if err := v.RegisterValidation("frequency", validateFrequency); err != nil {
		return err
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}

// ValidationErrors flattens binding errors into field messages. It returns
// nil for errors that are not validation failures.
func ValidationErrors(err error) []ValidationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		msg := errorMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, ValidationError{
			Field:   e.Field(),
			Message: msg,
		})
	}
	return out
}
