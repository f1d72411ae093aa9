package dtos

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/portal/pkg/constants"
)

func messageFor(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", err.Field())
	default:
		return fmt.Sprintf("%s is invalid", err.Field())
	}
}

// validate runs the struct tags of v and returns messages keyed by field name.
func validate(v any) map[string]string {
	errorMessages := map[string]string{}
	errs := constants.Validate.Struct(v)
	if errs == nil {
		return errorMessages
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(errs, &fieldErrs) {
		errorMessages["_"] = errs.Error()
		return errorMessages
	}
	for _, err := range fieldErrs {
		errorMessages[err.Field()] = messageFor(err)
	}
	return errorMessages
}
