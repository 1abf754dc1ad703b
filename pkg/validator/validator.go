package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			message := getFieldErrorMessage(fieldError)
			messages = append(messages, message)
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"OptionSelected": "Option",
		"ExpectedCost":   "Expected cost",
		"PointsRequired": "Points required",
		"Options":        "Options",
		"Title":          "Title",
		"Content":        "Content",
		"Amount":         "Amount",
		"Type":           "Interaction type",
		"EndsAt":         "End time",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
