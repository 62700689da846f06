package validator

import (
	"errors"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var messages = map[string]string{
	"required":         "{field} is required",
	"required_with":    "{field} is required when {param} is set",
	"required_without": "{field} is required when {param} is absent",
	"uuid":             "{field} must be a valid UUID",
	"oneof":            "{field} must be one of {param}",
	"gt":               "{field} must be greater than {param}",
	"gte":              "{field} must be at least {param}",
	"min":              "{field} must be at least {param}",
	"lte":              "{field} must be at most {param}",
	"max":              "{field} must be at most {param}",
	"notblank":         "{field} must not be blank",
	"calendardate":     "{field} must be a date in YYYY-MM-DD format",
	"mimetypes":        "{field} must be one of {param}",
	"maxfilesize":      "{field} must not exceed {param} MB",
}

// message renders the first field error that has a template. A bare value
// checked with ValidateVar has no field name and reads as "value".
func message(err error) string {
	var fieldErrors val.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}

	for _, fieldErr := range fieldErrors {
		template, ok := messages[fieldErr.Tag()]
		if !ok {
			continue
		}

		field := fieldErr.Field()
		if field == "" {
			field = "value"
		}

		return strings.NewReplacer("{field}", field, "{param}", fieldErr.Param()).Replace(template)
	}

	return fieldErrors.Error()
}
