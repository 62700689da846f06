// Package validator decodes request bodies and checks them against their
// `validate` tags. Failures come back as failure.KindValidation errors whose
// message names the offending JSON field.
package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"innkeeper/shared/base64"
	"innkeeper/shared/constant"
	"innkeeper/shared/failure"

	val "github.com/go-playground/validator/v10"
)

const bytesPerMB = 1 << 20

var validate = newValidate()

var rules = map[string]val.Func{
	"calendardate": isCalendarDate,
	"notblank":     isNotBlank,
	"mimetypes":    hasMimetype,
	"maxfilesize":  withinFileSize,
}

func newValidate() *val.Validate {
	v := val.New(val.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(jsonName)

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}

	return v
}

// jsonName reports fields by their wire name; untagged fields keep the Go name.
func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")

	switch name {
	case "":
		return field.Name
	case "-":
		return strings.ToLower(field.Name)
	default:
		return name
	}
}

func isCalendarDate(field val.FieldLevel) bool {
	str, ok := field.Field().Interface().(string)
	if !ok {
		return false
	}

	_, err := time.Parse(constant.CalendarDateFormat, str)

	return err == nil
}

func isNotBlank(field val.FieldLevel) bool {
	str, ok := field.Field().Interface().(string)
	if !ok {
		return !field.Field().IsZero()
	}

	return strings.TrimSpace(str) != ""
}

// hasMimetype accepts an uploaded file header or a base64 data URI whose
// content type is in the space separated param.
func hasMimetype(field val.FieldLevel) bool {
	var contentType string

	switch v := field.Field().Interface().(type) {
	case multipart.FileHeader:
		contentType = v.Header.Get(constant.RequestHeaderContentType)
	case string:
		contentType = base64.GetContentType(v)
	}

	if contentType == "" {
		return false
	}

	return slices.Contains(strings.Fields(field.Param()), contentType)
}

// withinFileSize caps an upload at param megabytes.
func withinFileSize(field val.FieldLevel) bool {
	maxMB, err := strconv.ParseFloat(field.Param(), 64)
	if err != nil {
		return false
	}

	var size int64

	switch v := field.Field().Interface().(type) {
	case multipart.FileHeader:
		size = v.Size
	case string:
		size = int64(len(v))
	}

	return float64(size) <= maxMB*bytesPerMB
}

// Validate decodes one JSON document from r into data and validates it.
func Validate[T any](r io.Reader, data *T) error {
	if err := json.NewDecoder(r).Decode(data); err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	if err := validate.Struct(data); err != nil {
		return failure.Validation(message(err)) //nolint:wrapcheck
	}

	return nil
}

// ValidateVar checks a single value, such as a query parameter, against tag.
func ValidateVar(field any, tag string) error {
	if err := validate.Var(field, tag); err != nil {
		return failure.Validation(message(err)) //nolint:wrapcheck
	}

	return nil
}

// IsUUID reports whether value is a canonical UUID, the only shape an entity id takes.
func IsUUID(value string) bool {
	return ValidateVar(value, "uuid") == nil
}
