// Package failure carries errors the caller is meant to see. Each Failure has
// a Kind, and the HTTP status is derived from it.
package failure

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindInventoryExhausted Kind = "INVENTORY_EXHAUSTED"
	KindInvalidTransition  Kind = "INVALID_TRANSITION"
	KindConflict           Kind = "CONFLICT"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindInternal           Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	KindValidation:         http.StatusBadRequest,
	KindNotFound:           http.StatusNotFound,
	KindInventoryExhausted: http.StatusConflict,
	KindInvalidTransition:  http.StatusConflict,
	KindConflict:           http.StatusConflict,
	KindUnauthorized:       http.StatusUnauthorized,
	KindForbidden:          http.StatusForbidden,
	KindInternal:           http.StatusInternalServerError,
}

type Failure struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ForbiddenError is returned when the caller's role may not use an endpoint.
var ForbiddenError = New(KindForbidden, "You don't have the required permissions")

func (e *Failure) Error() string {
	return e.Message
}

// New builds a Failure whose Code follows kind. Unknown kinds map to 500.
func New(kind Kind, msg string) *Failure {
	code, ok := statusByKind[kind]
	if !ok {
		code = http.StatusInternalServerError
	}

	return &Failure{Code: code, Kind: kind, Message: msg}
}

// BadRequest turns a decoding or parsing error into a validation failure.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}

	return New(KindValidation, err.Error())
}

// Validation reports malformed or missing input the caller can fix.
func Validation(msg string) error {
	return New(KindValidation, msg)
}

func Unauthorized(msg string) error {
	return New(KindUnauthorized, msg)
}

func Forbidden(msg string) error {
	return New(KindForbidden, msg)
}

func NotFound(msg string) error {
	return New(KindNotFound, msg)
}

// Conflict reports an operation blocked by dependent records.
func Conflict(msg string) error {
	return New(KindConflict, msg)
}

// InventoryExhausted reports that no unit is left for the requested stay.
func InventoryExhausted(msg string) error {
	return New(KindInventoryExhausted, msg)
}

// InvalidTransition reports a status change the lifecycle does not allow.
func InvalidTransition(msg string) error {
	return New(KindInvalidTransition, msg)
}

// GetCode returns the HTTP status for err; anything that is not a Failure is a 500.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// KindOf returns the Kind of a wrapped Failure, or KindInternal for anything else.
func KindOf(err error) Kind {
	var fail *Failure
	if errors.As(err, &fail) && fail.Kind != "" {
		return fail.Kind
	}

	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
