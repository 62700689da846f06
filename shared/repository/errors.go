package repository

import (
	"errors"

	"innkeeper/shared/constant"

	"github.com/lib/pq"
)

// IsPqError reports whether err wraps a Postgres error with the given SQLSTATE code.
func IsPqError(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}

	return false
}

func IsForeignKeyViolation(err error) bool {
	return IsPqError(err, constant.PqErrorCodeFkViolation)
}

func IsCheckViolation(err error) bool {
	return IsPqError(err, constant.PqErrorCodeCheckViolation)
}
