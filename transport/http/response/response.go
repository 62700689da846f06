// Package response writes the JSON envelopes every endpoint answers with:
// {"data": ...}, {"message": ...} or {"error": ..., "kind": ...}.
package response

import (
	"encoding/json"
	"net/http"

	"innkeeper/infras/otel"
	"innkeeper/shared/constant"
	"innkeeper/shared/failure"
	"innkeeper/shared/logger"

	"github.com/rs/zerolog/log"
)

// internalMessage replaces the text of errors that are not failures.
const internalMessage = "internal server error"

type Data[T any] struct {
	Data *T `json:"data,omitempty"`
}

type Error struct {
	Error *string      `json:"error,omitempty"`
	Kind  failure.Kind `json:"kind,omitempty"`
}

type Message struct {
	Message *string `json:"message,omitempty"`
}

func WithMessage(writer http.ResponseWriter, code int, message string) {
	write(writer, code, Message{Message: &message})
}

func WithJSON(writer http.ResponseWriter, code int, payload any) {
	write(writer, code, Data[any]{Data: &payload})
}

// WithError maps err to its status and kind. Anything that is not a
// failure is logged and answered with a generic 500.
func WithError(writer http.ResponseWriter, err error) {
	kind, message := failure.KindOf(err), err.Error()

	if kind == failure.KindInternal {
		logger.ErrorWithStack(err)
		message = internalMessage
	}

	write(writer, failure.GetCode(err), Error{Error: &message, Kind: kind})
}

func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusTooManyRequests, constant.ResponseErrorRequestLimitExceeded)
}

// WithPreparingShutdown answers requests that arrive while the server drains.
func WithPreparingShutdown(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorPrepareShutdown)
}

func write(writer http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)
		writer.WriteHeader(http.StatusInternalServerError)

		return
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)

	if _, err = writer.Write(body); err != nil {
		logger.ErrorWithStack(err)
	}
}

// Fail records err on the handler span, logs it under msg and writes the
// error response. Caller mistakes log at warn level.
func Fail(writer http.ResponseWriter, scope otel.Scope, err error, msg string) {
	scope.TraceError(err)

	event := log.Warn()
	if failure.KindOf(err) == failure.KindInternal {
		event = log.Error()
	}

	event.Err(err).Str("kind", string(failure.KindOf(err))).Msg(msg)

	WithError(writer, err)
}
