// Package mocks provides tracing doubles for tests. Spans go to the otel noop
// provider, so the real scope code runs without a collector.
package mocks

import (
	"innkeeper/infras/otel"

	"go.opentelemetry.io/otel/trace/noop"
)

func NewOtel() otel.Otel {
	return otel.NewWithProvider(noop.NewTracerProvider())
}
