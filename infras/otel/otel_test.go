package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

type status string

func (s status) String() string { return "status:" + string(s) }

func TestToAttribute(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected attribute.Value
	}{
		{name: "string", value: "PENDING", expected: attribute.StringValue("PENDING")},
		{name: "bool", value: true, expected: attribute.BoolValue(true)},
		{name: "int", value: 3, expected: attribute.IntValue(3)},
		{name: "cents stay numeric", value: int64(45000), expected: attribute.Int64Value(45000)},
		{name: "float", value: 450.5, expected: attribute.Float64Value(450.5)},
		{name: "string slice", value: []string{"room-1", "room-2"}, expected: attribute.StringSliceValue([]string{"room-1", "room-2"})},
		{name: "date", value: time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), expected: attribute.StringValue("2024-05-01")},
		{name: "stringer", value: status("APPROVED"), expected: attribute.StringValue("status:APPROVED")},
		{name: "fallback", value: struct{ N int }{N: 1}, expected: attribute.StringValue("{1}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := toAttribute("key", tt.value)

			assert.Equal(t, attribute.Key("key"), kv.Key)
			assert.Equal(t, tt.expected, kv.Value)
		})
	}
}

func TestOtel_NoopProvider(t *testing.T) {
	tracer := NewWithProvider(noop.NewTracerProvider())

	ctx, scope := tracer.NewScope(context.Background(), "service", "service.room.Get")
	require.NotNil(t, ctx)

	scope.SetAttributes(map[string]any{"room.id": "room-1", "units": 3})
	scope.TraceIfError(nil)
	scope.TraceError(errors.New("boom"))
	scope.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}
