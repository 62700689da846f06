package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"innkeeper/shared/failure"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind failure.Kind
	}{
		{"validation", failure.Validation("check_out must be after check_in"), http.StatusBadRequest, failure.KindValidation},
		{"not found", failure.NotFound("room not found"), http.StatusNotFound, failure.KindNotFound},
		{"inventory exhausted", failure.InventoryExhausted("no units available"), http.StatusConflict, failure.KindInventoryExhausted},
		{"invalid transition", failure.InvalidTransition("only pending reservations can change status"), http.StatusConflict, failure.KindInvalidTransition},
		{"conflict", failure.Conflict("room has reservations"), http.StatusConflict, failure.KindConflict},
		{"unauthorized", failure.Unauthorized("token expired"), http.StatusUnauthorized, failure.KindUnauthorized},
		{"forbidden", failure.Forbidden("guests cannot approve"), http.StatusForbidden, failure.KindForbidden},
		{"forbidden sentinel", failure.ForbiddenError, http.StatusForbidden, failure.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, failure.GetCode(tt.err))
			assert.Equal(t, tt.wantKind, failure.KindOf(tt.err))
			assert.True(t, failure.IsKind(tt.err, tt.wantKind))
		})
	}
}

func TestNew_UnknownKind(t *testing.T) {
	f := failure.New("TEAPOT", "short and stout")

	assert.Equal(t, http.StatusInternalServerError, f.Code)
	assert.Equal(t, "short and stout", f.Error())
}

func TestBadRequest(t *testing.T) {
	assert.NoError(t, failure.BadRequest(nil))

	err := failure.BadRequest(errors.New("invalid character 'x'"))
	assert.EqualError(t, err, "invalid character 'x'")
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))
}

func TestGetCodeAndKind_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("create reservation: %w", failure.InventoryExhausted("sold out"))

	assert.Equal(t, http.StatusConflict, failure.GetCode(wrapped))
	assert.Equal(t, failure.KindInventoryExhausted, failure.KindOf(wrapped))
}

func TestGetCodeAndKind_Plain(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain error", errors.New("boom")},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusInternalServerError, failure.GetCode(tt.err))
			assert.Equal(t, failure.KindInternal, failure.KindOf(tt.err))
		})
	}

	assert.False(t, failure.IsKind(nil, failure.KindInternal))
}
