package shared_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"innkeeper/shared"
	"innkeeper/shared/cache/mocks"
	"innkeeper/shared/constant"
	"innkeeper/shared/dto"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestCalculateTotalPage(t *testing.T) {
	tests := []struct {
		total, limit, expected int
	}{
		{total: 0, limit: 10, expected: 1},
		{total: 25, limit: 0, expected: 1},
		{total: 25, limit: -5, expected: 1},
		{total: 30, limit: 10, expected: 3},
		{total: 31, limit: 10, expected: 4},
		{total: 3, limit: 10, expected: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, shared.CalculateTotalPage(tt.total, tt.limit), "total=%d limit=%d", tt.total, tt.limit)
	}
}

func TestStamp(t *testing.T) {
	before := time.Now().Add(-time.Second)

	fields := shared.Stamp(map[string]any{"total_units": 4}, "admin-1")

	assert.Equal(t, 4, fields["total_units"])
	assert.Equal(t, "admin-1", fields[constant.FieldModifiedBy])

	modifiedAt, ok := fields[constant.FieldModifiedAt].(time.Time)
	assert.True(t, ok)
	assert.True(t, modifiedAt.After(before))
}

func TestFilterByID(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		fieldID   string
		table     string
		wantWhere string
	}{
		{name: "room by id", id: "room-1", fieldID: "id", table: "rooms", wantWhere: "(rooms.id = :id)"},
		{name: "reservations of a room", id: "room-1", fieldID: "room_id", table: "reservations", wantWhere: "(reservations.room_id = :room_id)"},
		{name: "no table", id: "res-1", fieldID: "id", wantWhere: "(id = :id)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shared.FilterByID(tt.id, tt.fieldID, tt.table)

			assert.Equal(t, dto.FilterGroupOperatorAnd, result.Operator)
			assert.Len(t, result.Filters, 1)

			where, args := result.GetWhereClause()
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, map[string]any{tt.fieldID: tt.id}, args)
		})
	}
}

func TestConvertStringToInt(t *testing.T) {
	res, err := shared.ConvertStringToInt(" 12 ")
	assert.NoError(t, err)
	assert.Equal(t, 12, res)

	_, err = shared.ConvertStringToInt("twelve")
	assert.Error(t, err)
}

func TestConvertStringToFloat(t *testing.T) {
	res, err := shared.ConvertStringToFloat("100.25")
	assert.NoError(t, err)
	assert.InDelta(t, 100.25, res, 0.0001)

	_, err = shared.ConvertStringToFloat("")
	assert.Error(t, err)
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "room:get", shared.BuildCacheKey("room:get"))
	assert.Equal(t, "room:get:abc", shared.BuildCacheKey("room:get", "abc"))
	assert.Equal(t, "room:avail:abc:2024-05-01", shared.BuildCacheKey("room:avail", "abc", "2024-05-01"))
}

func TestBuildCacheKeyWithQuery(t *testing.T) {
	req := dto.QueryParams{Page: 1, Limit: 10}
	filter := shared.FilterByID("abc", "room_id", "reservations")

	first := shared.BuildCacheKeyWithQuery("reservation:gets", req, filter)
	second := shared.BuildCacheKeyWithQuery("reservation:gets", req, shared.FilterByID("abc", "room_id", "reservations"))
	other := shared.BuildCacheKeyWithQuery("reservation:gets", req, shared.FilterByID("xyz", "room_id", "reservations"))
	paged := shared.BuildCacheKeyWithQuery("reservation:gets", dto.QueryParams{Page: 2, Limit: 10}, filter)

	assert.True(t, strings.HasPrefix(first, "reservation:gets:"))
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.NotEqual(t, first, paged)
}

func TestInvalidateCaches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCache := mocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Clear(gomock.Any(), "room:gets:*").Return(nil)
	mockCache.EXPECT().Clear(gomock.Any(), "room:count:*").Return(errors.New("redis down"))

	shared.InvalidateCaches(context.Background(), mockCache, "room:gets")
	shared.InvalidateCaches(context.Background(), mockCache, "room:count")
}
