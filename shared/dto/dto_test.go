package dto_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"innkeeper/shared/constant"
	"innkeeper/shared/dto"
	"innkeeper/shared/failure"
	"innkeeper/shared/model"
	"innkeeper/shared/timezone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_FromModel(t *testing.T) {
	created := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	modified := created.Add(26 * time.Hour)

	var metadata dto.Metadata
	metadata.FromModel(model.Metadata{
		CreatedAt:  created,
		ModifiedAt: modified,
		CreatedBy:  "admin-1",
		ModifiedBy: "staff-2",
	})

	assert.Equal(t, dto.Metadata{
		CreatedAt:  timezone.Format(created, constant.DateFormat),
		CreatedBy:  "admin-1",
		ModifiedAt: timezone.Format(modified, constant.DateFormat),
		ModifiedBy: "staff-2",
	}, metadata)
}

func TestQueryParams_FromRequest(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		withDefaults bool
		want         dto.QueryParams
	}{
		{
			name:  "all parameters",
			query: "page=2&limit=20&sort_by=nightly_rate&sort_dir=asc",
			want:  dto.QueryParams{Page: 2, Limit: 20, SortBy: "nightly_rate", SortDir: dto.SortDirAsc},
		},
		{
			name:         "defaults fill page and limit only",
			withDefaults: true,
			want:         dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name: "no defaults leaves zero values",
			want: dto.QueryParams{},
		},
		{
			name:         "unparsable and non positive values are ignored",
			query:        "page=abc&limit=-5&sort_dir=sideways",
			withDefaults: true,
			want:         dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name:         "zero page takes default",
			query:        "page=0&limit=5",
			withDefaults: true,
			want:         dto.QueryParams{Page: constant.DefaultValuePage, Limit: 5},
		},
		{
			name:  "limit is capped",
			query: "limit=5000",
			want:  dto.QueryParams{Limit: constant.MaxValueLimit},
		},
		{
			name:         "partial with defaults",
			query:        "page=3&sort_by=check_in",
			withDefaults: true,
			want:         dto.QueryParams{Page: 3, Limit: constant.DefaultValueLimit, SortBy: "check_in"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/reservations?"+tt.query, nil)

			var params dto.QueryParams
			params.FromRequest(req, tt.withDefaults)

			assert.Equal(t, tt.want, params)
		})
	}
}

func TestQueryParams_RestrictSort(t *testing.T) {
	sortable := map[string]string{
		"created_at":   "created_at",
		"nightly_rate": "nightly_rate_cents",
	}

	tests := []struct {
		name    string
		params  dto.QueryParams
		want    dto.QueryParams
		wantErr bool
	}{
		{
			name:   "empty falls back to defaults",
			params: dto.QueryParams{Page: 1},
			want:   dto.QueryParams{Page: 1, SortBy: constant.DefaultValueSortBy, SortDir: constant.DefaultValueSortDir},
		},
		{
			name:   "alias maps to column",
			params: dto.QueryParams{SortBy: "nightly_rate", SortDir: dto.SortDirAsc},
			want:   dto.QueryParams{SortBy: "nightly_rate_cents", SortDir: dto.SortDirAsc},
		},
		{
			name:    "unknown column is rejected",
			params:  dto.QueryParams{SortBy: "id; DROP TABLE rooms"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.params

			err := params.RestrictSort(sortable)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, failure.KindValidation, failure.KindOf(err))
				assert.Contains(t, err.Error(), "created_at, nightly_rate")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, params)
		})
	}
}
