package dto

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"innkeeper/shared/constant"
	"innkeeper/shared/failure"
)

const (
	SortDirAsc  = "ASC"
	SortDirDesc = "DESC"
)

type QueryParams struct {
	Page    int    `json:"page"     validate:"omitempty"`
	Limit   int    `json:"limit"    validate:"omitempty"`
	SortBy  string `json:"sort_by"  validate:"omitempty"`
	SortDir string `json:"sort_dir" validate:"omitempty,oneof=ASC DESC"`
}

// FromRequest reads page, limit, sort_by and sort_dir from the query string.
// Values that do not parse are ignored. With withDefaults set, a missing page
// or limit takes its default. Limit is capped at constant.MaxValueLimit.
func (q *QueryParams) FromRequest(r *http.Request, withDefaults bool) {
	values := r.URL.Query()

	if page, ok := positive(values, constant.RequestParamPage); ok {
		q.Page = page
	}

	if limit, ok := positive(values, constant.RequestParamLimit); ok {
		q.Limit = min(limit, constant.MaxValueLimit)
	}

	if sortBy := values.Get(constant.RequestParamSortBy); sortBy != "" {
		q.SortBy = sortBy
	}

	switch dir := strings.ToUpper(values.Get(constant.RequestParamSortDir)); dir {
	case SortDirAsc, SortDirDesc:
		q.SortDir = dir
	}

	if !withDefaults {
		return
	}

	if q.Page == 0 {
		q.Page = constant.DefaultValuePage
	}

	if q.Limit == 0 {
		q.Limit = constant.DefaultValueLimit
	}
}

func positive(values url.Values, key string) (int, bool) {
	n, err := strconv.Atoi(values.Get(key))
	if err != nil || n <= 0 {
		return 0, false
	}

	return n, true
}

// RestrictSort maps the requested sort_by onto a column from sortable, which
// goes into ORDER BY verbatim. An empty sort_by falls back to the default
// ordering; an unknown one is rejected.
func (q *QueryParams) RestrictSort(sortable map[string]string) error {
	if q.SortBy == "" {
		q.SortBy = constant.DefaultValueSortBy
	} else {
		column, ok := sortable[q.SortBy]
		if !ok {
			return failure.Validation("sort_by must be one of " + strings.Join(sortKeys(sortable), ", "))
		}

		q.SortBy = column
	}

	if q.SortDir == "" {
		q.SortDir = constant.DefaultValueSortDir
	}

	return nil
}

func sortKeys(sortable map[string]string) []string {
	keys := make([]string, 0, len(sortable))
	for key := range sortable {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}
