package validators

import (
	"net/http"
	"strconv"

	pkgerrors "github.com/snapmarket/snapmarket-backend/pkg/errors"
	"github.com/snapmarket/snapmarket-backend/pkg/pagination"
)

// PaginationParams extracts limit/cursor query parameters.
func PaginationParams(r *http.Request) (pagination.Params, error) {
	params := pagination.Params{
		Cursor: r.URL.Query().Get("cursor"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a non-negative integer").
				WithDetails(map[string]any{"field": "limit"})
		}
		params.Limit = limit
	}
	return params, nil
}
