// internal/handlers/pagination.go
package handlers

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest carries the limit/offset window parsed from query params.
type PageRequest struct {
	Limit  int
	Offset int
}

// PageResponse is the envelope for paginated list endpoints.
type PageResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// parsePageRequest reads limit/offset from the query string, clamping to
// sane bounds. Missing or malformed values fall back to defaults.
func parsePageRequest(r *http.Request) PageRequest {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}
	return PageRequest{Limit: limit, Offset: offset}
}
