package api

import (
	"net/http"
	"strconv"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// PaginationMeta is embedded in paginated list responses.
type PaginationMeta struct {
	TotalCount int  `json:"total_count"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	HasMore    bool `json:"has_more"`
}

// page is a requested window into a list.
type page struct {
	limit  int
	offset int
}

// pageFromRequest reads "limit" and "offset". Missing, malformed or
// non-positive values fall back to the defaults; limit is capped.
func pageFromRequest(r *http.Request) page {
	q := r.URL.Query()
	p := page{limit: defaultPageLimit}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.limit = min(n, maxPageLimit)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		p.offset = n
	}
	return p
}

// paginate returns the window of items selected by p. An offset past the
// end yields an empty, non-nil page.
func paginate[T any](items []T, p page) ([]T, PaginationMeta) {
	total := len(items)
	start := min(p.offset, total)
	end := min(start+p.limit, total)
	return items[start:end:end], PaginationMeta{
		TotalCount: total,
		Limit:      p.limit,
		Offset:     p.offset,
		HasMore:    end < total,
	}
}
