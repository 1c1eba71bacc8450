package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  page
	}{
		{"defaults", "", page{limit: defaultPageLimit}},
		{"custom", "limit=10&offset=20", page{limit: 10, offset: 20}},
		{"limit capped", "limit=5000", page{limit: maxPageLimit}},
		{"negative values", "limit=-1&offset=-5", page{limit: defaultPageLimit}},
		{"garbage", "limit=ten&offset=x", page{limit: defaultPageLimit}},
		{"zero limit", "limit=0", page{limit: defaultPageLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/doctors?"+tt.query, nil)
			assert.Equal(t, tt.want, pageFromRequest(r))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}

	got, meta := paginate(items, page{limit: 2, offset: 1})
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, PaginationMeta{TotalCount: 5, Limit: 2, Offset: 1, HasMore: true}, meta)

	got, meta = paginate(items, page{limit: 10, offset: 3})
	assert.Equal(t, []int{3, 4}, got)
	assert.False(t, meta.HasMore)

	got, meta = paginate(items, page{limit: 10, offset: 99})
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 5, meta.TotalCount)

	var none []int
	got, _ = paginate(none, page{limit: 10})
	assert.Empty(t, got)
}
