package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset())
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/search?page=3&per_page=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 100, p.Offset())
}

func TestFromRequest_OutOfRangeFallsBack(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/search?page=-1&per_page=500", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		total     int
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"empty", Params{Page: 1, PageSize: 20}, 0, 0, false, false},
		{"exact multiple", Params{Page: 1, PageSize: 10}, 30, 3, true, false},
		{"partial last page", Params{Page: 3, PageSize: 10}, 25, 3, false, true},
		{"middle page", Params{Page: 2, PageSize: 10}, 25, 3, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMeta(tt.params, tt.total)
			assert.Equal(t, tt.wantPages, m.TotalPages)
			assert.Equal(t, tt.wantNext, m.HasNext)
			assert.Equal(t, tt.wantPrev, m.HasPrev)
			assert.Equal(t, tt.total, m.TotalCount)
		})
	}
}
