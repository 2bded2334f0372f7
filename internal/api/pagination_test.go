package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query       string
		wantPage    int
		wantPerPage int
	}{
		{"", 1, 50},
		{"?page=3&per_page=25", 3, 25},
		{"?per_page=500", 1, 200},
		{"?page=0&per_page=-5", 1, 50},
		{"?page=abc&per_page=xyz", 1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := ParsePagination(httptest.NewRequest(http.MethodGet, "/api/alerts"+tt.query, nil))
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
		})
	}
}

func TestPaginationParams_Offset(t *testing.T) {
	assert.Equal(t, 0, PaginationParams{Page: 1, PerPage: 50}.Offset())
	assert.Equal(t, 40, PaginationParams{Page: 3, PerPage: 20}.Offset())
}

func TestPaginationParams_TotalPages(t *testing.T) {
	p := PaginationParams{Page: 1, PerPage: 20}
	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(20))
	assert.Equal(t, 2, p.TotalPages(21))
	assert.Equal(t, 0, PaginationParams{}.TotalPages(10))
}

func TestNewListResponse(t *testing.T) {
	resp := NewListResponse([]string{"a", "b"}, 42, PaginationParams{Page: 2, PerPage: 20})

	assert.Equal(t, ListResponse{
		Items:      []string{"a", "b"},
		Total:      42,
		Page:       2,
		PerPage:    20,
		TotalPages: 3,
	}, resp)
}
