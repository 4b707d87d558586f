package pagination_test

import (
	"net/url"
	"testing"

	"github.com/JaimeStill/tally/pkg/pagination"
)

var cfg = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"", 1, 20},
		{"page=3&page_size=50", 3, 50},
		{"page=0&page_size=-5", 1, 20},
		{"page_size=500", 1, 100},
		{"limit=5", 1, 5},
		{"limit=5&page_size=10", 1, 10},
		{"page=abc&limit=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.PageRequestFromQuery(values, cfg)

			if req.Page != tt.page || req.PageSize != tt.pageSize {
				t.Errorf("got page %d size %d, want %d %d", req.Page, req.PageSize, tt.page, tt.pageSize)
			}
		})
	}
}

func TestPageRequestSearchAndSort(t *testing.T) {
	values, _ := url.ParseQuery("search=acme&sort=-created_at")
	req := pagination.PageRequestFromQuery(values, cfg)

	if req.Search == nil || *req.Search != "acme" {
		t.Errorf("search: got %v", req.Search)
	}
	if len(req.Sort) != 1 || req.Sort[0].Field != "created_at" || !req.Sort[0].Descending {
		t.Errorf("sort: got %+v", req.Sort)
	}
	if req.Offset() != 0 {
		t.Errorf("offset: got %d", req.Offset())
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		total, size, pages int
	}{
		{0, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{99, 10, 10},
	}

	for _, tt := range tests {
		r := pagination.NewPageResult[int](nil, tt.total, 1, tt.size)
		if r.TotalPages != tt.pages {
			t.Errorf("total %d size %d: got %d pages, want %d", tt.total, tt.size, r.TotalPages, tt.pages)
		}
		if r.Data == nil {
			t.Error("data should never be nil")
		}
	}
}
