package query

import (
	"net/url"
	"testing"
)

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{100, 1, 100},
		{7, 0, 0},
		{7, -3, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestTotalPagesMatchesCeiling(t *testing.T) {
	for limit := 1; limit <= 15; limit++ {
		for total := 0; total <= 60; total++ {
			want := total / limit
			if total%limit != 0 {
				want++
			}
			if got := TotalPages(total, limit); got != want {
				t.Fatalf("TotalPages(%d, %d) = %d, want %d", total, limit, got, want)
			}
		}
	}
}

func TestParsePageClamps(t *testing.T) {
	cases := []struct {
		query string
		want  Page
	}{
		{"", Page{Page: 1, Limit: 10}},
		{"page=3&limit=25", Page{Page: 3, Limit: 25}},
		{"limit=0", Page{Page: 1, Limit: 10}},
		{"limit=-5", Page{Page: 1, Limit: 10}},
		{"page=0", Page{Page: 1, Limit: 10}},
		{"page=-2", Page{Page: 1, Limit: 10}},
		{"page=x&limit=y", Page{Page: 1, Limit: 10}},
		{"limit=5000", Page{Page: 1, Limit: MaxLimit}},
		{"page=922337203685477581&limit=100", Page{Page: MaxPage, Limit: MaxLimit}},
		{"page=99999999999999999999999", Page{Page: 1, Limit: 10}},
	}
	for _, tc := range cases {
		values, _ := url.ParseQuery(tc.query)
		if got := ParsePage(values); got != tc.want {
			t.Errorf("ParsePage(%q) = %+v, want %+v", tc.query, got, tc.want)
		}
	}
}

func TestOffset(t *testing.T) {
	if got := (Page{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("offset = %d", got)
	}
	if got := (Page{Page: 1, Limit: 10}).Offset(); got != 0 {
		t.Fatalf("offset = %d", got)
	}
}

func TestOffsetOfHugePageStaysPositive(t *testing.T) {
	values, _ := url.ParseQuery("page=922337203685477581&limit=100")
	page := ParsePage(values)
	if got, want := page.Offset(), (MaxPage-1)*MaxLimit; got != want {
		t.Fatalf("offset = %d, want %d", got, want)
	}
}

func TestNewPaginationWithLimitZeroNeverDivides(t *testing.T) {
	values, _ := url.ParseQuery("limit=0")
	p := NewPagination(ParsePage(values), 42)
	if p.Limit != DefaultLimit || p.TotalPages != 5 {
		t.Fatalf("pagination %+v", p)
	}
}
