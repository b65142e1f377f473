package query

import "strconv"

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*MaxLimit inside a 32-bit int.
	MaxPage      = 10_000_000
)

type Page struct {
	Page  int
	Limit int
}

// ParsePage reads page and limit. Values below 1 or unparsable fall back to
// page 1 and DefaultLimit; page is capped at MaxPage and limit at MaxLimit.
func ParsePage(values Values) Page {
	page := parsePositive(values.Get("page"), 1)
	if page > MaxPage {
		page = MaxPage
	}
	limit := parsePositive(values.Get("limit"), DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(p Page, total int) Pagination {
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: TotalPages(total, p.Limit),
	}
}

// TotalPages is ceil(total/limit), and 0 when limit < 1.
func TotalPages(total, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func parsePositive(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
