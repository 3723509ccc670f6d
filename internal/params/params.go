package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// URL: /venues?page=2&limit=20
// → ParsePagination() → Pagination{Limit:20, Page:2, Offset:20}
// → store returns the page + total count
// → ComputeMeta(total) → fills TotalPages, HasNext, etc.
// Pagination holds pagination info and computed metadata.
type Pagination struct {
	Limit      int  `json:"limit"`       // items per page
	Offset     int  `json:"offset"`      // SQL OFFSET value
	Page       int  `json:"page"`        // Current Page number
	Total      int  `json:"total"`       // Total items matching the query
	TotalPages int  `json:"total_pages"` // Total pages available
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Bounds configures the default and maximum page size.
type Bounds struct {
	DefaultLimit int
	MaxLimit     int
}

// ListBounds is used by every venue listing: 10 per page, at most 50.
var ListBounds = Bounds{DefaultLimit: 10, MaxLimit: 50}

// New clamps page to >= 1 and limit to [1, MaxLimit]. A zero limit means "not
// given" and takes the default.
func New(page, limit int, b Bounds) Pagination {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = b.DefaultLimit
	case limit < 1:
		limit = 1
	case limit > b.MaxLimit:
		limit = b.MaxLimit
	}
	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// ParsePagination parses ?limit=...&page=... safely. Careful, keys are case sensitive.
func ParsePagination(q url.Values, b Bounds) Pagination {
	var page, limit int

	if pageStr := strings.TrimSpace(q.Get("page")); pageStr != "" {
		if v, err := strconv.Atoi(pageStr); err == nil {
			page = v
		}
	}
	if limitStr := strings.TrimSpace(q.Get("limit")); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			limit = v
		}
	}
	return New(page, limit, b)
}

// ComputeMeta updates pagination after fetching total count.
func (p *Pagination) ComputeMeta(total int) {
	p.Total = total
	if p.Limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	p.HasPrev = p.Page > 1
	p.HasNext = (p.Page * p.Limit) < total
}

// Window returns the [start, end) slice bounds of this page over n items.
func (p Pagination) Window(n int) (int, int) {
	start := min(p.Offset, n)
	end := min(start+p.Limit, n)
	return start, end
}
