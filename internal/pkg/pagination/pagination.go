package pagination

import (
	"github.com/gofiber/fiber/v2"
)

// Params represents pagination parameters
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// Meta represents pagination metadata
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
	RangeStart int  `json:"rangeStart"`
	RangeEnd   int  `json:"rangeEnd"`
}

// PageLink is one entry of the rendered page window
type PageLink struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Active   bool `json:"active,omitempty"`
}

// DefaultLimit is the default number of items per page
const DefaultLimit = 6

// MaxLimit is the maximum number of items per page
const MaxLimit = 100

// GetParams extracts pagination parameters from request, falling back to
// the given values when a parameter is absent or invalid
func GetParams(c *fiber.Ctx, fallback Params) *Params {
	page := c.QueryInt("page", fallback.Page)
	limit := c.QueryInt("limit", fallback.Limit)

	// Validate page
	if page < 1 {
		page = 1
	}

	// Validate limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return &Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// PageCount returns ceil(total/limit), never less than 1
func PageCount(total, limit int) int {
	if limit < 1 {
		limit = DefaultLimit
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	if pages < 1 {
		return 1
	}
	return pages
}

// Clamp forces page into [1, pageCount]
func Clamp(page, pageCount int) int {
	if page > pageCount {
		page = pageCount
	}
	if page < 1 {
		page = 1
	}
	return page
}

// GetMeta calculates pagination metadata
func GetMeta(params *Params, total int) *Meta {
	totalPages := PageCount(total, params.Limit)
	page := Clamp(params.Page, totalPages)

	start, end := 0, 0
	if total > 0 {
		start = (page-1)*params.Limit + 1
		end = page * params.Limit
		if end > total {
			end = total
		}
	}

	return &Meta{
		Page:       page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
		RangeStart: start,
		RangeEnd:   end,
	}
}

// Window returns the page links to render: the first and last page, the
// current page with one neighbour on each side, and an ellipsis marker for
// every collapsed gap
func Window(current, totalPages int) []PageLink {
	if totalPages < 1 {
		totalPages = 1
	}
	current = Clamp(current, totalPages)

	links := []PageLink{{Page: 1, Active: current == 1}}

	start := max(2, current-1)
	end := min(totalPages-1, current+1)

	if start > 2 {
		links = append(links, PageLink{Ellipsis: true})
	}
	for p := start; p <= end; p++ {
		links = append(links, PageLink{Page: p, Active: p == current})
	}
	if end < totalPages-1 {
		links = append(links, PageLink{Ellipsis: true})
	}
	if totalPages > 1 {
		links = append(links, PageLink{Page: totalPages, Active: current == totalPages})
	}
	return links
}
