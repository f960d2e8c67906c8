package pagination

import (
	"math"
	"strings"
)

const (
	MaxPageSize     = 10000
	DefaultPageSize = 10

	// MaxPageNumber keeps (PageNumber-1)*PageSize within int for any allowed size
	MaxPageNumber = math.MaxInt32 / MaxPageSize
)

// Filter is the page window plus free-text search requested by a caller
type Filter struct {
	PageNumber int    `form:"pageNumber" json:"page_number"`
	PageSize   int    `form:"pageSize" json:"page_size"`
	Search     string `form:"search" json:"search"`
}

// Normalize clamps the page size to MaxPageSize, the page number to
// MaxPageNumber, and fills in defaults
func (f Filter) Normalize() Filter {
	if f.PageNumber < 1 {
		f.PageNumber = 1
	}
	if f.PageNumber > MaxPageNumber {
		f.PageNumber = MaxPageNumber
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Meta describes the page returned and its neighbours
type Meta struct {
	TotalPages   int `json:"total_pages"`
	PageSize     int `json:"page_size"`
	TotalCount   int `json:"total_count"`
	PageNumber   int `json:"page_number"`
	NextPage     int `json:"next_page"`
	PreviousPage int `json:"previous_page"`
	FirstPage    int `json:"first_page"`
	LastPage     int `json:"last_page"`
}

// NewMeta computes page metadata. pageSize must be positive.
func NewMeta(totalCount, pageNumber, pageSize int) Meta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	// min(p+1, total) and max(p-1, 1) without wrapping at the int bounds
	next := totalPages
	if pageNumber < totalPages {
		next = pageNumber + 1
	}
	previous := 1
	if pageNumber > 2 {
		previous = pageNumber - 1
	}
	return Meta{
		TotalPages:   totalPages,
		PageSize:     pageSize,
		TotalCount:   totalCount,
		PageNumber:   pageNumber,
		NextPage:     next,
		PreviousPage: previous,
		FirstPage:    1,
		LastPage:     totalPages,
	}
}

// Page is one window of results
type Page[T any] struct {
	Meta Meta `json:"meta"`
	Data []T  `json:"data"`
}

// Paginate filters items by a case-insensitive substring match of
// filter.Search against titleOf, then slices the requested window.
// items must already be ordered.
func Paginate[T any](items []T, filter Filter, titleOf func(T) string) Page[T] {
	filter = filter.Normalize()

	matched := items
	if filter.Search != "" && titleOf != nil {
		needle := strings.ToLower(filter.Search)
		matched = make([]T, 0, len(items))
		for _, item := range items {
			if strings.Contains(strings.ToLower(titleOf(item)), needle) {
				matched = append(matched, item)
			}
		}
	}

	total := len(matched)
	meta := NewMeta(total, filter.PageNumber, filter.PageSize)

	if filter.PageNumber > meta.TotalPages {
		return Page[T]{Meta: meta, Data: []T{}}
	}
	start := (filter.PageNumber - 1) * filter.PageSize
	end := min(start+filter.PageSize, total)

	data := make([]T, end-start)
	copy(data, matched[start:end])
	return Page[T]{Meta: meta, Data: data}
}

// Map converts the data of a page, keeping its metadata
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Data))
	for i, item := range p.Data {
		out[i] = fn(item)
	}
	return Page[U]{Meta: p.Meta, Data: out}
}
