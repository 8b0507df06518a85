package entity

import "strings"

// SortMode selects one of the special listing orders.
type SortMode string

const (
	SortDefault   SortMode = ""
	SortExpensive SortMode = "expensive"
	SortCheap     SortMode = "cheap"
	SortRating    SortMode = "rating"
)

const (
	// ModeLimit caps the expensive and cheap listings.
	ModeLimit = 5
	// MinTopRating is the lowest rating included in the rating listing.
	MinTopRating = 4.0
)

// ParseSortMode maps a query value to a SortMode. Unknown values select the
// default order.
func ParseSortMode(s string) SortMode {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SortExpensive, SortCheap, SortRating:
		return m
	default:
		return SortDefault
	}
}

// ProductFilter narrows a catalog listing. CategoryID and Search are applied
// first, then Mode orders and limits what is left.
type ProductFilter struct {
	CategoryID int64
	Search     string
	Mode       SortMode
}

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	HasNext  bool `json:"has_next"`
}

// Paginate cuts the 1-based page out of items. Pages past the end are empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = len(items)
		if size == 0 {
			size = 1
		}
	}
	start := (page - 1) * size
	p := Page[T]{Items: []T{}, Page: page, PageSize: size, Total: len(items)}
	if start >= len(items) {
		return p
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	p.Items = items[start:end]
	p.HasNext = end < len(items)
	return p
}
