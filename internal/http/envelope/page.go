package envelope

import "math"

// Paginated is implemented by collections that Success expands into
// {items, pagination}.
type Paginated interface {
	PageItems() any
	PageMeta() Pagination
}

// Pagination is the metadata block of a paginated envelope. From and To are the
// 1-based positions of the first and last item on the page and are null when
// the page is empty.
type Pagination struct {
	CurrentPage int   `json:"current_page" example:"1"`
	PerPage     int   `json:"per_page" example:"15"`
	Total       int64 `json:"total" example:"42"`
	LastPage    int   `json:"last_page" example:"3"`
	From        *int  `json:"from" example:"1"`
	To          *int  `json:"to" example:"15"`
}

type pageData struct {
	Items      any        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Page is one page of a length-aware collection.
type Page[T any] struct {
	Items   []T
	Page    int
	PerPage int
	Total   int64
}

// NewPage returns a page of items. page and perPage below 1 are treated as 1,
// and a nil items slice becomes empty so it serializes as [].
func NewPage[T any](items []T, page, perPage int, total int64) Page[T] {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: page, PerPage: perPage, Total: total}
}

// PageItems implements Paginated.
func (p Page[T]) PageItems() any { return p.Items }

// PageMeta implements Paginated. It applies the same floor of 1 as NewPage, so
// a Page literal with a zero PerPage is safe. From and To stay null when the
// page holds no items or its position does not fit in an int.
func (p Page[T]) PageMeta() Pagination {
	page, perPage := max(p.Page, 1), max(p.PerPage, 1)
	last := int64(1)
	if p.Total > 0 {
		last = (p.Total-1)/int64(perPage) + 1
	}
	m := Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       p.Total,
		LastPage:    int(last),
	}
	n := len(p.Items)
	if n == 0 || page-1 > (math.MaxInt-n)/perPage {
		return m
	}
	from := (page-1)*perPage + 1
	to := from + n - 1
	m.From, m.To = &from, &to
	return m
}
