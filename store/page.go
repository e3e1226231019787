package store

import "errors"

var ErrPageOutOfRange = errors.New("page out of range")

// Page is one slice of a paginated submission listing.
type Page[T any] struct {
	Number   int `json:"number"`
	PerPage  int `json:"per_page"`
	Count    int `json:"count"`
	NumPages int `json:"num_pages"`
	Items    []T `json:"items"`
}

// newPage validates number against count. The first page always exists,
// even when there is nothing to show.
func newPage[T any](number, perPage, count int) (Page[T], error) {
	if perPage < 1 {
		perPage = 1
	}
	numPages := 1
	if count > 0 {
		numPages = (count + perPage - 1) / perPage
	}
	if number < 1 || number > numPages {
		return Page[T]{}, ErrPageOutOfRange
	}
	return Page[T]{
		Number:   number,
		PerPage:  perPage,
		Count:    count,
		NumPages: numPages,
		Items:    []T{},
	}, nil
}

func (p Page[T]) offset() int {
	return (p.Number - 1) * p.PerPage
}

func (p Page[T]) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page[T]) HasPrevious() bool {
	return p.Number > 1
}
