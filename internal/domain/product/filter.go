package product

import "fmt"

// Sortable columns accepted by ListFilter.SortBy.
const (
	SortByPrice     = "price"
	SortByCreatedAt = "created_at"
	SortByName      = "name"
)

// Sort directions accepted by ListFilter.Order.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// DefaultLimit is the page size used when the caller does not provide one.
const DefaultLimit = 100

// ListFilter narrows and orders a product listing.
type ListFilter struct {
	Skip     int
	Limit    int
	Search   string
	Category string
	Region   string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string
	Order    string
}

// Validate checks pagination and sort parameters.
func (f ListFilter) Validate() error {
	if f.Skip < 0 {
		return fmt.Errorf("%w: skip must be non-negative", ErrInvalidFilter)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit must be non-negative", ErrInvalidFilter)
	}
	switch f.SortBy {
	case "", SortByPrice, SortByCreatedAt, SortByName:
	default:
		return fmt.Errorf("%w: sort_by must be one of price, created_at, name", ErrInvalidFilter)
	}
	switch f.Order {
	case "", OrderAsc, OrderDesc:
	default:
		return fmt.Errorf("%w: order must be asc or desc", ErrInvalidFilter)
	}
	return nil
}

// Descending reports whether the explicit sort runs high to low.
func (f ListFilter) Descending() bool {
	return f.Order == OrderDesc
}
