package product

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a product could not be located.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidProduct indicates a create or update payload that fails validation.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidFilter signals list parameters outside the supported range.
	ErrInvalidFilter = errors.New("invalid product filter")
	// ErrStoreUnavailable marks a result that is empty because the backing store failed,
	// as opposed to empty because nothing matched.
	ErrStoreUnavailable = errors.New("product store unavailable")
)

// Product captures the state of an individual catalog entry.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Brand         string    `json:"brand"`
	Category      string    `json:"category"`
	Region        string    `json:"region"`
	Price         float64   `json:"price"`
	Rating        float64   `json:"rating"`
	Stock         int       `json:"stock"`
	Tags          string    `json:"tags"`
	ImageURL      string    `json:"image_url"`
	PurchaseCount int       `json:"purchase_count"`
	Views         int       `json:"views"`
	Mode          string    `json:"mode"`
	CreatedAt     time.Time `json:"created_at"`
}

// Patch holds the fields of a partial update. Nil fields are left untouched.
type Patch struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Brand         *string  `json:"brand"`
	Category      *string  `json:"category"`
	Region        *string  `json:"region"`
	Price         *float64 `json:"price"`
	Rating        *float64 `json:"rating"`
	Stock         *int     `json:"stock"`
	Tags          *string  `json:"tags"`
	ImageURL      *string  `json:"image_url"`
	PurchaseCount *int     `json:"purchase_count"`
	Views         *int     `json:"views"`
	Mode          *string  `json:"mode"`
}

// Apply copies every field present in the patch onto the product.
func (p *Product) Apply(patch Patch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Brand != nil {
		p.Brand = *patch.Brand
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Region != nil {
		p.Region = *patch.Region
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Rating != nil {
		p.Rating = *patch.Rating
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Tags != nil {
		p.Tags = *patch.Tags
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.PurchaseCount != nil {
		p.PurchaseCount = *patch.PurchaseCount
	}
	if patch.Views != nil {
		p.Views = *patch.Views
	}
	if patch.Mode != nil {
		p.Mode = *patch.Mode
	}
}

// Page is the paginated envelope returned by list queries.
type Page struct {
	Total int        `json:"total"`
	Items []*Product `json:"items"`
}

// EmptyPage returns a page with a non-nil, empty item slice so it encodes as [].
func EmptyPage() Page {
	return Page{Total: 0, Items: []*Product{}}
}

// CategoryStat aggregates products within one category.
type CategoryStat struct {
	Category     string  `json:"category"`
	Count        int     `json:"count"`
	AveragePrice float64 `json:"average_price"`
}

// Stats summarises the catalog for the dashboard.
type Stats struct {
	TotalProducts int            `json:"total_products"`
	AveragePrice  float64        `json:"average_price"`
	AverageRating float64        `json:"average_rating"`
	TotalStock    int            `json:"total_stock"`
	Categories    []CategoryStat `json:"categories"`
	TopRated      []*Product     `json:"top_rated"`
	MostViewed    []*Product     `json:"most_viewed"`
}
