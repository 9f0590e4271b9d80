package product

import "context"

// Repository defines persistence behaviours for products.
type Repository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, filter ListFilter) (Page, error)
	ListByMode(ctx context.Context, mode string, skip, limit int) (Page, error)
	TopByPurchaseCount(ctx context.Context, limit int) ([]*Product, error)
	// Similar returns products in category priced within [minPrice, maxPrice],
	// excluding excludeID, highest rated first.
	Similar(ctx context.Context, category string, excludeID int64, minPrice, maxPrice float64, limit int) ([]*Product, error)
	// SearchCandidates returns products where any keyword appears, case-insensitively,
	// in name, description, category, tags or brand.
	SearchCandidates(ctx context.Context, keywords []string, limit int) ([]*Product, error)
	Stats(ctx context.Context, topN int) (Stats, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
}
