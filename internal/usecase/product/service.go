package product

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"catalog/backend/internal/cache"
	domain "catalog/backend/internal/domain/product"
	"catalog/backend/internal/logging"

	"go.uber.org/zap"
)

const (
	defaultSuggestionBand  = 500
	defaultSuggestionLimit = 5
	trendingLimit          = 10
	statsTopN              = 5
	defaultMode            = "general"
)

// Service encapsulates product use cases.
type Service struct {
	repo         domain.Repository
	cache        *cache.Accessor
	logger       *zap.Logger
	nowFunc      func() time.Time
	ttl          time.Duration
	band         float64
	suggestLimit int
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l).Named("product") }
}

// WithTTL overrides the lifetime of cached reads.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSuggestions sets the absolute price band and result cap of Suggest.
func WithSuggestions(band float64, limit int) Option {
	return func(s *Service) {
		if band >= 0 {
			s.band = band
		}
		if limit > 0 {
			s.suggestLimit = limit
		}
	}
}

// WithClock replaces the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.nowFunc = now }
}

// NewService constructs a product service. accessor may be nil to run without a cache.
func NewService(repo domain.Repository, accessor *cache.Accessor, opts ...Option) *Service {
	if accessor == nil {
		accessor = cache.NewAccessor(nil, nil, nil)
	}
	s := &Service{
		repo:         repo,
		cache:        accessor,
		logger:       zap.NewNop(),
		nowFunc:      time.Now,
		ttl:          cache.DefaultTTL,
		band:         defaultSuggestionBand,
		suggestLimit: defaultSuggestionLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput contains the payload required for product creation.
type CreateInput struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Brand         string  `json:"brand"`
	Category      string  `json:"category"`
	Region        string  `json:"region"`
	Price         float64 `json:"price"`
	Rating        float64 `json:"rating"`
	Stock         int     `json:"stock"`
	Tags          string  `json:"tags"`
	ImageURL      string  `json:"image_url"`
	PurchaseCount int     `json:"purchase_count"`
	Views         int     `json:"views"`
	Mode          string  `json:"mode"`
}

// Create stores a new product after validation. Store failures are returned to the caller.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Product, error) {
	product := &domain.Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Brand:         input.Brand,
		Category:      input.Category,
		Region:        input.Region,
		Price:         input.Price,
		Rating:        input.Rating,
		Stock:         input.Stock,
		Tags:          input.Tags,
		ImageURL:      input.ImageURL,
		PurchaseCount: input.PurchaseCount,
		Views:         input.Views,
		Mode:          strings.ToLower(strings.TrimSpace(input.Mode)),
		CreatedAt:     s.nowFunc().UTC(),
	}
	if product.Mode == "" {
		product.Mode = defaultMode
	}
	if err := validate(product); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return product, nil
}

// Get fetches a product by id, reading through the detail cache.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	product, _, err := cache.Remember(ctx, s.cache, detailKey(id), s.ttl,
		func(ctx context.Context) (*domain.Product, error) {
			return s.repo.GetByID(ctx, id)
		})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Update applies a partial update to a product.
func (s *Service) Update(ctx context.Context, id int64, patch domain.Patch) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Apply(patch)
	product.Name = strings.TrimSpace(product.Name)
	if patch.Mode != nil {
		product.Mode = strings.ToLower(strings.TrimSpace(product.Mode))
	}
	if err := validate(product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return product, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// List returns one page of products for the filter. A store failure yields an empty
// page together with an error wrapping domain.ErrStoreUnavailable.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.Page, error) {
	if err := filter.Validate(); err != nil {
		return domain.EmptyPage(), err
	}
	key := listKey(filter)
	page, _, err := cache.Remember(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) (domain.Page, error) {
			return s.repo.List(ctx, filter)
		})
	if err != nil {
		s.logger.Error("list products failed", zap.String("key", key), zap.Error(err))
		return domain.EmptyPage(), fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return normalizePage(page), nil
}

// ListByMode pages through products carrying a mode label.
func (s *Service) ListByMode(ctx context.Context, mode string, skip, limit int) (domain.Page, error) {
	if skip < 0 || limit < 0 {
		return domain.EmptyPage(), fmt.Errorf("%w: skip and limit must be non-negative", domain.ErrInvalidFilter)
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	key := modeKey(mode, skip, limit)
	page, _, err := cache.Remember(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) (domain.Page, error) {
			return s.repo.ListByMode(ctx, mode, skip, limit)
		})
	if err != nil {
		s.logger.Error("list products by mode failed", zap.String("mode", mode), zap.Error(err))
		return domain.EmptyPage(), fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return normalizePage(page), nil
}

// Trending returns the best sellers and whether they were served from cache.
func (s *Service) Trending(ctx context.Context) ([]*domain.Product, bool, error) {
	products, hit, err := cache.Remember(ctx, s.cache, trendingKey, s.ttl,
		func(ctx context.Context) ([]*domain.Product, error) {
			return s.repo.TopByPurchaseCount(ctx, trendingLimit)
		})
	if err != nil {
		s.logger.Error("trending products failed", zap.Error(err))
		return []*domain.Product{}, false, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if products == nil {
		products = []*domain.Product{}
	}
	return products, hit, nil
}

// Suggest returns products in the same category priced within the configured band of the
// base product, highest rated first. It returns domain.ErrNotFound when the base product
// does not exist and an empty list when it has no category.
func (s *Service) Suggest(ctx context.Context, id int64) ([]*domain.Product, error) {
	base, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("load suggestion base failed", zap.Int64("id", id), zap.Error(err))
		return []*domain.Product{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if strings.TrimSpace(base.Category) == "" {
		return []*domain.Product{}, nil
	}

	minPrice := math.Max(0, base.Price-s.band)
	maxPrice := base.Price + s.band
	similar, err := s.repo.Similar(ctx, base.Category, base.ID, minPrice, maxPrice, s.suggestLimit)
	if err != nil {
		s.logger.Error("similar products failed", zap.Int64("id", id), zap.Error(err))
		return []*domain.Product{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if similar == nil {
		similar = []*domain.Product{}
	}
	return similar, nil
}

// Stats returns the dashboard aggregates.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	stats, _, err := cache.Remember(ctx, s.cache, statsKey, s.ttl,
		func(ctx context.Context) (domain.Stats, error) {
			return s.repo.Stats(ctx, statsTopN)
		})
	if err != nil {
		s.logger.Error("catalog stats failed", zap.Error(err))
		return emptyStats(), fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if stats.Categories == nil {
		stats.Categories = []domain.CategoryStat{}
	}
	if stats.TopRated == nil {
		stats.TopRated = []*domain.Product{}
	}
	if stats.MostViewed == nil {
		stats.MostViewed = []*domain.Product{}
	}
	return stats, nil
}

// invalidate evicts every derived read after a successful write. The write has already
// committed, so eviction outlives a cancelled request.
func (s *Service) invalidate(ctx context.Context, ids ...int64) {
	ctx = context.WithoutCancel(ctx)
	s.cache.Invalidate(ctx, listPrefix, trendingKey, statsKey, searchPrefix)
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, detailKey(id))
	}
	s.cache.Delete(ctx, keys...)
}

func validate(p *domain.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidProduct)
	case p.Price < 0:
		return fmt.Errorf("%w: price must be non-negative", domain.ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must be non-negative", domain.ErrInvalidProduct)
	}
	return nil
}

func normalizePage(p domain.Page) domain.Page {
	if p.Items == nil {
		p.Items = []*domain.Product{}
	}
	return p
}

func emptyStats() domain.Stats {
	return domain.Stats{
		Categories: []domain.CategoryStat{},
		TopRated:   []*domain.Product{},
		MostViewed: []*domain.Product{},
	}
}
