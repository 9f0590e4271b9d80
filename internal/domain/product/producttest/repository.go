// Package producttest provides an in-memory product.Repository for tests.
package producttest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"catalog/backend/internal/domain/product"
)

// ErrInjected is returned by every method while a Repository is failing.
var ErrInjected = errors.New("injected store failure")

// Repository keeps products in memory and counts calls per method.
type Repository struct {
	mu      sync.Mutex
	nextID  int64
	items   map[int64]*product.Product
	calls   map[string]int
	failing bool
}

var _ product.Repository = (*Repository)(nil)

// NewRepository returns a repository seeded with the given products. Seeds without an id
// receive the next sequential one.
func NewRepository(seed ...*product.Product) *Repository {
	r := &Repository{
		items: make(map[int64]*product.Product),
		calls: make(map[string]int),
	}
	for _, p := range seed {
		cp := *p
		if cp.ID == 0 {
			r.nextID++
			cp.ID = r.nextID
		} else if cp.ID > r.nextID {
			r.nextID = cp.ID
		}
		r.items[cp.ID] = &cp
	}
	return r
}

// Calls reports how many times method has been invoked.
func (r *Repository) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

// TotalCalls reports the number of calls across all methods.
func (r *Repository) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

// SetFailing makes every subsequent call return ErrInjected until reset.
func (r *Repository) SetFailing(failing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = failing
}

func (r *Repository) enter(method string) error {
	r.calls[method]++
	if r.failing {
		return ErrInjected
	}
	return nil
}

func (r *Repository) Create(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Create"); err != nil {
		return err
	}
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.items[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Repository) List(_ context.Context, f product.ListFilter) (product.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("List"); err != nil {
		return product.Page{}, err
	}
	matched := r.filter(func(p *product.Product) bool { return matchesFilter(p, f) })
	sortProducts(matched, f)
	return product.Page{Total: len(matched), Items: paginate(matched, f.Skip, f.Limit)}, nil
}

func (r *Repository) ListByMode(_ context.Context, mode string, skip, limit int) (product.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ListByMode"); err != nil {
		return product.Page{}, err
	}
	matched := r.filter(func(p *product.Product) bool { return p.Mode == mode })
	return product.Page{Total: len(matched), Items: paginate(matched, skip, limit)}, nil
}

func (r *Repository) TopByPurchaseCount(_ context.Context, limit int) ([]*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("TopByPurchaseCount"); err != nil {
		return nil, err
	}
	all := r.filter(func(*product.Product) bool { return true })
	sort.SliceStable(all, func(i, j int) bool { return all[i].PurchaseCount > all[j].PurchaseCount })
	return paginate(all, 0, limit), nil
}

func (r *Repository) Similar(_ context.Context, category string, excludeID int64, minPrice, maxPrice float64, limit int) ([]*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Similar"); err != nil {
		return nil, err
	}
	matched := r.filter(func(p *product.Product) bool {
		return p.Category == category && p.ID != excludeID && p.Price >= minPrice && p.Price <= maxPrice
	})
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Rating > matched[j].Rating })
	return paginate(matched, 0, limit), nil
}

func (r *Repository) SearchCandidates(_ context.Context, keywords []string, limit int) ([]*product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("SearchCandidates"); err != nil {
		return nil, err
	}
	matched := r.filter(func(p *product.Product) bool {
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			for _, field := range []string{p.Name, p.Description, p.Category, p.Tags, p.Brand} {
				if strings.Contains(strings.ToLower(field), kw) {
					return true
				}
			}
		}
		return false
	})
	return paginate(matched, 0, limit), nil
}

func (r *Repository) Stats(_ context.Context, topN int) (product.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Stats"); err != nil {
		return product.Stats{}, err
	}
	all := r.filter(func(*product.Product) bool { return true })
	stats := product.Stats{TotalProducts: len(all), Categories: []product.CategoryStat{}}
	if len(all) == 0 {
		stats.TopRated, stats.MostViewed = []*product.Product{}, []*product.Product{}
		return stats, nil
	}

	var priceSum, ratingSum float64
	byCategory := map[string]*product.CategoryStat{}
	var order []string
	for _, p := range all {
		priceSum += p.Price
		ratingSum += p.Rating
		stats.TotalStock += p.Stock
		c, ok := byCategory[p.Category]
		if !ok {
			c = &product.CategoryStat{Category: p.Category}
			byCategory[p.Category] = c
			order = append(order, p.Category)
		}
		c.Count++
		c.AveragePrice += p.Price
	}
	stats.AveragePrice = priceSum / float64(len(all))
	stats.AverageRating = ratingSum / float64(len(all))
	for _, name := range order {
		c := byCategory[name]
		c.AveragePrice /= float64(c.Count)
		stats.Categories = append(stats.Categories, *c)
	}
	sort.SliceStable(stats.Categories, func(i, j int) bool {
		if stats.Categories[i].Count != stats.Categories[j].Count {
			return stats.Categories[i].Count > stats.Categories[j].Count
		}
		return stats.Categories[i].Category < stats.Categories[j].Category
	})

	rated := append([]*product.Product(nil), all...)
	sort.SliceStable(rated, func(i, j int) bool { return rated[i].Rating > rated[j].Rating })
	stats.TopRated = paginate(rated, 0, topN)
	viewed := append([]*product.Product(nil), all...)
	sort.SliceStable(viewed, func(i, j int) bool { return viewed[i].Views > viewed[j].Views })
	stats.MostViewed = paginate(viewed, 0, topN)
	return stats, nil
}

func (r *Repository) Update(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Update"); err != nil {
		return err
	}
	if _, ok := r.items[p.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("Delete"); err != nil {
		return err
	}
	if _, ok := r.items[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// filter returns copies of matching products ordered by id.
func (r *Repository) filter(keep func(*product.Product) bool) []*product.Product {
	out := []*product.Product{}
	for _, p := range r.items {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matchesFilter(p *product.Product, f product.ListFilter) bool {
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		found := false
		for _, field := range []string{p.Name, p.Brand, p.Description, p.Tags} {
			if strings.Contains(strings.ToLower(field), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Region != "" && p.Region != f.Region {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

func sortProducts(items []*product.Product, f product.ListFilter) {
	var compare func(a, b *product.Product) int
	switch f.SortBy {
	case product.SortByPrice:
		compare = func(a, b *product.Product) int { return cmpFloat(a.Price, b.Price) }
	case product.SortByName:
		compare = func(a, b *product.Product) int { return strings.Compare(a.Name, b.Name) }
	case product.SortByCreatedAt:
		compare = func(a, b *product.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := compare(items[i], items[j])
		if f.Descending() {
			c = -c
		}
		return c < 0
	})
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func paginate(items []*product.Product, skip, limit int) []*product.Product {
	if skip >= len(items) {
		return []*product.Product{}
	}
	items = items[skip:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
