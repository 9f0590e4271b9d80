package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "catalog/backend/internal/domain/product"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, name, description, brand, category, region, price, rating, stock,
tags, image_url, purchase_count, views, mode, created_at`

// sortColumns whitelists the ORDER BY targets a caller may request.
var sortColumns = map[string]string{
	domain.SortByPrice:     "price",
	domain.SortByCreatedAt: "created_at",
	domain.SortByName:      "name",
}

// ProductRepository persists products in PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

var _ domain.Repository = (*ProductRepository)(nil)

// NewProductRepository constructs a repository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product and fills in the store-assigned id.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
INSERT INTO products (name, description, brand, category, region, price, rating, stock,
                      tags, image_url, purchase_count, views, mode, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id
`
	err := r.pool.QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.Brand,
		product.Category,
		product.Region,
		product.Price,
		product.Rating,
		product.Stock,
		product.Tags,
		product.ImageURL,
		product.PurchaseCount,
		product.Views,
		product.Mode,
		product.CreatedAt,
	).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID fetches a product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

// List returns one page of products matching the filter plus the unpaginated total.
func (r *ProductRepository) List(ctx context.Context, filter domain.ListFilter) (domain.Page, error) {
	where, args := listConditions(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return domain.Page{}, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + orderClause(filter)
	query += fmt.Sprintf(" OFFSET $%d LIMIT $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Skip, filter.Limit)

	items, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Total: total, Items: items}, nil
}

// ListByMode pages through products carrying the given mode label, ordered by id.
func (r *ProductRepository) ListByMode(ctx context.Context, mode string, skip, limit int) (domain.Page, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE mode = $1`, mode).Scan(&total); err != nil {
		return domain.Page{}, fmt.Errorf("count products by mode: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE mode = $1 ORDER BY id ASC OFFSET $2 LIMIT $3`
	items, err := r.queryProducts(ctx, query, mode, skip, limit)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Total: total, Items: items}, nil
}

// TopByPurchaseCount returns the best sellers.
func (r *ProductRepository) TopByPurchaseCount(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY purchase_count DESC, id ASC LIMIT $1`
	return r.queryProducts(ctx, query, limit)
}

// Similar returns same-category products inside an inclusive price band.
func (r *ProductRepository) Similar(ctx context.Context, category string, excludeID int64, minPrice, maxPrice float64, limit int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
WHERE category = $1 AND id <> $2 AND price BETWEEN $3 AND $4
ORDER BY rating DESC, id ASC
LIMIT $5`
	return r.queryProducts(ctx, query, category, excludeID, minPrice, maxPrice, limit)
}

// SearchCandidates returns products containing any keyword in a searchable column.
func (r *ProductRepository) SearchCandidates(ctx context.Context, keywords []string, limit int) ([]*domain.Product, error) {
	if len(keywords) == 0 {
		return []*domain.Product{}, nil
	}
	clauses := make([]string, 0, len(keywords))
	args := make([]any, 0, len(keywords)+1)
	for _, kw := range keywords {
		args = append(args, likePattern(kw))
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(name ILIKE $%[1]d OR description ILIKE $%[1]d OR category ILIKE $%[1]d OR tags ILIKE $%[1]d OR brand ILIKE $%[1]d)", n))
	}
	args = append(args, limit)
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + strings.Join(clauses, " OR ") +
		fmt.Sprintf(" ORDER BY id ASC LIMIT $%d", len(args))
	return r.queryProducts(ctx, query, args...)
}

// Stats aggregates the catalog for the dashboard.
func (r *ProductRepository) Stats(ctx context.Context, topN int) (domain.Stats, error) {
	var stats domain.Stats
	var totalStock int64
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(AVG(price), 0), COALESCE(AVG(rating), 0), COALESCE(SUM(stock), 0)
FROM products`).Scan(&stats.TotalProducts, &stats.AveragePrice, &stats.AverageRating, &totalStock)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("aggregate products: %w", err)
	}
	stats.TotalStock = int(totalStock)

	rows, err := r.pool.Query(ctx, `
SELECT category, COUNT(*), AVG(price)
FROM products
GROUP BY category
ORDER BY COUNT(*) DESC, category ASC`)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("aggregate categories: %w", err)
	}
	stats.Categories, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CategoryStat, error) {
		var c domain.CategoryStat
		err := row.Scan(&c.Category, &c.Count, &c.AveragePrice)
		return c, err
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("aggregate categories: %w", err)
	}

	stats.TopRated, err = r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY rating DESC, id ASC LIMIT $1`, topN)
	if err != nil {
		return domain.Stats{}, err
	}
	stats.MostViewed, err = r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY views DESC, id ASC LIMIT $1`, topN)
	if err != nil {
		return domain.Stats{}, err
	}
	return stats, nil
}

// Update writes product updates to the database.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	const query = `
UPDATE products
SET name = $2,
    description = $3,
    brand = $4,
    category = $5,
    region = $6,
    price = $7,
    rating = $8,
    stock = $9,
    tags = $10,
    image_url = $11,
    purchase_count = $12,
    views = $13,
    mode = $14
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Brand,
		product.Category,
		product.Region,
		product.Price,
		product.Rating,
		product.Stock,
		product.Tags,
		product.ImageURL,
		product.PurchaseCount,
		product.Views,
		product.Mode,
	)
	if err != nil {
		return fmt.Errorf("update product %d: %w", product.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a product by id.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM products WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// listConditions renders the WHERE clause for a list filter with positional arguments.
func listConditions(f domain.ListFilter) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := next(likePattern(strings.ToLower(f.Search)))
		conds = append(conds, fmt.Sprintf(
			"(LOWER(name) LIKE %[1]s OR LOWER(brand) LIKE %[1]s OR LOWER(description) LIKE %[1]s OR LOWER(tags) LIKE %[1]s)", p))
	}
	if f.Category != "" {
		conds = append(conds, "category = "+next(f.Category))
	}
	if f.Region != "" {
		conds = append(conds, "region = "+next(f.Region))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+next(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+next(*f.MaxPrice))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderClause sorts by the requested column, or by id when none is given so that
// repeated pages stay stable.
func orderClause(f domain.ListFilter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		return " ORDER BY id ASC"
	}
	dir := "ASC"
	if f.Descending() {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps term for a substring LIKE match, escaping LIKE metacharacters.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Brand,
		&p.Category,
		&p.Region,
		&p.Price,
		&p.Rating,
		&p.Stock,
		&p.Tags,
		&p.ImageURL,
		&p.PurchaseCount,
		&p.Views,
		&p.Mode,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
