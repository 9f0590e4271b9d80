package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	domain "catalog/backend/internal/domain/product"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListConditions(t *testing.T) {
	min, max := 100.0, 500.0
	where, args := listConditions(domain.ListFilter{
		Search:   "Blue_Tooth",
		Category: "Audio",
		Region:   "India",
		MinPrice: &min,
		MaxPrice: &max,
	})

	assert.Equal(t,
		" WHERE (LOWER(name) LIKE $1 OR LOWER(brand) LIKE $1 OR LOWER(description) LIKE $1 OR LOWER(tags) LIKE $1)"+
			" AND category = $2 AND region = $3 AND price >= $4 AND price <= $5",
		where)
	assert.Equal(t, []any{`%blue\_tooth%`, "Audio", "India", 100.0, 500.0}, args)
}

func TestListConditionsEmpty(t *testing.T) {
	where, args := listConditions(domain.ListFilter{Limit: 10})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, " ORDER BY id ASC", orderClause(domain.ListFilter{}))
	assert.Equal(t, " ORDER BY id ASC", orderClause(domain.ListFilter{Order: domain.OrderDesc}))
	assert.Equal(t, " ORDER BY price DESC, id ASC",
		orderClause(domain.ListFilter{SortBy: domain.SortByPrice, Order: domain.OrderDesc}))
	assert.Equal(t, " ORDER BY created_at ASC, id ASC",
		orderClause(domain.ListFilter{SortBy: domain.SortByCreatedAt}))
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS products")
	for _, s := range stmts {
		assert.NotEmpty(t, s)
	}
}

// openTestDatabase connects to TEST_DATABASE_URL or skips the test.
func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := New(ctx, dsn, PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	_, err = db.Pool.Exec(ctx, "TRUNCATE products RESTART IDENTITY")
	require.NoError(t, err)
	return db
}

func TestProductRepositoryIntegration(t *testing.T) {
	db := openTestDatabase(t)
	repo := NewProductRepository(db.Pool)
	ctx := context.Background()

	seed := []*domain.Product{
		{Name: "Boat Airdopes", Category: "Audio", Brand: "boAt", Price: 1000, Rating: 4.1, Stock: 5, Tags: "tws,bluetooth", Mode: "general"},
		{Name: "JBL Tune", Category: "Audio", Brand: "JBL", Price: 1500, Rating: 4.5, Stock: 0, Mode: "general"},
		{Name: "Sony WH", Category: "Audio", Brand: "Sony", Price: 1501, Rating: 4.9, Stock: 2, Mode: "premium"},
		{Name: "Washing Machine", Category: "Appliances", Brand: "LG", Price: 20000, Rating: 4.0, Stock: 1, PurchaseCount: 40, Mode: "general"},
	}
	for _, p := range seed {
		p.CreatedAt = time.Now().UTC()
		require.NoError(t, repo.Create(ctx, p))
		require.NotZero(t, p.ID)
	}

	page, err := repo.List(ctx, domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, seed[0].ID, page.Items[0].ID)
	assert.Equal(t, seed[1].ID, page.Items[1].ID)

	page, err = repo.List(ctx, domain.ListFilter{Limit: 10, Search: "JBL"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	similar, err := repo.Similar(ctx, "Audio", seed[0].ID, 500, 1500, 5)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, seed[1].ID, similar[0].ID)

	candidates, err := repo.SearchCandidates(ctx, []string{"bluetooth", "washing machine"}, 50)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	modePage, err := repo.ListByMode(ctx, "premium", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, modePage.Total)

	top, err := repo.TopByPurchaseCount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, seed[3].ID, top[0].ID)

	stats, err := repo.Stats(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalProducts)
	assert.Equal(t, 8, stats.TotalStock)
	assert.Len(t, stats.Categories, 2)

	seed[0].Price = 999
	require.NoError(t, repo.Update(ctx, seed[0]))
	got, err := repo.GetByID(ctx, seed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 999.0, got.Price)

	require.NoError(t, repo.Delete(ctx, seed[0].ID))
	_, err = repo.GetByID(ctx, seed[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 999999), domain.ErrNotFound)
}
