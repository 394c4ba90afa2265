package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aforsev/storefront-backend/pkg/db/models"
	"github.com/aforsev/storefront-backend/pkg/pagination"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:products?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  category TEXT NOT NULL,
  image_url TEXT,
  tags TEXT,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM products")
	})
	return db
}

func createProduct(t *testing.T, db *gorm.DB, name, category, price string, created time.Time, mutate ...func(*models.Product)) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  category,
		Stock:     10,
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, fn := range mutate {
		fn(product)
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestRepositoryListProducts_pagination(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewRepository(db)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	createProduct(t, db, "First", "coffee", "10.00", base)
	createProduct(t, db, "Second", "coffee", "12.00", base.Add(time.Minute))
	createProduct(t, db, "Third", "coffee", "14.00", base.Add(2*time.Minute))

	page, err := repo.ListProducts(context.Background(), ListProductsInput{
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Third", page.Products[0].Name)
	assert.Equal(t, "Second", page.Products[1].Name)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListProducts(context.Background(), ListProductsInput{
		Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.Equal(t, "First", rest.Products[0].Name)
	assert.Empty(t, rest.NextCursor)
}

func TestRepositoryListProducts_filters(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewRepository(db)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	createProduct(t, db, "House Blend", "coffee", "10.00", base)
	createProduct(t, db, "Green Tea", "tea", "8.00", base.Add(time.Minute))
	createProduct(t, db, "Featured Roast", "coffee", "18.00", base.Add(2*time.Minute), func(p *models.Product) {
		p.IsFeatured = true
	})
	createProduct(t, db, "Retired Roast", "coffee", "9.00", base.Add(3*time.Minute), func(p *models.Product) {
		p.IsActive = false
	})

	category := "coffee"
	page, err := repo.ListProducts(context.Background(), ListProductsInput{
		Filters:    ProductListFilters{Category: &category},
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)

	featured := true
	page, err = repo.ListProducts(context.Background(), ListProductsInput{
		Filters:    ProductListFilters{Featured: &featured},
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Featured Roast", page.Products[0].Name)

	priceMin := decimal.RequireFromString("9.00")
	priceMax := decimal.RequireFromString("11.00")
	page, err = repo.ListProducts(context.Background(), ListProductsInput{
		Filters:    ProductListFilters{PriceMin: &priceMin, PriceMax: &priceMax},
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "House Blend", page.Products[0].Name)

	page, err = repo.ListProducts(context.Background(), ListProductsInput{
		Filters:    ProductListFilters{Query: "green"},
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Green Tea", page.Products[0].Name)

	// Admin listing still sees the soft-deleted row.
	page, err = repo.ListProducts(context.Background(), ListProductsInput{
		IncludeInactive: true,
		Pagination:      pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, page.Products, 4)
}

func TestRepositoryListCategories(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewRepository(db)

	base := time.Now().Add(-time.Hour)
	createProduct(t, db, "A", "tea", "5.00", base)
	createProduct(t, db, "B", "coffee", "6.00", base)
	createProduct(t, db, "C", "coffee", "7.00", base)
	createProduct(t, db, "D", "gear", "8.00", base, func(p *models.Product) {
		p.IsActive = false
	})

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"coffee", "tea"}, categories)
}

func TestRepositoryGetActiveProduct(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	active := createProduct(t, db, "Active", "coffee", "10.00", time.Now())
	inactive := createProduct(t, db, "Inactive", "coffee", "10.00", time.Now(), func(p *models.Product) {
		p.IsActive = false
	})

	got, err := repo.GetActiveProduct(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = repo.GetActiveProduct(ctx, inactive.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryDecrementStock(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := createProduct(t, db, "Limited", "coffee", "10.00", time.Now(), func(p *models.Product) {
		p.Stock = 3
	})

	affected, err := repo.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Remaining stock is 1; asking for 2 must not go negative.
	affected, err = repo.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	loaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Stock)
}

func TestRepositoryDeactivateProduct(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := createProduct(t, db, "Doomed", "coffee", "10.00", time.Now())

	affected, err := repo.DeactivateProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	loaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)

	affected, err = repo.DeactivateProduct(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}
