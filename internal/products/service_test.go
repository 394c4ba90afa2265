package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()

	db := setupProductTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr, "expected domain error, got %v", err)
	assert.Equal(t, code, domainErr.Code())
}

func TestServiceCreateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	description := "single origin"
	dto, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:        "  Morning Roast  ",
		Description: &description,
		Price:       decimal.RequireFromString("14.50"),
		Category:    "coffee",
		Tags:        []string{"light", "fruity"},
		Stock:       25,
		IsActive:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Morning Roast", dto.Name)
	assert.True(t, dto.Price.Equal(decimal.RequireFromString("14.50")))
	assert.True(t, dto.InStock)
	assert.Equal(t, []string{"light", "fruity"}, dto.Tags)
}

func TestServiceCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Category: "coffee", Price: decimal.Zero})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "X", Price: decimal.Zero})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name: "X", Category: "coffee",
		Price: decimal.RequireFromString("-1"),
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name: "X", Category: "coffee",
		Price: decimal.Zero, Stock: -1,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceUpdateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "Original",
		Price:    decimal.RequireFromString("10.00"),
		Category: "coffee",
		Stock:    5,
		IsActive: true,
	})
	require.NoError(t, err)

	newName := "Renamed"
	newPrice := decimal.RequireFromString("11.00")
	newStock := 8
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{
		Name:  &newName,
		Price: &newPrice,
		Stock: &newStock,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, 8, updated.Stock)
	// Untouched fields survive.
	assert.Equal(t, "coffee", updated.Category)

	badPrice := decimal.RequireFromString("-2")
	_, err = svc.UpdateProduct(ctx, created.ID, UpdateProductInput{Price: &badPrice})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.UpdateProduct(ctx, uuid.New(), UpdateProductInput{Name: &newName})
	requireCode(t, err, pkgerrors.CodeProductNotFound)
}

func TestServiceDeleteProductIsSoft(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "To Retire",
		Price:    decimal.RequireFromString("10.00"),
		Category: "coffee",
		IsActive: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	// The row still exists, it just stopped being purchasable.
	model, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, model.IsActive)

	_, err = svc.GetProduct(ctx, created.ID)
	requireCode(t, err, pkgerrors.CodeProductNotFound)

	err = svc.DeleteProduct(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeProductNotFound)
}

func TestServiceGetProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "Visible",
		Price:    decimal.RequireFromString("10.00"),
		Category: "coffee",
		Stock:    1,
		IsActive: true,
	})
	require.NoError(t, err)

	dto, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, dto.ID)

	_, err = svc.GetProduct(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeProductNotFound)
}

func TestServiceListProducts(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	createProduct(t, repo.db, "Old", "coffee", "10.00", base)
	createProduct(t, repo.db, "New", "coffee", "12.00", base.Add(time.Minute))

	page, err := svc.ListProducts(ctx, ListProductsInput{})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "New", page.Products[0].Name)
}
