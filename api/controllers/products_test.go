package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/aforsev/storefront-backend/internal/products"
	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
)

type fakeProductService struct {
	listInput  products.ListProductsInput
	productID  uuid.UUID
	list       *products.ProductListResult
	product    *products.ProductDTO
	categories []string
	err        error
}

func (f *fakeProductService) ListProducts(ctx context.Context, input products.ListProductsInput) (*products.ProductListResult, error) {
	f.listInput = input
	return f.list, f.err
}

func (f *fakeProductService) ListCategories(ctx context.Context) ([]string, error) {
	return f.categories, f.err
}

func (f *fakeProductService) GetProduct(ctx context.Context, id uuid.UUID) (*products.ProductDTO, error) {
	f.productID = id
	return f.product, f.err
}

func (f *fakeProductService) CreateProduct(ctx context.Context, input products.CreateProductInput) (*products.ProductDTO, error) {
	return f.product, f.err
}

func (f *fakeProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input products.UpdateProductInput) (*products.ProductDTO, error) {
	f.productID = id
	return f.product, f.err
}

func (f *fakeProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	f.productID = id
	return f.err
}

func TestListProductsParsesFilters(t *testing.T) {
	svc := &fakeProductService{list: &products.ProductListResult{}}
	handler := ListProducts(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=10&category=coffee&price_min=5&price_max=20&featured=true&q=beans", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	input := svc.listInput
	if input.Pagination.Limit != 10 {
		t.Fatalf("expected limit 10 got %d", input.Pagination.Limit)
	}
	if input.Filters.Category == nil || *input.Filters.Category != "coffee" {
		t.Fatalf("unexpected category filter %+v", input.Filters.Category)
	}
	if input.Filters.PriceMin == nil || !input.Filters.PriceMin.Equal(decimalFromString(t, "5")) {
		t.Fatalf("unexpected price_min %+v", input.Filters.PriceMin)
	}
	if input.Filters.Featured == nil || !*input.Filters.Featured {
		t.Fatal("expected featured filter set")
	}
	if input.Filters.Query != "beans" {
		t.Fatalf("unexpected query %q", input.Filters.Query)
	}
	if input.IncludeInactive {
		t.Fatal("public listing must exclude inactive products")
	}
}

func TestListProductsRejectsInvertedPriceRange(t *testing.T) {
	svc := &fakeProductService{list: &products.ProductListResult{}}
	handler := ListProducts(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?price_min=30&price_max=10", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListProductsRejectsNegativePrice(t *testing.T) {
	svc := &fakeProductService{list: &products.ProductListResult{}}
	handler := ListProducts(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?price_min=-1", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetProductRejectsMalformedID(t *testing.T) {
	svc := &fakeProductService{}
	handler := GetProduct(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil)
	req = withURLParam(req, "productId", "not-a-uuid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetProductMapsNotFound(t *testing.T) {
	svc := &fakeProductService{err: pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found or unavailable")}
	handler := GetProduct(svc, nil)
	productID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+productID.String(), nil)
	req = withURLParam(req, "productId", productID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if svc.productID != productID {
		t.Fatalf("expected lookup of %s got %s", productID, svc.productID)
	}
}

func TestListProductCategories(t *testing.T) {
	svc := &fakeProductService{categories: []string{"coffee", "tea"}}
	handler := ListProductCategories(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/categories", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Categories []string `json:"categories"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Categories) != 2 {
		t.Fatalf("expected 2 categories got %d", len(envelope.Data.Categories))
	}
}
