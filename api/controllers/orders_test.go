package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/aforsev/storefront-backend/api/middleware"
	"github.com/aforsev/storefront-backend/internal/orders"
	"github.com/aforsev/storefront-backend/pkg/enums"
	pkgerrors "github.com/aforsev/storefront-backend/pkg/errors"
	"github.com/aforsev/storefront-backend/pkg/pagination"
)

type fakeOrderService struct {
	userID  uuid.UUID
	orderID uuid.UUID
	input   orders.CheckoutInput
	status  enums.OrderStatus
	filters orders.AdminOrderFilters
	order   *orders.OrderDTO
	list    *orders.OrderListResult
	err     error
}

func (f *fakeOrderService) Checkout(ctx context.Context, userID uuid.UUID, input orders.CheckoutInput) (*orders.OrderDTO, error) {
	f.userID = userID
	f.input = input
	return f.order, f.err
}

func (f *fakeOrderService) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderListResult, error) {
	f.userID = userID
	return f.list, f.err
}

func (f *fakeOrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	f.userID = userID
	f.orderID = orderID
	return f.order, f.err
}

func (f *fakeOrderService) ListAllOrders(ctx context.Context, params pagination.Params, filters orders.AdminOrderFilters) (*orders.OrderListResult, error) {
	f.filters = filters
	return f.list, f.err
}

func (f *fakeOrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*orders.OrderDTO, error) {
	f.orderID = orderID
	f.status = status
	return f.order, f.err
}

func newFakeOrderService() *fakeOrderService {
	return &fakeOrderService{
		order: &orders.OrderDTO{ID: uuid.New()},
		list:  &orders.OrderListResult{},
	}
}

func TestCheckoutRequiresUser(t *testing.T) {
	handler := Checkout(newFakeOrderService(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"shipping_address":"1 Main St"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	svc := newFakeOrderService()
	handler := Checkout(svc, nil)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"shipping_address":"1 Main St","notes":"ring twice"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.userID != userID {
		t.Fatalf("expected checkout for %s got %s", userID, svc.userID)
	}
	if svc.input.ShippingAddress != "1 Main St" {
		t.Fatalf("unexpected shipping address %q", svc.input.ShippingAddress)
	}
}

func TestCheckoutRejectsMissingAddress(t *testing.T) {
	handler := Checkout(newFakeOrderService(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutPropagatesInsufficientStock(t *testing.T) {
	svc := newFakeOrderService()
	svc.order = nil
	svc.err = pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"shipping_address":"1 Main St"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderDetailScopesToUser(t *testing.T) {
	svc := newFakeOrderService()
	handler := OrderDetail(svc, nil)
	userID := uuid.New()
	orderID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.userID != userID || svc.orderID != orderID {
		t.Fatalf("expected scoped lookup got user=%s order=%s", svc.userID, svc.orderID)
	}
}

func TestAdminListOrdersParsesFilters(t *testing.T) {
	svc := newFakeOrderService()
	handler := AdminListOrders(svc, nil)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?status=confirmed&user_id="+userID.String(), nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.filters.Status == nil || *svc.filters.Status != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected status filter %+v", svc.filters.Status)
	}
	if svc.filters.UserID == nil || *svc.filters.UserID != userID {
		t.Fatalf("unexpected user filter %+v", svc.filters.UserID)
	}
}

func TestAdminListOrdersRejectsUnknownStatus(t *testing.T) {
	handler := AdminListOrders(newFakeOrderService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?status=bogus", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	svc := newFakeOrderService()
	handler := AdminUpdateOrderStatus(svc, nil)
	orderID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"shipped"}`))
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.orderID != orderID {
		t.Fatalf("expected order %s got %s", orderID, svc.orderID)
	}
	if svc.status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped got %s", svc.status)
	}
}

func TestAdminUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	handler := AdminUpdateOrderStatus(newFakeOrderService(), nil)
	orderID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"teleported"}`))
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
