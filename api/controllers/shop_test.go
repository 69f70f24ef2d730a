package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bundlehub-backend/internal/orders"
	"github.com/angelmondragon/bundlehub-backend/internal/shop"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

type stubShop struct {
	shop.Service
	placeFn  func(ctx context.Context, input shop.PlaceOrderInput) (*shop.PlaceOrderResult, error)
	statusFn func(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*orders.StatusUpdateResult, error)
}

func (s stubShop) PlaceOrder(ctx context.Context, input shop.PlaceOrderInput) (*shop.PlaceOrderResult, error) {
	return s.placeFn(ctx, input)
}

func (s stubShop) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*orders.StatusUpdateResult, error) {
	return s.statusFn(ctx, id, status)
}

func TestShopPlaceOrderAccepts(t *testing.T) {
	svc := stubShop{placeFn: func(_ context.Context, input shop.PlaceOrderInput) (*shop.PlaceOrderResult, error) {
		if input.TransactionID != "TX-9" || input.ProductPrice.String() != "20" {
			t.Fatalf("unexpected input %+v", input)
		}
		return &shop.PlaceOrderResult{Success: true, RunAt: time.Now()}, nil
	}}
	body := `{"fullName":"Ama","phoneNumber":"0241112222","transactionId":"TX-9","productId":"p1","productName":"5GB","productPrice":"20"}`
	resp := serve(ShopPlaceOrder(svc, nil), newRequest(http.MethodPost, "/api/v1/shop/order", body))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}
}

func TestShopPlaceOrderRejectsUnknownFields(t *testing.T) {
	svc := stubShop{placeFn: func(context.Context, shop.PlaceOrderInput) (*shop.PlaceOrderResult, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}
	body := `{"fullName":"Ama","phoneNumber":"0241112222","transactionId":"TX-9","productId":"p1","productName":"5GB","productPrice":"20","admin":true}`
	resp := serve(ShopPlaceOrder(svc, nil), newRequest(http.MethodPost, "/", body))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminShopOrderStatusNormalisesCanceled(t *testing.T) {
	id := uuid.New()
	svc := stubShop{statusFn: func(_ context.Context, got uuid.UUID, status enums.OrderStatus) (*orders.StatusUpdateResult, error) {
		if got != id {
			t.Fatalf("unexpected id %s", got)
		}
		if status != enums.OrderStatusCancelled {
			t.Fatalf("expected Cancelled got %s", status)
		}
		return orders.TerminalResult(enums.OrderStatusCompleted), nil
	}}
	req := withURLParams(newRequest(http.MethodPost, "/", `{"status":"Canceled"}`), map[string]string{"shopOrderId": id.String()})
	resp := serve(AdminShopOrderStatus(svc, nil), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("terminal refusal should still be 200, got %d", resp.Code)
	}

	bad := withURLParams(newRequest(http.MethodPost, "/", `{"status":"Shipped"}`), map[string]string{"shopOrderId": id.String()})
	if resp := serve(AdminShopOrderStatus(svc, nil), bad); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", resp.Code)
	}
}
