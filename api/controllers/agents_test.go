package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/internal/agents"
	"github.com/angelmondragon/bundlehub-backend/internal/topups"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
)

type stubAgents struct {
	agents.Service
	approveFn    func(ctx context.Context, agentID, orderID uuid.UUID) (*models.AgentStoreOrder, error)
	depositFn    func(ctx context.Context, profitID uuid.UUID) (*models.AgentProfit, error)
	storeOrderFn func(ctx context.Context, slug string, input agents.StoreOrderInput) (*agents.StoreOrderResult, error)
}

func (s stubAgents) ApproveOrder(ctx context.Context, agentID, orderID uuid.UUID) (*models.AgentStoreOrder, error) {
	return s.approveFn(ctx, agentID, orderID)
}

func (s stubAgents) DepositProfit(ctx context.Context, profitID uuid.UUID) (*models.AgentProfit, error) {
	return s.depositFn(ctx, profitID)
}

func (s stubAgents) CreateStoreOrder(ctx context.Context, slug string, input agents.StoreOrderInput) (*agents.StoreOrderResult, error) {
	return s.storeOrderFn(ctx, slug, input)
}

type stubTopUps struct {
	topups.Service
	approveFn func(ctx context.Context, input topups.ApproveInput) (*topups.Approval, error)
}

func (s stubTopUps) Approve(ctx context.Context, input topups.ApproveInput) (*topups.Approval, error) {
	return s.approveFn(ctx, input)
}

func TestAgentApproveOrderUsesCallerAsAgent(t *testing.T) {
	agentID := uuid.New()
	orderID := uuid.New()
	svc := stubAgents{approveFn: func(_ context.Context, gotAgent, gotOrder uuid.UUID) (*models.AgentStoreOrder, error) {
		if gotAgent != agentID || gotOrder != orderID {
			t.Fatalf("unexpected ids %s %s", gotAgent, gotOrder)
		}
		return &models.AgentStoreOrder{ID: gotOrder, Status: enums.AgentStoreOrderApproved}, nil
	}}
	req := withURLParams(newRequest(http.MethodPost, "/", ""), map[string]string{"orderId": orderID.String()})
	req = asActor(req, agentID, enums.UserRolePremium)
	if resp := serve(AgentApproveOrder(svc, nil), req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicStoreOrderMapsListing(t *testing.T) {
	listingID := uuid.New()
	svc := stubAgents{storeOrderFn: func(_ context.Context, slug string, input agents.StoreOrderInput) (*agents.StoreOrderResult, error) {
		if slug != "kofi-data-lx1" || input.ListingID != listingID || input.TransactionID != "TX-7" {
			t.Fatalf("unexpected call %s %+v", slug, input)
		}
		return &agents.StoreOrderResult{}, nil
	}}
	body := `{"customerName":"Esi","customerPhone":"0201234567","storefrontProductId":"` + listingID.String() + `","transactionId":"TX-7"}`
	req := withURLParams(newRequest(http.MethodPost, "/", body), map[string]string{"slug": "kofi-data-lx1"})
	if resp := serve(PublicStoreOrder(svc, nil), req); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestAdminDepositProfitConflict(t *testing.T) {
	svc := stubAgents{depositFn: func(context.Context, uuid.UUID) (*models.AgentProfit, error) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "profit already processed")
	}}
	req := withURLParams(newRequest(http.MethodPost, "/", ""), map[string]string{"profitId": uuid.NewString()})
	if resp := serve(AdminDepositProfit(svc, nil), req); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	bad := withURLParams(newRequest(http.MethodPost, "/", ""), map[string]string{"profitId": "nope"})
	if resp := serve(AdminDepositProfit(svc, nil), bad); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminApproveTopUp(t *testing.T) {
	adminID := uuid.New()
	userID := uuid.New()
	svc := stubTopUps{approveFn: func(_ context.Context, input topups.ApproveInput) (*topups.Approval, error) {
		if input.AdminID != adminID || input.UserID != userID || input.Reference != "MOMO-1" {
			t.Fatalf("unexpected input %+v", input)
		}
		if !input.Amount.Equal(decimal.RequireFromString("50")) {
			t.Fatalf("unexpected amount %s", input.Amount)
		}
		return &topups.Approval{}, nil
	}}
	req := withURLParams(newRequest(http.MethodPost, "/", `{"amount":50,"reference":"MOMO-1"}`), map[string]string{"userId": userID.String()})
	req = asActor(req, adminID, enums.UserRoleAdmin)
	if resp := serve(AdminApproveTopUp(svc, nil), req); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}
