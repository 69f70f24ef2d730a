package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/api/responses"
	"github.com/angelmondragon/bundlehub-backend/api/validators"
	"github.com/angelmondragon/bundlehub-backend/internal/agents"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

// The agent is always the authenticated caller; storefront routes take no
// agent id from the path.

func AgentStorefrontGet(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := svc.GetStorefront(r.Context(), agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

type storefrontRequest struct {
	StoreName  string  `json:"storeName" validate:"required,max=120"`
	MomoNumber *string `json:"momoNumber" validate:"omitempty,max=20,msisdn"`
	MomoName   *string `json:"momoName" validate:"omitempty,max=120"`
}

func AgentStorefrontSave(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req storefrontRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := svc.SaveStorefront(r.Context(), agentID, agents.StorefrontInput{
			StoreName:  req.StoreName,
			MomoNumber: validators.SanitizeOptionalPhone(req.MomoNumber),
			MomoName:   req.MomoName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

func AgentStorefrontRegenerateLink(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := svc.RegenerateLink(r.Context(), agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

func AgentAvailableProducts(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.AvailableProducts(r.Context(), agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AgentListProducts(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListProducts(r.Context(), agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type listingRequest struct {
	ProductID   uuid.UUID       `json:"productId" validate:"required"`
	CustomPrice decimal.Decimal `json:"customPrice"`
}

func (l listingRequest) toInput() agents.ListingInput {
	return agents.ListingInput{ProductID: l.ProductID, CustomPrice: l.CustomPrice}
}

func AgentAddProduct(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req listingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.AddProduct(r.Context(), agentID, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

type bulkListingRequest struct {
	Products []listingRequest `json:"products" validate:"required,min=1,max=200,dive"`
}

// AgentAddProducts lists several products at once. Unknown products are skipped.
func AgentAddProducts(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req bulkListingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inputs := make([]agents.ListingInput, len(req.Products))
		for i, p := range req.Products {
			inputs[i] = p.toInput()
		}
		listings, err := svc.AddProducts(r.Context(), agentID, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listings)
	}
}

type updatePriceRequest struct {
	StorefrontProductID uuid.UUID       `json:"storefrontProductId" validate:"required"`
	CustomPrice         decimal.Decimal `json:"customPrice"`
}

func AgentUpdateProductPrice(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updatePriceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.UpdateProductPrice(r.Context(), agentID, req.StorefrontProductID, req.CustomPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func AgentRemoveProduct(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveProduct(r.Context(), agentID, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func AgentListOrders(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var status *enums.AgentStoreOrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, parseErr := enums.ParseAgentStoreOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			status = &parsed
		}
		rows, err := svc.ListOrders(r.Context(), agentID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AgentApproveOrder(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return agentOrderDecision(svc.ApproveOrder, logg)
}

func AgentRejectOrder(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return agentOrderDecision(svc.RejectOrder, logg)
}

func agentOrderDecision(decide func(context.Context, uuid.UUID, uuid.UUID) (*models.AgentStoreOrder, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := decide(r.Context(), agentID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AgentOrdersInCart(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ApprovedOrdersInCart(r.Context(), agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type markSubmittedRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1,max=500"`
}

func AgentMarkOrdersSubmitted(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req markSubmittedRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		n, err := svc.MarkOrdersSubmitted(r.Context(), agentID, req.OrderIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updatedCount": n})
	}
}

func AgentProfitStats(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.ProfitStats(r.Context(), agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// PublicStore renders a storefront for customers by its slug.
func PublicStore(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := svc.PublicStore(r.Context(), strings.TrimSpace(chi.URLParam(r, "slug")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

type storeOrderRequest struct {
	CustomerName        string    `json:"customerName" validate:"required,max=120"`
	CustomerPhone       string    `json:"customerPhone" validate:"required,max=20,msisdn"`
	StorefrontProductID uuid.UUID `json:"storefrontProductId" validate:"required"`
	TransactionID       string    `json:"transactionId" validate:"required,max=64"`
}

// PublicStoreOrder settles a customer purchase on an agent storefront.
func PublicStoreOrder(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTransactionID(ctx, req.TransactionID)
		}
		result, err := svc.CreateStoreOrder(ctx, strings.TrimSpace(chi.URLParam(r, "slug")), agents.StoreOrderInput{
			CustomerName:  req.CustomerName,
			CustomerPhone: validators.SanitizePhone(req.CustomerPhone),
			ListingID:     req.StorefrontProductID,
			TransactionID: req.TransactionID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
