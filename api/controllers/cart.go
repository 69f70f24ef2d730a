package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bundlehub-backend/api/responses"
	"github.com/angelmondragon/bundlehub-backend/api/validators"
	"github.com/angelmondragon/bundlehub-backend/internal/cart"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

type addCartItemRequest struct {
	ProductID    uuid.UUID `json:"productId" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,min=1,max=1000"`
	MobileNumber *string   `json:"mobileNumber" validate:"omitempty,max=20,msisdn"`
}

// CartAddItem adds a product at its current price, merging identical lines.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req addCartItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.AddItem(r.Context(), userID, cart.AddItemInput{
			ProductID:    req.ProductID,
			Quantity:     req.Quantity,
			MobileNumber: validators.SanitizeOptionalPhone(req.MobileNumber),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, c)
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RemoveItem(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}
