package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/api/responses"
	"github.com/angelmondragon/bundlehub-backend/api/validators"
	"github.com/angelmondragon/bundlehub-backend/internal/shop"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

type placeShopOrderRequest struct {
	FullName           string          `json:"fullName" validate:"required,max=120"`
	PhoneNumber        string          `json:"phoneNumber" validate:"required,max=20,msisdn"`
	TransactionID      string          `json:"transactionId" validate:"required,max=64"`
	ProductID          string          `json:"productId" validate:"required"`
	ProductName        string          `json:"productName" validate:"required,max=200"`
	ProductDescription string          `json:"productDescription" validate:"max=1000"`
	ProductPrice       decimal.Decimal `json:"productPrice"`
}

// ShopPlaceOrder accepts a guest order and schedules its payment check.
func ShopPlaceOrder(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeShopOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.PlaceOrder(r.Context(), shop.PlaceOrderInput{
			FullName:           req.FullName,
			PhoneNumber:        validators.SanitizePhone(req.PhoneNumber),
			TransactionID:      req.TransactionID,
			ProductID:          req.ProductID,
			ProductName:        req.ProductName,
			ProductDescription: req.ProductDescription,
			ProductPrice:       req.ProductPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

type complaintRequest struct {
	FullName      string          `json:"fullName" validate:"required,max=120"`
	MobileNumber  string          `json:"mobileNumber" validate:"required,max=20,msisdn"`
	ProductName   string          `json:"productName" validate:"required,max=200"`
	ProductCost   decimal.Decimal `json:"productCost"`
	TransactionID string          `json:"transactionId" validate:"required,max=64"`
	Complaint     string          `json:"complaint" validate:"required,max=2000"`
	OrderTime     time.Time       `json:"orderTime" validate:"required"`
}

func ShopFileComplaint(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req complaintRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		complaint, err := svc.FileComplaint(r.Context(), shop.ComplaintInput{
			FullName:      req.FullName,
			MobileNumber:  validators.SanitizePhone(req.MobileNumber),
			ProductName:   req.ProductName,
			ProductCost:   req.ProductCost,
			TransactionID: req.TransactionID,
			Complaint:     req.Complaint,
			OrderTime:     req.OrderTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, complaint)
	}
}

func AdminShopOrders(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func decodeOrderStatus(r *http.Request) (enums.OrderStatus, error) {
	var req statusRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		return "", err
	}
	status, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return status, nil
}

// AdminShopOrderStatus moves a shop order. Terminal orders answer 200 with
// success=false.
func AdminShopOrderStatus(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "shopOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := decodeOrderStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminComplaints(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListComplaints(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AdminComplaintsCount(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.PendingComplaintsCount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"count": n})
	}
}

func AdminComplaintStatus(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "complaintId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseComplaintStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		complaint, err := svc.UpdateComplaintStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, complaint)
	}
}

func AdminComplaintDelete(svc shop.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "complaintId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteComplaint(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
