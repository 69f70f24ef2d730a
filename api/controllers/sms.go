package controllers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/api/responses"
	"github.com/angelmondragon/bundlehub-backend/api/validators"
	"github.com/angelmondragon/bundlehub-backend/internal/sms"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

type smsIngestRequest struct {
	From      string `json:"from" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Timestamp string `json:"timestamp"`
}

type smsIngestResponse struct {
	Status    string           `json:"status"`
	ID        string           `json:"id,omitempty"`
	Reference string           `json:"reference,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// SMSIngest stores a forwarded payment notice. Texts that are not payment
// notices are acknowledged and dropped so the forwarder does not retry them.
func SMSIngest(svc sms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req smsIngestRequest
		if err := validators.DecodeJSONBodyLenient(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.Ingest(r.Context(), validators.SanitizeString(req.From, 64), req.Message)
		if errors.Is(err, sms.ErrUnparseable) {
			if logg != nil {
				logg.Info(logg.WithField(r.Context(), "sms_from", req.From), "sms.ignored")
			}
			responses.WriteSuccess(w, smsIngestResponse{Status: "ignored"})
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, smsIngestResponse{
			Status:    "stored",
			ID:        msg.ID.String(),
			Reference: msg.Reference,
			Amount:    &msg.Amount,
		})
	}
}

type verifyAmountRequest struct {
	TransactionID string           `json:"transactionId" validate:"required"`
	ProductPrice  *decimal.Decimal `json:"productPrice" validate:"required"`
}

// SMSVerifyAmount checks that an unconsumed payment covers a price.
func SMSVerifyAmount(svc sms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyAmountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		check, err := svc.VerifyAmount(r.Context(), validators.SanitizeString(req.TransactionID, 64), *req.ProductPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, check)
	}
}

func AdminSMSUnprocessed(svc sms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListUnprocessed(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"messages": rows, "count": len(rows)})
	}
}

func AdminSMSPaymentReceived(svc sms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListPaymentReceived(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"messages": rows, "count": len(rows)})
	}
}

func AdminSMSMarkProcessed(svc sms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "smsId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.MarkProcessed(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, msg)
	}
}
