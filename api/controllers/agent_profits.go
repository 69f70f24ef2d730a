package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bundlehub-backend/api/responses"
	"github.com/angelmondragon/bundlehub-backend/api/validators"
	"github.com/angelmondragon/bundlehub-backend/internal/agents"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

// AdminAgentProfits lists profits filtered by agentId, status, startDate and endDate.
func AdminAgentProfits(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter agents.ProfitFilter
		var err error
		if filter.AgentID, err = validators.ParseQueryUUID(r, "agentId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.From, err = validators.ParseQueryTime(r, "startDate", false); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = validators.ParseQueryTime(r, "endDate", true); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseAgentProfitStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			filter.Status = &status
		}
		rows, err := svc.ListProfits(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AdminAgentProfitStats(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.AdminProfitStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminDepositProfit pays a pending profit into the agent's wallet.
func AdminDepositProfit(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return profitPayout(svc.DepositProfit, logg)
}

// AdminSendCashProfit records a pending profit as paid out of band.
func AdminSendCashProfit(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return profitPayout(svc.SendCashProfit, logg)
}

func profitPayout(pay func(context.Context, uuid.UUID) (*models.AgentProfit, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profitID, err := validators.ParseUUIDParam(r, "profitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profit, err := pay(r.Context(), profitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profit)
	}
}
