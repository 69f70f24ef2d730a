package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bundlehub-backend/api/responses"
	"github.com/angelmondragon/bundlehub-backend/api/validators"
	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/internal/reporting"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

// parseLedgerFilter reads startDate, endDate, type, search, amountFilter and
// userId. amountFilter accepts positive/credit and negative/debit.
func parseLedgerFilter(r *http.Request) (ledger.ListFilter, error) {
	var filter ledger.ListFilter
	var err error
	if filter.From, err = validators.ParseQueryTime(r, "startDate", false); err != nil {
		return filter, err
	}
	if filter.To, err = validators.ParseQueryTime(r, "endDate", true); err != nil {
		return filter, err
	}
	if filter.UserID, err = validators.ParseQueryUUID(r, "userId"); err != nil {
		return filter, err
	}
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		typ, parseErr := enums.ParseLedgerEntryType(raw)
		if parseErr != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid transaction type")
		}
		filter.Type = &typ
	}
	filter.Search = validators.SanitizeString(q.Get("search"), 100)
	switch strings.ToLower(strings.TrimSpace(q.Get("amountFilter"))) {
	case "":
	case "positive", "credit":
		filter.Direction = ledger.DirectionCredit
	case "negative", "debit":
		filter.Direction = ledger.DirectionDebit
	default:
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "amountFilter must be positive or negative")
	}
	return filter, nil
}

// MyTransactions pages the caller's ledger, newest first.
func MyTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := parseLedgerFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseCursorParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForUser(r.Context(), userID, filter, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func MyTransactionSummary(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.BalanceSummary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func AdminTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseLedgerFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseCursorParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListAll(r.Context(), filter, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminTransactionStats(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseLedgerFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.TransactionStats(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func AdminBalanceSheet(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := validators.ParseQueryTime(r, "startDate", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "endDate", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sheet, err := svc.BalanceSheet(r.Context(), reporting.Range{From: from, To: to})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sheet)
	}
}

func AdminOrderStats(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.OrderStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
