package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bundlehub-backend/pkg/redis"
)

const (
	orderStatsCacheName = "order-stats"
	defaultStatsTTL     = 5 * time.Minute
)

var refundTypes = []enums.LedgerEntryType{
	enums.LedgerEntryRefund,
	enums.LedgerEntryOrderItemsRefund,
	enums.LedgerEntryOrderItemRefund,
}

// Service exposes read-only admin reports.
type Service interface {
	BalanceSheet(ctx context.Context, window Range) (*BalanceSheet, error)
	TransactionStats(ctx context.Context, filter ledger.ListFilter) (*TransactionStats, error)
	OrderStats(ctx context.Context) (*OrderStats, error)
}

// Cache is the slice of the redis client the order stats use.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(name string) string
}

// BalanceSheet is the admin cash position for a window.
type BalanceSheet struct {
	TotalRevenue          decimal.Decimal `json:"totalRevenue"`
	TotalTopups           decimal.Decimal `json:"totalTopups"`
	TotalRefunds          decimal.Decimal `json:"totalRefunds"`
	TotalTopupsAndRefunds decimal.Decimal `json:"totalTopupsAndRefunds"`
	PreviousBalance       decimal.Decimal `json:"previousBalance"`
	OrderCount            int64           `json:"orderCount"`
	TopupCount            int64           `json:"topupCount"`
	RefundCount           int64           `json:"refundCount"`
	ActiveUsers           int64           `json:"activeUsers"`
	NetCashFlow           decimal.Decimal `json:"netCashFlow"`
}

// TypeStats aggregates ledger entries of one type. Debit is reported as a
// positive magnitude.
type TypeStats struct {
	Type   enums.LedgerEntryType `json:"type"`
	Count  int64                 `json:"count"`
	Credit decimal.Decimal       `json:"credit"`
	Debit  decimal.Decimal       `json:"debit"`
	Net    decimal.Decimal       `json:"net"`
}

type TransactionStats struct {
	TotalCount  int64           `json:"totalCount"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	Net         decimal.Decimal `json:"net"`
	ByType      []TypeStats     `json:"byType"`
}

// OrderStats counts orders by the statuses of their items. An order with
// items in two statuses counts toward both.
type OrderStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
}

type ServiceParams struct {
	Repo     Repository
	Ledger   ledger.Repository
	Cache    Cache
	CacheTTL time.Duration
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	ledger   ledger.Repository
	cache    Cache
	cacheTTL time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reporting repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		ledger:   params.Ledger,
		cache:    params.Cache,
		cacheTTL: ttl,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) BalanceSheet(ctx context.Context, window Range) (*BalanceSheet, error) {
	if window.From != nil && window.To != nil && window.To.Before(*window.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must not be before start date")
	}

	revenue, err := s.repo.CompletedRevenue(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum completed revenue")
	}
	topups, err := s.repo.TopUpTotals(ctx, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum top-ups")
	}
	refunds, err := s.repo.LedgerTotals(ctx, refundTypes, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum refunds")
	}

	now := s.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	previous, err := s.repo.BalancesAsOf(ctx, startOfToday)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum previous balances")
	}
	users, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
	}

	inflow := topups.Total.Add(refunds.Total)
	return &BalanceSheet{
		TotalRevenue:          revenue.Total,
		TotalTopups:           topups.Total,
		TotalRefunds:          refunds.Total,
		TotalTopupsAndRefunds: inflow,
		PreviousBalance:       previous,
		OrderCount:            revenue.Count,
		TopupCount:            topups.Count,
		RefundCount:           refunds.Count,
		ActiveUsers:           users,
		NetCashFlow:           inflow.Sub(revenue.Total),
	}, nil
}

func (s *service) TransactionStats(ctx context.Context, filter ledger.ListFilter) (*TransactionStats, error) {
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}
	filter.Direction = ledger.DirectionAny
	all, err := s.ledger.TotalsByType(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate transactions")
	}
	filter.Direction = ledger.DirectionCredit
	credits, err := s.ledger.TotalsByType(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate credits")
	}
	filter.Direction = ledger.DirectionDebit
	debits, err := s.ledger.TotalsByType(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate debits")
	}

	creditBy := indexTotals(credits)
	debitBy := indexTotals(debits)
	out := &TransactionStats{
		TotalCredit: decimal.Zero,
		TotalDebit:  decimal.Zero,
		Net:         decimal.Zero,
		ByType:      make([]TypeStats, 0, len(all)),
	}
	for _, row := range all {
		credit := creditBy[row.Type]
		debit := debitBy[row.Type].Abs()
		out.ByType = append(out.ByType, TypeStats{
			Type:   row.Type,
			Count:  row.Count,
			Credit: credit,
			Debit:  debit,
			Net:    credit.Sub(debit),
		})
		out.TotalCount += row.Count
		out.TotalCredit = out.TotalCredit.Add(credit)
		out.TotalDebit = out.TotalDebit.Add(debit)
	}
	out.Net = out.TotalCredit.Sub(out.TotalDebit)
	return out, nil
}

func indexTotals(rows []ledger.TypeTotal) map[enums.LedgerEntryType]decimal.Decimal {
	out := make(map[enums.LedgerEntryType]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.Type] = row.Total
	}
	return out
}

// OrderStats serves from the cache when it can. Cache faults are logged and
// fall through to the database.
func (s *service) OrderStats(ctx context.Context) (*OrderStats, error) {
	var key string
	if s.cache != nil {
		key = s.cache.CacheKey(orderStatsCacheName)
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var cached OrderStats
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return &cached, nil
			}
			s.logg.Warn(ctx, "discarding unreadable cached order stats")
		case !pkgredis.IsMiss(err):
			s.logg.Error(ctx, "read cached order stats", err)
		}
	}

	stats, err := s.computeOrderStats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(stats)
		if err == nil {
			err = s.cache.Set(ctx, key, payload, s.cacheTTL)
		}
		if err != nil {
			s.logg.Error(ctx, "cache order stats", err)
		}
	}
	return stats, nil
}

func (s *service) computeOrderStats(ctx context.Context) (*OrderStats, error) {
	total, err := s.repo.CountOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
	}
	stats := &OrderStats{Total: total}
	for status, dst := range map[enums.OrderStatus]*int64{
		enums.OrderStatusPending:    &stats.Pending,
		enums.OrderStatusProcessing: &stats.Processing,
		enums.OrderStatusCompleted:  &stats.Completed,
	} {
		n, err := s.repo.CountOrdersWithItemStatus(ctx, status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("count %s orders", status))
		}
		*dst = n
	}
	return stats, nil
}
