package reporting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Range bounds a report by creation time. Nil ends are open.
type Range struct {
	From *time.Time
	To   *time.Time
}

// SumCount is an aggregate total with the number of contributing rows.
type SumCount struct {
	Total decimal.Decimal
	Count int64
}

// Repository runs the read-only aggregate queries behind admin reports.
type Repository interface {
	CompletedRevenue(ctx context.Context, window Range) (SumCount, error)
	TopUpTotals(ctx context.Context, window Range) (SumCount, error)
	LedgerTotals(ctx context.Context, types []enums.LedgerEntryType, window Range) (SumCount, error)
	BalancesAsOf(ctx context.Context, cutoff time.Time) (decimal.Decimal, error)
	CountUsers(ctx context.Context) (int64, error)
	CountOrders(ctx context.Context) (int64, error)
	CountOrdersWithItemStatus(ctx context.Context, status enums.OrderStatus) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CompletedRevenue sums completed order lines, dated by their order.
func (r *repository) CompletedRevenue(ctx context.Context, window Range) (SumCount, error) {
	var out SumCount
	q := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Select("COALESCE(SUM(oi.unit_price * oi.quantity), 0) AS total, COUNT(*) AS count").
		Where("oi.status = ?", enums.OrderStatusCompleted)
	q = applyRange(q, "o.created_at", window)
	err := q.Scan(&out).Error
	return out, err
}

func (r *repository) TopUpTotals(ctx context.Context, window Range) (SumCount, error) {
	var out SumCount
	q := r.db.WithContext(ctx).
		Model(&models.TopUp{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count")
	q = applyRange(q, "created_at", window)
	err := q.Scan(&out).Error
	return out, err
}

func (r *repository) LedgerTotals(ctx context.Context, types []enums.LedgerEntryType, window Range) (SumCount, error) {
	var out SumCount
	q := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("type IN ?", types)
	q = applyRange(q, "created_at", window)
	err := q.Scan(&out).Error
	return out, err
}

// BalancesAsOf sums every user's balance_after on their last entry created
// before cutoff. Users with no entry by then contribute nothing.
func (r *repository) BalancesAsOf(ctx context.Context, cutoff time.Time) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Table("transactions AS t").
		Select("COALESCE(SUM(t.balance_after), 0) AS total").
		Where("t.created_at < ?", cutoff).
		Where(`NOT EXISTS (
			SELECT 1 FROM transactions later
			WHERE later.user_id = t.user_id
			  AND later.created_at < ?
			  AND (later.created_at > t.created_at OR (later.created_at = t.created_at AND later.id > t.id))
		)`, cutoff).
		Scan(&out).Error
	return out.Total, err
}

func (r *repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *repository) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, err
}

func (r *repository) CountOrdersWithItemStatus(ctx context.Context, status enums.OrderStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("status = ?", status).
		Distinct("order_id").
		Count(&n).Error
	return n, err
}

func applyRange(q *gorm.DB, column string, window Range) *gorm.DB {
	if window.From != nil {
		q = q.Where(column+" >= ?", *window.From)
	}
	if window.To != nil {
		q = q.Where(column+" <= ?", *window.To)
	}
	return q
}
