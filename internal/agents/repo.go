package agents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// ProfitFilter narrows the admin profit listing. Zero values mean no constraint.
type ProfitFilter struct {
	AgentID *uuid.UUID
	Status  *enums.AgentProfitStatus
	From    *time.Time
	To      *time.Time
}

// StatusTotal aggregates profits in one status.
type StatusTotal struct {
	Status enums.AgentProfitStatus
	Total  decimal.Decimal
	Count  int64
}

// Repository persists storefronts, their catalog, store orders and profits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindStorefrontByAgent(ctx context.Context, agentID uuid.UUID) (*models.AgentStorefront, error)
	FindStorefrontBySlug(ctx context.Context, slug string) (*models.AgentStorefront, error)
	CreateStorefront(ctx context.Context, store *models.AgentStorefront) error
	UpdateStorefront(ctx context.Context, id uuid.UUID, fields map[string]any) error

	FindListing(ctx context.Context, storefrontID, productID uuid.UUID) (*models.AgentStorefrontProduct, error)
	FindListingByID(ctx context.Context, storefrontID, id uuid.UUID) (*models.AgentStorefrontProduct, error)
	CreateListing(ctx context.Context, listing *models.AgentStorefrontProduct) error
	UpdateListing(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteListing(ctx context.Context, id uuid.UUID) error
	ListListings(ctx context.Context, storefrontID uuid.UUID, activeOnly bool) ([]models.AgentStorefrontProduct, error)

	CreateOrder(ctx context.Context, order *models.AgentStoreOrder) error
	FindOrder(ctx context.Context, storefrontID, id uuid.UUID) (*models.AgentStoreOrder, error)
	ListOrders(ctx context.Context, storefrontID uuid.UUID, status *enums.AgentStoreOrderStatus) ([]models.AgentStoreOrder, error)
	TransitionOrder(ctx context.Context, id uuid.UUID, from enums.AgentStoreOrderStatus, fields map[string]any) (bool, error)
	MarkSubmitted(ctx context.Context, storefrontID uuid.UUID, ids []uuid.UUID) (int64, error)
	ListApprovedInCart(ctx context.Context, storefrontID uuid.UUID) ([]models.AgentStoreOrder, error)

	CreateProfit(ctx context.Context, profit *models.AgentProfit) error
	FindProfit(ctx context.Context, id uuid.UUID) (*models.AgentProfit, error)
	ListProfits(ctx context.Context, filter ProfitFilter) ([]models.AgentProfit, error)
	TransitionProfit(ctx context.Context, id uuid.UUID, from, to enums.AgentProfitStatus) (bool, error)
	ProfitTotals(ctx context.Context) ([]StatusTotal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// firstOrNil maps gorm's not-found sentinel to a nil result.
func firstOrNil[T any](q *gorm.DB) (*T, error) {
	var row T
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindStorefrontByAgent(ctx context.Context, agentID uuid.UUID) (*models.AgentStorefront, error) {
	return firstOrNil[models.AgentStorefront](r.db.WithContext(ctx).Where("agent_id = ?", agentID))
}

func (r *repository) FindStorefrontBySlug(ctx context.Context, slug string) (*models.AgentStorefront, error) {
	return firstOrNil[models.AgentStorefront](r.db.WithContext(ctx).Where("store_slug = ?", slug))
}

func (r *repository) CreateStorefront(ctx context.Context, store *models.AgentStorefront) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *repository) UpdateStorefront(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.AgentStorefront{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repository) FindListing(ctx context.Context, storefrontID, productID uuid.UUID) (*models.AgentStorefrontProduct, error) {
	return firstOrNil[models.AgentStorefrontProduct](r.db.WithContext(ctx).
		Where("storefront_id = ? AND product_id = ?", storefrontID, productID))
}

func (r *repository) FindListingByID(ctx context.Context, storefrontID, id uuid.UUID) (*models.AgentStorefrontProduct, error) {
	return firstOrNil[models.AgentStorefrontProduct](r.db.WithContext(ctx).
		Preload("Product").
		Where("storefront_id = ? AND id = ?", storefrontID, id))
}

func (r *repository) CreateListing(ctx context.Context, listing *models.AgentStorefrontProduct) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) UpdateListing(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.AgentStorefrontProduct{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repository) DeleteListing(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AgentStorefrontProduct{}).Error
}

func (r *repository) ListListings(ctx context.Context, storefrontID uuid.UUID, activeOnly bool) ([]models.AgentStorefrontProduct, error) {
	q := r.db.WithContext(ctx).Preload("Product").Where("storefront_id = ?", storefrontID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.AgentStorefrontProduct
	err := q.Order("created_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) CreateOrder(ctx context.Context, order *models.AgentStoreOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, storefrontID, id uuid.UUID) (*models.AgentStoreOrder, error) {
	return firstOrNil[models.AgentStoreOrder](r.db.WithContext(ctx).
		Where("storefront_id = ? AND id = ?", storefrontID, id))
}

func (r *repository) ListOrders(ctx context.Context, storefrontID uuid.UUID, status *enums.AgentStoreOrderStatus) ([]models.AgentStoreOrder, error) {
	q := r.db.WithContext(ctx).Where("storefront_id = ?", storefrontID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.AgentStoreOrder
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// TransitionOrder applies fields only while the order is still in from.
func (r *repository) TransitionOrder(ctx context.Context, id uuid.UUID, from enums.AgentStoreOrderStatus, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AgentStoreOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkSubmitted(ctx context.Context, storefrontID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.AgentStoreOrder{}).
		Where("id IN ? AND storefront_id = ? AND status = ? AND is_added_to_cart = ?",
			ids, storefrontID, enums.AgentStoreOrderApproved, true).
		Updates(map[string]any{
			"status":             enums.AgentStoreOrderProcessing,
			"is_pushed_to_admin": true,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListApprovedInCart(ctx context.Context, storefrontID uuid.UUID) ([]models.AgentStoreOrder, error) {
	var rows []models.AgentStoreOrder
	err := r.db.WithContext(ctx).
		Where("storefront_id = ? AND status = ? AND is_added_to_cart = ? AND is_pushed_to_admin = ?",
			storefrontID, enums.AgentStoreOrderApproved, true, false).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CreateProfit(ctx context.Context, profit *models.AgentProfit) error {
	return r.db.WithContext(ctx).Create(profit).Error
}

func (r *repository) FindProfit(ctx context.Context, id uuid.UUID) (*models.AgentProfit, error) {
	return firstOrNil[models.AgentProfit](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) ListProfits(ctx context.Context, filter ProfitFilter) ([]models.AgentProfit, error) {
	q := r.db.WithContext(ctx)
	if filter.AgentID != nil {
		q = q.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}
	var rows []models.AgentProfit
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// TransitionProfit reports false when the profit already left from.
func (r *repository) TransitionProfit(ctx context.Context, id uuid.UUID, from, to enums.AgentProfitStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AgentProfit{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ProfitTotals(ctx context.Context) ([]StatusTotal, error) {
	var rows []StatusTotal
	err := r.db.WithContext(ctx).
		Model(&models.AgentProfit{}).
		Select("status, COALESCE(SUM(profit), 0) AS total, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}
