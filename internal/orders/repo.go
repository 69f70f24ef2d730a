package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Repository persists orders and order items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	UpdateItemsStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (int64, error)
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderStatus) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
	Count(ctx context.Context) (int64, error)
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

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// Create inserts the order header and its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemsStatus moves the order's open items only. Completed and
// Cancelled rows keep their status.
func (r *repository) UpdateItemsStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Where("status NOT IN ?", enums.TerminalOrderStatuses).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("status", status).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListCompletedByUser returns orders whose items are all Completed.
func (r *repository) ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("user_id = ?", userID).
		Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id)").
		Where("NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.status <> ?)", enums.OrderStatusCompleted).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListRecent returns the newest orders with their owner and items.
func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items", orderedItems).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, err
}
