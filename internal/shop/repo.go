package shop

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Repository persists shop orders. It also serves the shop half of the
// merged admin order listing.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.ShopOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShopOrder, error)
	FindByReference(ctx context.Context, reference string) (*models.ShopOrder, error)
	List(ctx context.Context) ([]models.ShopOrder, error)
	ListRecent(ctx context.Context, limit int) ([]models.ShopOrder, error)
	Count(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
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

func (r *repository) Create(ctx context.Context, order *models.ShopOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShopOrder, error) {
	var order models.ShopOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByReference returns nil, nil when no shop order used the transaction id.
func (r *repository) FindByReference(ctx context.Context, reference string) (*models.ShopOrder, error) {
	var order models.ShopOrder
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context) ([]models.ShopOrder, error) {
	var rows []models.ShopOrder
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.ShopOrder, error) {
	var rows []models.ShopOrder
	err := r.db.WithContext(ctx).
		Order("order_time DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ShopOrder{}).Count(&n).Error
	return n, err
}

// UpdateStatus moves the order only if it is still in from.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ShopOrder{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ComplaintRepository persists guest complaints.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	List(ctx context.Context) ([]models.Complaint, error)
	CountByStatus(ctx context.Context, status enums.ComplaintStatus) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ComplaintStatus) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type complaintRepository struct {
	db *gorm.DB
}

func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

func (r *complaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *complaintRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var c models.Complaint
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *complaintRepository) List(ctx context.Context) ([]models.Complaint, error) {
	var rows []models.Complaint
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *complaintRepository) CountByStatus(ctx context.Context, status enums.ComplaintStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Complaint{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *complaintRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ComplaintStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Complaint{}).Where("id = ?", id).Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *complaintRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Complaint{})
	return res.RowsAffected, res.Error
}
