package sms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
)

// Repository persists inbound payment notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, msg *models.SmsMessage) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SmsMessage, error)
	FindOldestUnprocessed(ctx context.Context, reference string) (*models.SmsMessage, error)
	HasProcessed(ctx context.Context, reference string) (bool, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListUnprocessed(ctx context.Context) ([]models.SmsMessage, error)
	ListPaymentReceived(ctx context.Context) ([]models.SmsMessage, error)
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

func (r *repository) Create(ctx context.Context, msg *models.SmsMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SmsMessage, error) {
	var msg models.SmsMessage
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindOldestUnprocessed returns nil, nil when no unconsumed message carries reference.
func (r *repository) FindOldestUnprocessed(ctx context.Context, reference string) (*models.SmsMessage, error) {
	var msg models.SmsMessage
	err := r.db.WithContext(ctx).
		Where("reference = ? AND is_processed = ?", reference, false).
		Order("created_at ASC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *repository) HasProcessed(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SmsMessage{}).
		Where("reference = ? AND is_processed = ?", reference, true).
		Count(&count).Error
	return count > 0, err
}

// MarkProcessed flips the flag only if it is still false and reports whether
// this call won.
func (r *repository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.SmsMessage{}).
		Where("id = ? AND is_processed = ?", id, false).
		Updates(map[string]any{"is_processed": true, "processed_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListUnprocessed(ctx context.Context) ([]models.SmsMessage, error) {
	var rows []models.SmsMessage
	err := r.db.WithContext(ctx).
		Where("is_processed = ?", false).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListPaymentReceived(ctx context.Context) ([]models.SmsMessage, error) {
	var rows []models.SmsMessage
	err := r.db.WithContext(ctx).
		Where("LOWER(message) LIKE ?", "%payment received%").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
