package topups

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
)

// Repository persists approved top-ups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, topUp *models.TopUp) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TopUp, error)
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

func (r *repository) Create(ctx context.Context, topUp *models.TopUp) error {
	return r.db.WithContext(ctx).Create(topUp).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TopUp, error) {
	var rows []models.TopUp
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	return rows, err
}
