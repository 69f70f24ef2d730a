package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Repository persists deferred tasks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, task *models.DeferredTask) error
	FindByKey(ctx context.Context, key string) (*models.DeferredTask, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.DeferredTask, error)
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	Finish(ctx context.Context, id uuid.UUID, status enums.TaskStatus, lastErr *string, now time.Time) error
	FailStuck(ctx context.Context, claimedBefore, now time.Time) (int64, error)
	Rearm(ctx context.Context, task *models.DeferredTask, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a task repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, task *models.DeferredTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByKey returns nil, nil when no task carries the key.
func (r *repository) FindByKey(ctx context.Context, key string) (*models.DeferredTask, error) {
	var task models.DeferredTask
	err := r.db.WithContext(ctx).Where("task_key = ?", key).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.DeferredTask, error) {
	var rows []models.DeferredTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND run_at <= ?", enums.TaskStatusPending, now).
		Order("run_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Claim moves a pending task to running. It reports false when another
// dispatcher won the row first.
func (r *repository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeferredTask{}).
		Where("id = ? AND status = ?", id, enums.TaskStatusPending).
		Updates(map[string]any{
			"status":     enums.TaskStatusRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"claimed_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Finish(ctx context.Context, id uuid.UUID, status enums.TaskStatus, lastErr *string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.DeferredTask{}).
		Where("id = ? AND status = ?", id, enums.TaskStatusRunning).
		Updates(map[string]any{
			"status":       status,
			"last_error":   lastErr,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

// FailStuck fails running tasks whose claim is older than claimedBefore.
func (r *repository) FailStuck(ctx context.Context, claimedBefore, now time.Time) (int64, error) {
	msg := "claim expired"
	res := r.db.WithContext(ctx).
		Model(&models.DeferredTask{}).
		Where("status = ? AND claimed_at < ?", enums.TaskStatusRunning, claimedBefore).
		Updates(map[string]any{
			"status":       enums.TaskStatusFailed,
			"last_error":   msg,
			"completed_at": now,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}

// Rearm puts a task that ended dropped or failed back in the queue under the
// same key with a fresh payload and run time. Pending, running and done tasks
// are left alone and Rearm reports false.
func (r *repository) Rearm(ctx context.Context, task *models.DeferredTask, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeferredTask{}).
		Where("task_key = ? AND status IN ?", task.TaskKey, []enums.TaskStatus{enums.TaskStatusDropped, enums.TaskStatusFailed}).
		Updates(map[string]any{
			"kind":         task.Kind,
			"run_at":       task.RunAt,
			"payload":      task.Payload,
			"status":       enums.TaskStatusPending,
			"attempts":     0,
			"last_error":   nil,
			"claimed_at":   nil,
			"completed_at": nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
