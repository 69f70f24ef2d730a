package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// DeferredTask is a one-shot action scheduled for RunAt. TaskKey is unique so
// the same logical task can never be queued twice.
type DeferredTask struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	TaskKey     string           `gorm:"column:task_key;not null;uniqueIndex"`
	Kind        string           `gorm:"column:kind;not null"`
	RunAt       time.Time        `gorm:"column:run_at;not null;index"`
	Payload     datatypes.JSON   `gorm:"column:payload;type:jsonb"`
	Status      enums.TaskStatus `gorm:"column:status;not null;index"`
	Attempts    int              `gorm:"column:attempts;not null"`
	LastError   *string          `gorm:"column:last_error"`
	ClaimedAt   *time.Time       `gorm:"column:claimed_at"`
	CompletedAt *time.Time       `gorm:"column:completed_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
