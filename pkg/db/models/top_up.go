package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopUp is an admin-approved wallet credit.
type TopUp struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Reference  string          `gorm:"column:reference;not null;uniqueIndex" json:"reference"`
	ApprovedBy *uuid.UUID      `gorm:"column:approved_by;type:uuid" json:"approvedBy,omitempty"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}
