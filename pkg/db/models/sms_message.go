package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SmsMessage is an inbound payment notification. IsProcessed flips to true
// exactly once, when an order consumes the payment.
type SmsMessage struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	From        string          `gorm:"column:sender;not null" json:"from"`
	Message     string          `gorm:"column:message;not null" json:"message"`
	Reference   string          `gorm:"column:reference;not null;index" json:"reference"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	IsProcessed bool            `gorm:"column:is_processed;not null;index" json:"isProcessed"`
	ProcessedAt *time.Time      `gorm:"column:processed_at" json:"processedAt,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
