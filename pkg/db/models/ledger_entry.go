package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// LedgerEntry is an immutable balance-affecting event. At most one entry may
// exist per (type, reference).
type LedgerEntry struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Amount          decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	BalanceAfter    decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null" json:"balance"`
	PreviousBalance decimal.Decimal       `gorm:"column:previous_balance;type:numeric(12,2);not null" json:"previousBalance"`
	Type            enums.LedgerEntryType `gorm:"column:type;not null;uniqueIndex:ux_transactions_type_reference,priority:1" json:"type"`
	Description     string                `gorm:"column:description;not null" json:"description"`
	Reference       string                `gorm:"column:reference;not null;uniqueIndex:ux_transactions_type_reference,priority:2" json:"reference"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

func (LedgerEntry) TableName() string { return "transactions" }
