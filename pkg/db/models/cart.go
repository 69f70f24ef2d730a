package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the mutable scratch state of a user; one row per user.
type Cart struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"userId"`
	MobileNumber *string    `gorm:"column:mobile_number" json:"mobileNumber,omitempty"`
	Items        []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// CartItem stores the unit price observed when the line was added.
type CartItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CartID       uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index" json:"cartId"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"productId"`
	Product      *Product        `gorm:"foreignKey:ProductID;references:ID" json:"product,omitempty"`
	Quantity     int             `gorm:"column:quantity;not null" json:"quantity"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	MobileNumber *string         `gorm:"column:mobile_number" json:"mobileNumber,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
