package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Order is created atomically from a cart snapshot; the header never changes.
type Order struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	User         *User           `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	MobileNumber *string         `gorm:"column:mobile_number" json:"mobileNumber,omitempty"`
	Total        decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	Items        []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// OrderItem carries the only mutable order state: its fulfilment status.
type OrderItem struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID      uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	ProductID    uuid.UUID         `gorm:"column:product_id;type:uuid;not null" json:"productId"`
	ProductName  string            `gorm:"column:product_name;not null" json:"productName"`
	Quantity     int               `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice    decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unitPrice"`
	MobileNumber *string           `gorm:"column:mobile_number" json:"mobileNumber,omitempty"`
	Status       enums.OrderStatus `gorm:"column:status;not null;index" json:"status"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
