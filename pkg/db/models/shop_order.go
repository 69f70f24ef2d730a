package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// ShopOrder is a guest or agent-store checkout. Reference is the payment
// transaction id and backs at most one shop order.
type ShopOrder struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Reference          string                `gorm:"column:reference;not null;uniqueIndex" json:"reference"`
	Amount             decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	PhoneNumber        string                `gorm:"column:phone_number;not null" json:"phoneNumber"`
	FullName           string                `gorm:"column:full_name;not null" json:"fullName"`
	Message            string                `gorm:"column:message" json:"message"`
	ProductID          *uuid.UUID            `gorm:"column:product_id;type:uuid" json:"productId,omitempty"`
	ProductName        string                `gorm:"column:product_name;not null" json:"productName"`
	ProductDescription string                `gorm:"column:product_description" json:"productDescription"`
	ProductPrice       decimal.Decimal       `gorm:"column:product_price;type:numeric(12,2);not null" json:"productPrice"`
	Status             enums.OrderStatus     `gorm:"column:status;not null;index" json:"status"`
	Source             enums.ShopOrderSource `gorm:"column:source;not null" json:"source"`
	OrderTime          time.Time             `gorm:"column:order_time;not null" json:"orderTime"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
