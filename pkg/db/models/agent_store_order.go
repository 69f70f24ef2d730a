package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// AgentStoreOrder is a customer purchase through an agent storefront.
type AgentStoreOrder struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	StorefrontID       uuid.UUID                   `gorm:"column:storefront_id;type:uuid;not null;index" json:"storefrontId"`
	CustomerName       string                      `gorm:"column:customer_name;not null" json:"customerName"`
	CustomerPhone      string                      `gorm:"column:customer_phone;not null" json:"customerPhone"`
	ProductID          uuid.UUID                   `gorm:"column:product_id;type:uuid;not null" json:"productId"`
	ProductName        string                      `gorm:"column:product_name;not null" json:"productName"`
	ProductDescription string                      `gorm:"column:product_description" json:"productDescription"`
	CustomerPrice      decimal.Decimal             `gorm:"column:customer_price;type:numeric(12,2);not null" json:"customerPrice"`
	AgentPrice         decimal.Decimal             `gorm:"column:agent_price;type:numeric(12,2);not null" json:"agentPrice"`
	TransactionID      string                      `gorm:"column:transaction_id;not null;uniqueIndex" json:"transactionId"`
	Status             enums.AgentStoreOrderStatus `gorm:"column:status;not null;index" json:"status"`
	IsAddedToCart      bool                        `gorm:"column:is_added_to_cart;not null" json:"isAddedToCart"`
	IsPushedToAdmin    bool                        `gorm:"column:is_pushed_to_admin;not null" json:"isPushedToAdmin"`
	ShopOrderID        *uuid.UUID                  `gorm:"column:shop_order_id;type:uuid" json:"shopOrderId,omitempty"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time                   `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// Markup is what the agent earns on the order.
func (o AgentStoreOrder) Markup() decimal.Decimal {
	return o.CustomerPrice.Sub(o.AgentPrice)
}
