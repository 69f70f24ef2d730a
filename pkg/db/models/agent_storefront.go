package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgentStorefront is a reseller's public sub-catalog. One per agent.
type AgentStorefront struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AgentID    uuid.UUID                `gorm:"column:agent_id;type:uuid;not null;uniqueIndex" json:"agentId"`
	StoreName  string                   `gorm:"column:store_name;not null" json:"storeName"`
	StoreSlug  string                   `gorm:"column:store_slug;not null;uniqueIndex" json:"storeSlug"`
	MomoNumber *string                  `gorm:"column:momo_number" json:"momoNumber,omitempty"`
	MomoName   *string                  `gorm:"column:momo_name" json:"momoName,omitempty"`
	IsActive   bool                     `gorm:"column:is_active;not null" json:"isActive"`
	Products   []AgentStorefrontProduct `gorm:"foreignKey:StorefrontID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// AgentStorefrontProduct exposes a catalog product at the agent's price.
type AgentStorefrontProduct struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	StorefrontID uuid.UUID       `gorm:"column:storefront_id;type:uuid;not null;uniqueIndex:ux_storefront_product,priority:1" json:"storefrontId"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_storefront_product,priority:2" json:"productId"`
	Product      *Product        `gorm:"foreignKey:ProductID;references:ID" json:"product,omitempty"`
	CustomPrice  decimal.Decimal `gorm:"column:custom_price;type:numeric(12,2);not null" json:"customPrice"`
	IsActive     bool            `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
