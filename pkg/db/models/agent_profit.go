package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// AgentProfit is the markup owed to an agent for one store order.
type AgentProfit struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AgentID           uuid.UUID               `gorm:"column:agent_id;type:uuid;not null;index" json:"agentId"`
	AgentStoreOrderID uuid.UUID               `gorm:"column:agent_store_order_id;type:uuid;not null;uniqueIndex" json:"orderId"`
	OrderReference    string                  `gorm:"column:order_reference;not null" json:"orderReference"`
	CustomerPrice     decimal.Decimal         `gorm:"column:customer_price;type:numeric(12,2);not null" json:"customerPrice"`
	AdminPrice        decimal.Decimal         `gorm:"column:admin_price;type:numeric(12,2);not null" json:"adminPrice"`
	Profit            decimal.Decimal         `gorm:"column:profit;type:numeric(12,2);not null" json:"profit"`
	Status            enums.AgentProfitStatus `gorm:"column:status;not null;index" json:"status"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
