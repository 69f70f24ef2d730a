package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Product is a data/airtime bundle in the admin catalog. Price is the admin cost.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string                `gorm:"column:name;not null" json:"name"`
	Description string                `gorm:"column:description" json:"description"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock       int                   `gorm:"column:stock;not null" json:"stock"`
	Category    enums.ProductCategory `gorm:"column:category;not null;index" json:"category"`
	ShowOnShop  bool                  `gorm:"column:show_on_shop;not null" json:"showOnShop"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
