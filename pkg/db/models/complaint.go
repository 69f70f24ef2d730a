package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Complaint is filed by a guest against an existing shop order.
type Complaint struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FullName      string                `gorm:"column:full_name;not null" json:"fullName"`
	MobileNumber  string                `gorm:"column:mobile_number;not null" json:"mobileNumber"`
	ProductName   string                `gorm:"column:product_name;not null" json:"productName"`
	ProductCost   decimal.Decimal       `gorm:"column:product_cost;type:numeric(12,2);not null" json:"productCost"`
	TransactionID string                `gorm:"column:transaction_id;not null;index" json:"transactionId"`
	Complaint     string                `gorm:"column:complaint;not null" json:"complaint"`
	OrderTime     time.Time             `gorm:"column:order_time;not null" json:"orderTime"`
	Status        enums.ComplaintStatus `gorm:"column:status;not null;index" json:"status"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
