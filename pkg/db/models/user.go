package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// User is a platform account. LoanBalance is a cached projection of the
// user's ledger and is only written by the ledger store.
type User struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Email       string          `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Phone       *string         `gorm:"column:phone" json:"phone,omitempty"`
	Role        enums.UserRole  `gorm:"column:role;not null" json:"role"`
	LoanBalance decimal.Decimal `gorm:"column:loan_balance;type:numeric(12,2);not null" json:"loanBalance"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
