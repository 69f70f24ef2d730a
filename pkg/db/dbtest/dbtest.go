// Package dbtest opens isolated in-memory sqlite databases carrying the full
// model schema, for repository and service tests.
package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

// Open returns a migrated sqlite connection private to the test. The pool is
// capped at one connection so concurrent transactions queue like row locks.
func Open(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := "file:" + sanitize(name) + "_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return conn
}

// Client wraps Open in a *db.Client.
func Client(t *testing.T, name string) *db.Client {
	t.Helper()
	return db.Wrap(Open(t, name))
}

// SeedUser inserts a user holding balance. A non-zero balance is backed by an
// ADJUSTMENT entry so the projection stays equal to the ledger sum.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.UserRole, balance string) models.User {
	t.Helper()
	amount := decimal.RequireFromString(balance)
	user := models.User{
		Name:        "user-" + uuid.NewString()[:8],
		Email:       uuid.NewString() + "@example.com",
		Role:        role,
		LoanBalance: amount,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if amount.IsZero() {
		return user
	}
	entry := models.LedgerEntry{
		UserID:       user.ID,
		Amount:       amount,
		BalanceAfter: amount,
		Type:         enums.LedgerEntryAdjustment,
		Description:  "opening balance",
		Reference:    "seed:" + user.ID.String(),
	}
	if err := conn.Create(&entry).Error; err != nil {
		t.Fatalf("seed opening balance: %v", err)
	}
	return user
}

// SeedProduct inserts an in-stock catalog product.
func SeedProduct(t *testing.T, conn *gorm.DB, name string, price string, category enums.ProductCategory) models.Product {
	t.Helper()
	product := models.Product{
		Name:        name,
		Description: name + " bundle",
		Price:       decimal.RequireFromString(price),
		Stock:       10,
		Category:    category,
		ShowOnShop:  true,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// SeedSMS inserts an unprocessed payment notification.
func SeedSMS(t *testing.T, conn *gorm.DB, reference string, amount string) models.SmsMessage {
	t.Helper()
	msg := models.SmsMessage{
		From:      "MobileMoney",
		Message:   "Payment received for GHS " + amount + ". Transaction ID: " + reference,
		Reference: reference,
		Amount:    decimal.RequireFromString(amount),
	}
	if err := conn.Create(&msg).Error; err != nil {
		t.Fatalf("seed sms: %v", err)
	}
	return msg
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(name)
}
