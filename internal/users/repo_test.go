package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
)

func TestRepositoryLockAndSetBalance(t *testing.T) {
	conn := dbtest.Open(t, "users")
	repo := NewRepository(conn)
	ctx := context.Background()

	user := &models.User{Name: "Ama", Email: "ama@example.com", Role: enums.UserRoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		locked, err := txRepo.LockByID(ctx, user.ID)
		if err != nil {
			return err
		}
		return txRepo.SetBalance(ctx, locked.ID, locked.LoanBalance.Add(decimal.NewFromInt(25)))
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	got, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.LoanBalance.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected balance 25, got %s", got.LoanBalance)
	}

	byID, err := repo.FindByIDs(ctx, []uuid.UUID{user.ID, uuid.New()})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(byID) != 1 || byID[user.ID].Name != "Ama" {
		t.Fatalf("unexpected lookup result: %+v", byID)
	}
}
