package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/users"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	"github.com/angelmondragon/bundlehub-backend/pkg/pagination"
)

type harness struct {
	conn   *gorm.DB
	client *db.Client
	svc    Service
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn := dbtest.Open(t, "ledger")
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn), nil, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return harness{conn: conn, client: db.Wrap(conn), svc: svc}
}

func (h harness) record(t *testing.T, in RecordInput) (*models.LedgerEntry, error) {
	t.Helper()
	var entry *models.LedgerEntry
	err := h.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		entry, err = h.svc.Record(context.Background(), tx, in)
		return err
	})
	return entry, err
}

func TestRecordMovesBalanceAndChainsEntries(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "100")

	first, err := h.record(t, RecordInput{
		UserID:      user.ID,
		Amount:      decimal.NewFromInt(-30),
		Type:        enums.LedgerEntryOrder,
		Description: "order",
		Reference:   OrderRef(uuid.New()),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !first.PreviousBalance.Equal(decimal.NewFromInt(100)) || !first.BalanceAfter.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("unexpected balances: prev=%s after=%s", first.PreviousBalance, first.BalanceAfter)
	}

	second, err := h.record(t, RecordInput{
		UserID:    user.ID,
		Amount:    decimal.NewFromInt(30),
		Type:      enums.LedgerEntryOrderItemsRefund,
		Reference: OrderItemsRefundRef(uuid.New()),
	})
	if err != nil {
		t.Fatalf("record refund: %v", err)
	}
	if !second.PreviousBalance.Equal(first.BalanceAfter) {
		t.Fatalf("entries must chain: %s != %s", second.PreviousBalance, first.BalanceAfter)
	}
	if second.Description != string(enums.LedgerEntryOrderItemsRefund) {
		t.Fatalf("expected default description, got %q", second.Description)
	}

	var stored models.User
	if err := h.conn.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !stored.LoanBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", stored.LoanBalance)
	}

	mismatches, err := h.svc.VerifyProjection(context.Background())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("expected no mismatches, got %+v", mismatches)
	}
}

func TestRecordAllowsNegativeBalance(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "0")

	entry, err := h.record(t, RecordInput{
		UserID:    user.ID,
		Amount:    decimal.NewFromInt(-5),
		Type:      enums.LedgerEntryAdjustment,
		Reference: "manual:1",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !entry.BalanceAfter.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("expected -5, got %s", entry.BalanceAfter)
	}
}

func TestRecordRejectsDuplicateReference(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "50")
	in := RecordInput{
		UserID:    user.ID,
		Amount:    decimal.NewFromInt(10),
		Type:      enums.LedgerEntryTopUpApproved,
		Reference: TopUpRef("MM-1"),
	}
	if _, err := h.record(t, in); err != nil {
		t.Fatalf("first record: %v", err)
	}

	_, err := h.record(t, in)
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if !errors.Is(err, ErrDuplicateReference) || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int64
	h.conn.Model(&models.LedgerEntry{}).Where("reference = ?", in.Reference).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one entry, got %d", count)
	}
}

func TestRecordOnceReturnsExistingEntry(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "20")
	in := RecordInput{
		UserID:    user.ID,
		Amount:    decimal.Zero,
		Type:      enums.LedgerEntryOrderItemsStatus,
		Reference: OrderStatusRef(uuid.New(), enums.OrderStatusCompleted),
	}

	var first, second *models.LedgerEntry
	var created1, created2 bool
	ctx := context.Background()
	err := h.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if first, created1, err = h.svc.RecordOnce(ctx, tx, in); err != nil {
			return err
		}
		second, created2, err = h.svc.RecordOnce(ctx, tx, in)
		return err
	})
	if err != nil {
		t.Fatalf("record once: %v", err)
	}
	if !created1 || created2 {
		t.Fatalf("expected created=true then false, got %v %v", created1, created2)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the stored entry back")
	}
}

func TestRecordValidation(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "0")

	cases := map[string]RecordInput{
		"missing user":      {Type: enums.LedgerEntryOrder, Reference: "x"},
		"invalid type":      {UserID: user.ID, Type: "BOGUS", Reference: "x"},
		"missing reference": {UserID: user.ID, Type: enums.LedgerEntryOrder, Reference: "  "},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.record(t, in)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	_, err := h.record(t, RecordInput{UserID: uuid.New(), Type: enums.LedgerEntryOrder, Reference: "x"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}

	if _, err := h.svc.Record(context.Background(), nil, RecordInput{}); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error without tx, got %v", err)
	}
}

func TestVerifyProjectionFindsDrift(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "40")
	if err := h.conn.Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("loan_balance", decimal.NewFromInt(45)).Error; err != nil {
		t.Fatalf("corrupt balance: %v", err)
	}

	mismatches, err := h.svc.VerifyProjection(context.Background())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(mismatches) != 1 || mismatches[0].UserID != user.ID {
		t.Fatalf("expected one mismatch for user, got %+v", mismatches)
	}
	if !mismatches[0].LedgerAmount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected ledger sum 40, got %s", mismatches[0].LedgerAmount)
	}
}

func TestListAndSummary(t *testing.T) {
	h := newHarness(t)
	user := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "100")
	other := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "10")
	for i := 0; i < 3; i++ {
		if _, err := h.record(t, RecordInput{
			UserID:      user.ID,
			Amount:      decimal.NewFromInt(-10),
			Type:        enums.LedgerEntryOrder,
			Description: "Order placed",
			Reference:   OrderRef(uuid.New()),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	ctx := context.Background()
	page, err := h.svc.ListForUser(ctx, user.ID, ListFilter{}, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Entries) != 2 || page.NextCursor == "" {
		t.Fatalf("expected a full first page with cursor, got %d entries cursor=%q", len(page.Entries), page.NextCursor)
	}
	next, err := h.svc.ListForUser(ctx, user.ID, ListFilter{}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list next: %v", err)
	}
	if len(next.Entries) != 2 || next.NextCursor != "" {
		t.Fatalf("expected final page of 2, got %d cursor=%q", len(next.Entries), next.NextCursor)
	}

	debits, err := h.svc.ListAll(ctx, ListFilter{Direction: DirectionDebit, Search: "placed"}, pagination.Params{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(debits.Entries) != 3 {
		t.Fatalf("expected 3 debits, got %d", len(debits.Entries))
	}
	for _, e := range debits.Entries {
		if e.UserID == other.ID {
			t.Fatal("other user's credit should not match debit filter")
		}
	}

	summary, err := h.svc.BalanceSummary(ctx, user.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.Balance.Equal(decimal.NewFromInt(70)) || summary.Count != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !summary.Credits.Equal(decimal.NewFromInt(100)) || !summary.Debits.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected credit/debit split: %s / %s", summary.Credits, summary.Debits)
	}
}
