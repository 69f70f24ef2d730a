package topups

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/internal/notifier"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

// Service credits wallets on admin approval.
type Service interface {
	Approve(ctx context.Context, input ApproveInput) (*Approval, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.TopUp, error)
}

// ApproveInput is one admin top-up. Reference is the external payment id and
// may only be approved once.
type ApproveInput struct {
	AdminID   uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Reference string
}

// Approval is the stored top-up with its ledger entry.
type Approval struct {
	TopUp models.TopUp       `json:"topUp"`
	Entry models.LedgerEntry `json:"transaction"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	ledger ledger.Service
	tx     txRunner
	notify notifier.Publisher
	logg   *logger.Logger
}

func NewService(repo Repository, ledgerSvc ledger.Service, tx txRunner, notify notifier.Publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("top-up repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx, notify: notify, logg: logg}, nil
}

func (s *service) Approve(ctx context.Context, input ApproveInput) (*Approval, error) {
	reference := strings.TrimSpace(input.Reference)
	if input.UserID == uuid.Nil || reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user and reference are required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var out Approval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		topUp := models.TopUp{
			UserID:    input.UserID,
			Amount:    input.Amount,
			Reference: reference,
		}
		if input.AdminID != uuid.Nil {
			admin := input.AdminID
			topUp.ApprovedBy = &admin
		}
		if err := s.repo.WithTx(tx).Create(ctx, &topUp); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "top-up reference already approved").
					WithDetails(map[string]any{"reference": reference})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create top-up")
		}

		entry, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			UserID:      input.UserID,
			Amount:      input.Amount,
			Type:        enums.LedgerEntryTopUpApproved,
			Description: fmt.Sprintf("Top-up approved (%s)", reference),
			Reference:   ledger.TopUpRef(reference),
		})
		if err != nil {
			return err
		}
		out = Approval{TopUp: topUp, Entry: *entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithUserID(ctx, input.UserID.String())
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"reference": reference,
		"amount":    input.Amount.StringFixed(2),
	}), "top-up approved")
	s.notify.Publish(ctx, notifier.EventNewTopUp, "Top-up approved", out.TopUp, notifier.RefreshTopUp)
	s.notify.Publish(ctx, notifier.EventTransactionUpdate, "Transaction recorded", out.Entry, notifier.RefreshTransaction)
	return &out, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.TopUp, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list top-ups")
	}
	return rows, nil
}
