package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

var (
	// ErrUnparseable means the text carried no recognisable amount and reference.
	ErrUnparseable = errors.New("sms is not a recognised payment notice")
	// ErrAlreadyConsumed means the payment backed an earlier order.
	ErrAlreadyConsumed = errors.New("payment already consumed")
)

// Service is the SMS reconciliation index.
type Service interface {
	Ingest(ctx context.Context, from, message string) (*models.SmsMessage, error)
	FindUnprocessed(ctx context.Context, reference string) (*models.SmsMessage, error)
	VerifyAmount(ctx context.Context, reference string, price decimal.Decimal) (*AmountCheck, error)
	ConsumeTx(ctx context.Context, tx *gorm.DB, reference string) (*models.SmsMessage, error)
	ListUnprocessed(ctx context.Context) ([]models.SmsMessage, error)
	ListPaymentReceived(ctx context.Context) ([]models.SmsMessage, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) (*models.SmsMessage, error)
}

// AmountCheck is the result of a successful payment amount verification.
type AmountCheck struct {
	TransactionAmount decimal.Decimal `json:"transactionAmount"`
	ProductPrice      decimal.Decimal `json:"productPrice"`
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sms repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) Ingest(ctx context.Context, from, message string) (*models.SmsMessage, error) {
	from = strings.TrimSpace(from)
	if from == "" || strings.TrimSpace(message) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number and message are required")
	}

	parsed, ok := ParsePaymentText(message)
	if !ok {
		s.logg.Warn(s.logg.WithField(ctx, "from", from), "sms ignored: no payment amount or reference")
		return nil, ErrUnparseable
	}

	msg := &models.SmsMessage{
		From:      from,
		Message:   message,
		Reference: parsed.Reference,
		Amount:    parsed.Amount,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store sms")
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithTransactionID(ctx, msg.Reference), map[string]any{
		"amount": msg.Amount.StringFixed(2),
	}), "payment sms ingested")
	return msg, nil
}

func (s *service) FindUnprocessed(ctx context.Context, reference string) (*models.SmsMessage, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	msg, err := s.repo.FindOldestUnprocessed(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup sms")
	}
	if msg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction id not found in our system, please verify your transaction id")
	}
	return msg, nil
}

// VerifyAmount checks that an unconsumed payment covers price. It never consumes.
func (s *service) VerifyAmount(ctx context.Context, reference string, price decimal.Decimal) (*AmountCheck, error) {
	if price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must not be negative")
	}
	msg, err := s.FindUnprocessed(ctx, reference)
	if err != nil {
		return nil, err
	}
	check := &AmountCheck{TransactionAmount: msg.Amount, ProductPrice: price}
	if msg.Amount.LessThan(price) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf(
			"insufficient payment: transaction amount (GHS %s) is less than product price (GHS %s)",
			msg.Amount.StringFixed(2), price.StringFixed(2),
		)).WithDetails(check)
	}
	return check, nil
}

// ConsumeTx marks the oldest unprocessed message for reference as processed
// inside tx. Concurrent consumers race on the conditional update; exactly one wins.
func (s *service) ConsumeTx(ctx context.Context, tx *gorm.DB, reference string) (*models.SmsMessage, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sms consumption requires a transaction")
	}
	repo := s.repo.WithTx(tx)

	msg, err := repo.FindOldestUnprocessed(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup sms")
	}
	if msg == nil {
		processed, err := repo.HasProcessed(ctx, reference)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup sms")
		}
		if processed {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrAlreadyConsumed, "transaction id has already been used")
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction id not found in our system, please verify your transaction id")
	}

	at := s.now().UTC()
	won, err := repo.MarkProcessed(ctx, msg.ID, at)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume sms")
	}
	if !won {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrAlreadyConsumed, "transaction id has already been used")
	}

	msg.IsProcessed = true
	msg.ProcessedAt = &at
	s.logg.Info(s.logg.WithTransactionID(ctx, reference), "payment sms consumed")
	return msg, nil
}

func (s *service) ListUnprocessed(ctx context.Context) ([]models.SmsMessage, error) {
	rows, err := s.repo.ListUnprocessed(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list unprocessed sms")
	}
	return rows, nil
}

func (s *service) ListPaymentReceived(ctx context.Context) ([]models.SmsMessage, error) {
	rows, err := s.repo.ListPaymentReceived(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment sms")
	}
	return rows, nil
}

// MarkProcessed is the admin override for payments settled out of band.
func (s *service) MarkProcessed(ctx context.Context, id uuid.UUID) (*models.SmsMessage, error) {
	won, err := s.repo.MarkProcessed(ctx, id, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark sms processed")
	}
	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sms not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sms")
	}
	if !won {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrAlreadyConsumed, "sms already processed")
	}
	s.logg.Info(s.logg.WithTransactionID(ctx, msg.Reference), "sms marked processed by admin")
	return msg, nil
}
