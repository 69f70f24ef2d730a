package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/notifier"
	"github.com/angelmondragon/bundlehub-backend/internal/orders"
	"github.com/angelmondragon/bundlehub-backend/internal/sms"
	"github.com/angelmondragon/bundlehub-backend/internal/tasks"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

// KindGuestVerify is the deferred task kind that settles a guest order.
const KindGuestVerify = "shop-verify"

// ErrDuplicateTransaction reports a transaction id that already backs, or is
// about to back, a shop order.
var ErrDuplicateTransaction = errors.New("transaction id already used")

// Service runs the guest checkout flow and its admin surface.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	VerifyAndProcessOrder(ctx context.Context, payload VerifyPayload) (*models.ShopOrder, error)
	List(ctx context.Context) ([]models.ShopOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*orders.StatusUpdateResult, error)

	FileComplaint(ctx context.Context, input ComplaintInput) (*models.Complaint, error)
	ListComplaints(ctx context.Context) ([]models.Complaint, error)
	PendingComplaintsCount(ctx context.Context) (int64, error)
	UpdateComplaintStatus(ctx context.Context, id uuid.UUID, status enums.ComplaintStatus) (*models.Complaint, error)
	DeleteComplaint(ctx context.Context, id uuid.UUID) error
}

// PlaceOrderInput is what a guest declares at checkout.
type PlaceOrderInput struct {
	FullName           string
	PhoneNumber        string
	TransactionID      string
	ProductID          string
	ProductName        string
	ProductDescription string
	ProductPrice       decimal.Decimal
}

// PlaceOrderResult acknowledges a scheduled verification.
type PlaceOrderResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	RunAt   time.Time `json:"verifyAt"`
}

// VerifyPayload is persisted with the deferred verification task.
type VerifyPayload struct {
	TransactionID      string          `json:"transactionId"`
	FullName           string          `json:"fullName"`
	PhoneNumber        string          `json:"phoneNumber"`
	ProductID          string          `json:"productId,omitempty"`
	ProductName        string          `json:"productName"`
	ProductDescription string          `json:"productDescription"`
	ProductPrice       decimal.Decimal `json:"productPrice"`
	OrderTime          time.Time       `json:"orderTime"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the shop service.
type ServiceParams struct {
	Repo        Repository
	Complaints  ComplaintRepository
	SMS         sms.Service
	Scheduler   tasks.Scheduler
	TxRunner    txRunner
	Notifier    notifier.Publisher
	Logger      *logger.Logger
	VerifyDelay time.Duration
	Now         func() time.Time
}

type service struct {
	repo       Repository
	complaints ComplaintRepository
	sms        sms.Service
	scheduler  tasks.Scheduler
	tx         txRunner
	notify     notifier.Publisher
	logg       *logger.Logger
	delay      time.Duration
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	if params.Complaints == nil {
		return nil, fmt.Errorf("complaint repository required")
	}
	if params.SMS == nil {
		return nil, fmt.Errorf("sms service required")
	}
	if params.Scheduler == nil {
		return nil, fmt.Errorf("task scheduler required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notify := params.Notifier
	if notify == nil {
		notify = notifier.Nop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		complaints: params.Complaints,
		sms:        params.SMS,
		scheduler:  params.Scheduler,
		tx:         params.TxRunner,
		notify:     notify,
		logg:       params.Logger,
		delay:      params.VerifyDelay,
		now:        now,
	}, nil
}

func duplicateTransaction(reference string) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateTransaction, "This transaction ID has already been used").
		WithDetails(map[string]any{"transactionId": reference})
}

// PlaceOrder accepts a guest checkout and schedules its payment check. Nothing
// is created until the verification task runs. A transaction id whose earlier
// check was dropped gets a fresh check.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	payload := VerifyPayload{
		TransactionID:      strings.TrimSpace(input.TransactionID),
		FullName:           strings.TrimSpace(input.FullName),
		PhoneNumber:        strings.TrimSpace(input.PhoneNumber),
		ProductID:          strings.TrimSpace(input.ProductID),
		ProductName:        strings.TrimSpace(input.ProductName),
		ProductDescription: strings.TrimSpace(input.ProductDescription),
		ProductPrice:       input.ProductPrice,
		OrderTime:          s.now().UTC(),
	}
	if payload.TransactionID == "" || payload.FullName == "" || payload.PhoneNumber == "" ||
		payload.ProductID == "" || payload.ProductName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "All fields are required")
	}
	if !payload.ProductPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}

	existing, err := s.repo.FindByReference(ctx, payload.TransactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop order")
	}
	if existing != nil {
		return nil, duplicateTransaction(payload.TransactionID)
	}

	runAt := payload.OrderTime.Add(s.delay)
	if err := s.scheduler.Schedule(ctx, verifyTaskKey(payload.TransactionID), KindGuestVerify, runAt, payload); err != nil {
		if errors.Is(err, tasks.ErrDuplicateTask) {
			return nil, duplicateTransaction(payload.TransactionID)
		}
		return nil, err
	}

	logCtx := s.logg.WithPhone(s.logg.WithTransactionID(ctx, payload.TransactionID), payload.PhoneNumber)
	s.logg.Info(s.logg.WithField(logCtx, "verify_at", runAt), "guest order accepted")
	return &PlaceOrderResult{
		Success: true,
		Message: "Order placed successfully. Processing will begin shortly.",
		RunAt:   runAt,
	}, nil
}

func verifyTaskKey(reference string) string {
	return "shop-verify:" + reference
}

// VerifyAndProcessOrder settles a guest order against its payment SMS. Outcomes
// that can never succeed on retry are reported as tasks.ErrDrop.
func (s *service) VerifyAndProcessOrder(ctx context.Context, payload VerifyPayload) (*models.ShopOrder, error) {
	logCtx := s.logg.WithTransactionID(ctx, payload.TransactionID)

	var created *models.ShopOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByReference(ctx, payload.TransactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop order")
		}
		if existing != nil {
			return fmt.Errorf("%w: shop order already exists", tasks.ErrDrop)
		}

		msg, err := s.sms.ConsumeTx(ctx, tx, payload.TransactionID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				return fmt.Errorf("%w: %v", tasks.ErrDrop, err)
			}
			return err
		}

		order := &models.ShopOrder{
			Reference:          payload.TransactionID,
			Amount:             payload.ProductPrice,
			PhoneNumber:        payload.PhoneNumber,
			FullName:           payload.FullName,
			Message:            msg.Message,
			ProductID:          parseProductID(payload.ProductID),
			ProductName:        payload.ProductName,
			ProductDescription: payload.ProductDescription,
			ProductPrice:       payload.ProductPrice,
			Status:             enums.OrderStatusPending,
			Source:             enums.ShopOrderSourceGuest,
			OrderTime:          payload.OrderTime,
		}
		if err := repo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return fmt.Errorf("%w: shop order already exists", tasks.ErrDrop)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shop order")
		}
		created = order
		return nil
	})
	if err != nil {
		if errors.Is(err, tasks.ErrDrop) {
			s.logg.Warn(s.logg.WithField(logCtx, "reason", err.Error()), "guest order not created")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(logCtx, created.ID.String()), "guest order created")
	s.notify.Publish(ctx, notifier.EventNewShopOrder, "New shop order received", created, notifier.RefreshShopOrder)
	return created, nil
}

// parseProductID keeps the catalog link when the guest sent a real product id.
func parseProductID(raw string) *uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// VerifyTaskHandler adapts the service to the task dispatcher.
func VerifyTaskHandler(svc Service) tasks.Handler {
	return func(ctx context.Context, task models.DeferredTask) error {
		var payload VerifyPayload
		if err := tasks.DecodePayload(task, &payload); err != nil {
			return fmt.Errorf("%w: bad payload: %v", tasks.ErrDrop, err)
		}
		_, err := svc.VerifyAndProcessOrder(ctx, payload)
		return err
	}
}

func (s *service) List(ctx context.Context) ([]models.ShopOrder, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shop orders")
	}
	return rows, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*orders.StatusUpdateResult, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop order")
	}
	if order.Status.IsTerminal() {
		return orders.TerminalResult(order.Status), nil
	}

	won, err := s.repo.UpdateStatus(ctx, order.ID, order.Status, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shop order")
	}
	if !won {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shop order changed concurrently")
	}
	order.Status = status

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "status", status.String()), "shop order status updated")
	s.notify.Publish(ctx, notifier.EventOrderStatusUpdate, "Shop order status updated", order, notifier.RefreshShopOrder)
	return &orders.StatusUpdateResult{
		Success:      true,
		UpdatedCount: 1,
		Message:      fmt.Sprintf("Shop order status updated to %s", status),
	}, nil
}
