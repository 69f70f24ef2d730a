package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/cart"
	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/internal/notifier"
	"github.com/angelmondragon/bundlehub-backend/internal/products"
	"github.com/angelmondragon/bundlehub-backend/internal/users"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	"github.com/angelmondragon/bundlehub-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ShopOrderSource supplies guest shop orders for the merged admin listing.
type ShopOrderSource interface {
	ListRecent(ctx context.Context, limit int) ([]models.ShopOrder, error)
	Count(ctx context.Context) (int64, error)
}

// Service is the cart-to-order state machine.
type Service interface {
	SubmitCart(ctx context.Context, userID uuid.UUID, mobileNumber *string) (*models.Order, error)
	UpdateOrderItemsStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*StatusUpdateResult, error)
	UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderStatus) (*StatusUpdateResult, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	Completed(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListViews(ctx context.Context, window pagination.Window) (*ViewList, error)
}

// StatusUpdateResult reports a status change. A terminal order is not an
// error: Success is false and Message explains why.
type StatusUpdateResult struct {
	Success      bool   `json:"success"`
	UpdatedCount int64  `json:"updatedCount"`
	Message      string `json:"message"`
}

// TerminalResult is the refusal returned for orders already Completed or Cancelled.
func TerminalResult(current enums.OrderStatus) *StatusUpdateResult {
	return &StatusUpdateResult{
		Success: false,
		Message: fmt.Sprintf("Cannot update order - status is already %s", current),
	}
}

// ViewList is one page of the merged regular and shop order listing.
type ViewList struct {
	Orders     []OrderView `json:"orders"`
	TotalCount int64       `json:"totalCount"`
	HasMore    bool        `json:"hasMore"`
}

type service struct {
	repo     Repository
	carts    cart.Repository
	products products.Repository
	users    *users.Repository
	ledger   ledger.Service
	shop     ShopOrderSource
	tx       txRunner
	notify   notifier.Publisher
	logg     *logger.Logger
}

func NewService(
	repo Repository,
	carts cart.Repository,
	productsRepo products.Repository,
	usersRepo *users.Repository,
	ledgerSvc ledger.Service,
	shop ShopOrderSource,
	tx txRunner,
	notify notifier.Publisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if shop == nil {
		return nil, fmt.Errorf("shop order source required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		carts:    carts,
		products: productsRepo,
		users:    usersRepo,
		ledger:   ledgerSvc,
		shop:     shop,
		tx:       tx,
		notify:   notify,
		logg:     logg,
	}, nil
}

// SubmitCart turns the user's cart into an order and debits the wallet, all
// in one transaction. The user row lock serializes concurrent submits, so two
// carts can never both pass the balance check against the same funds.
func (s *service) SubmitCart(ctx context.Context, userID uuid.UUID, mobileNumber *string) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	mobile := trimmedOrNil(mobileNumber)

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.users.WithTx(tx).LockByID(ctx, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock user")
		}

		carts := s.carts.WithTx(tx)
		c, err := carts.FindByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if c == nil || len(c.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		items, total, err := s.priceItems(ctx, tx, c.Items)
		if err != nil {
			return err
		}

		if user.LoanBalance.LessThan(total) {
			return pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient balance to place order").
				WithDetails(map[string]string{
					"balance": user.LoanBalance.StringFixed(2),
					"total":   total.StringFixed(2),
				})
		}

		if mobile != nil && c.MobileNumber == nil {
			if err := carts.SetMobileNumber(ctx, c.ID, *mobile); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set cart mobile number")
			}
			c.MobileNumber = mobile
		}

		order = &models.Order{
			UserID:       userID,
			MobileNumber: c.MobileNumber,
			Total:        total,
			Items:        items,
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			UserID:      userID,
			Amount:      total.Neg(),
			Type:        enums.LedgerEntryOrder,
			Description: fmt.Sprintf("Order #%s placed with %d items", order.ID, len(order.Items)),
			Reference:   ledger.OrderRef(order.ID),
		}); err != nil {
			return err
		}

		if err := carts.ClearItems(ctx, c.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "total", order.Total.StringFixed(2)), "order submitted")
	s.notify.Publish(ctx, notifier.EventNewOrder, "New order received", order, notifier.RefreshOrder)
	return order, nil
}

// priceItems builds order items from cart lines. The snapshot price is
// authoritative, but a line whose live product price moved since it was
// added fails the submit so the user can review the new total.
func (s *service) priceItems(ctx context.Context, tx *gorm.DB, lines []models.CartItem) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	live, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	var (
		missing []string
		changed []string
		items   = make([]models.OrderItem, 0, len(lines))
		total   = decimal.Zero
	)
	for _, line := range lines {
		product, ok := live[line.ProductID]
		if !ok {
			missing = append(missing, line.ProductID.String())
			continue
		}
		if !product.Price.Equal(line.Price) {
			changed = append(changed, line.ProductID.String())
			continue
		}
		item := models.OrderItem{
			ProductID:    line.ProductID,
			ProductName:  product.Name,
			Quantity:     line.Quantity,
			UnitPrice:    line.Price,
			MobileNumber: line.MobileNumber,
			Status:       enums.OrderStatusPending,
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}

	if len(missing) > 0 {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cart contains products that are no longer available").
			WithDetails(map[string][]string{"productIds": missing})
	}
	if len(changed) > 0 {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "price changed").
			WithDetails(map[string][]string{"productIds": changed})
	}
	return items, total, nil
}

// UpdateOrderItemsStatus moves every open item of an order to status. An order
// whose items are all terminal is refused. Cancelling refunds what the ORDER
// entry debited minus the lines that already reached a terminal status on
// their own; both the refund and the status audit entry are keyed so a retry
// never double-credits.
func (s *service) UpdateOrderItemsStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*StatusUpdateResult, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var (
		result *StatusUpdateResult
		order  *models.Order
		refund *models.LedgerEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}

		open, settled := splitSettled(order.Items)
		if len(order.Items) > 0 && open == 0 {
			result = TerminalResult(order.Items[0].Status)
			return nil
		}

		if status == enums.OrderStatusCancelled {
			refund, err = s.refundOrder(ctx, tx, order, settled)
			if err != nil {
				return err
			}
		}

		updated, err := repo.UpdateItemsStatus(ctx, order.ID, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order items")
		}

		if _, _, err := s.ledger.RecordOnce(ctx, tx, ledger.RecordInput{
			UserID:      order.UserID,
			Amount:      decimal.Zero,
			Type:        enums.LedgerEntryOrderItemsStatus,
			Description: fmt.Sprintf("All items in order #%s status changed to %s", order.ID, status),
			Reference:   ledger.OrderStatusRef(order.ID, status),
		}); err != nil {
			return err
		}

		result = &StatusUpdateResult{
			Success:      true,
			UpdatedCount: updated,
			Message:      fmt.Sprintf("Successfully updated %d order items to %s", updated, status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return result, nil
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "status", status.String()), "order status updated")
	s.notify.Publish(ctx, notifier.EventOrderStatusUpdate, "Order status updated", map[string]any{
		"orderId":      order.ID,
		"status":       status,
		"updatedCount": result.UpdatedCount,
	}, notifier.RefreshOrderStatus)
	if refund != nil {
		s.logg.Info(s.logg.WithField(logCtx, "amount", refund.Amount.StringFixed(2)), "order refund issued")
		s.notify.Publish(ctx, notifier.EventTransactionUpdate, "Transaction recorded", refund, notifier.RefreshTransaction)
	}
	return result, nil
}

// splitSettled counts the items still open and sums the line totals of those
// already Completed or Cancelled.
func splitSettled(items []models.OrderItem) (int, decimal.Decimal) {
	open := 0
	settled := decimal.Zero
	for _, item := range items {
		if item.Status.IsTerminal() {
			settled = settled.Add(item.LineTotal())
			continue
		}
		open++
	}
	return open, settled
}

// refundOrder credits back |ORDER entry|, falling back to the item totals for
// orders without one, less the settled lines. A cancelled line was refunded by
// its own entry and a completed one was delivered. It returns the entry only
// when it was newly created.
func (s *service) refundOrder(ctx context.Context, tx *gorm.DB, order *models.Order, settled decimal.Decimal) (*models.LedgerEntry, error) {
	amount := decimal.Zero
	for _, item := range order.Items {
		amount = amount.Add(item.LineTotal())
	}
	debit, err := s.ledger.FindByReference(ctx, tx, enums.LedgerEntryOrder, ledger.OrderRef(order.ID))
	switch {
	case err == nil:
		if debit.Amount.IsNegative() {
			amount = debit.Amount.Abs()
		}
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
	default:
		return nil, err
	}
	amount = amount.Sub(settled)
	if !amount.IsPositive() {
		return nil, nil
	}

	entry, created, err := s.ledger.RecordOnce(ctx, tx, ledger.RecordInput{
		UserID:      order.UserID,
		Amount:      amount,
		Type:        enums.LedgerEntryOrderItemsRefund,
		Description: fmt.Sprintf("All items in order #%s refunded (Amount: %s)", order.ID, amount.StringFixed(2)),
		Reference:   ledger.OrderItemsRefundRef(order.ID),
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}
	return entry, nil
}

// UpdateOrderItemStatus moves a single item. Cancelling refunds that line.
func (s *service) UpdateOrderItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderStatus) (*StatusUpdateResult, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var (
		result *StatusUpdateResult
		item   *models.OrderItem
		refund *models.LedgerEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		item, err = repo.FindItem(ctx, itemID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order item")
		}
		if item.Status.IsTerminal() {
			result = TerminalResult(item.Status)
			return nil
		}
		order, err := repo.FindByID(ctx, item.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}

		if status == enums.OrderStatusCancelled && item.LineTotal().IsPositive() {
			entry, created, err := s.ledger.RecordOnce(ctx, tx, ledger.RecordInput{
				UserID:      order.UserID,
				Amount:      item.LineTotal(),
				Type:        enums.LedgerEntryOrderItemRefund,
				Description: fmt.Sprintf("Order item #%s (%s) refunded", item.ID, item.ProductName),
				Reference:   ledger.OrderItemRefundRef(item.ID),
			})
			if err != nil {
				return err
			}
			if created {
				refund = entry
			}
		}

		if err := repo.UpdateItemStatus(ctx, item.ID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order item")
		}
		if _, _, err := s.ledger.RecordOnce(ctx, tx, ledger.RecordInput{
			UserID:      order.UserID,
			Amount:      decimal.Zero,
			Type:        enums.LedgerEntryOrderItemStatus,
			Description: fmt.Sprintf("Order item #%s (%s) status changed to %s", item.ID, item.ProductName, status),
			Reference:   ledger.OrderItemStatusRef(item.ID, status),
		}); err != nil {
			return err
		}
		item.Status = status
		result = &StatusUpdateResult{
			Success:      true,
			UpdatedCount: 1,
			Message:      fmt.Sprintf("Successfully updated order item to %s", status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return result, nil
	}

	s.notify.Publish(ctx, notifier.EventOrderStatusUpdate, "Order status updated", item, notifier.RefreshOrderStatus)
	if refund != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_item_id": item.ID.String(),
			"amount":        refund.Amount.StringFixed(2),
		}), "order item refund issued")
		s.notify.Publish(ctx, notifier.EventTransactionUpdate, "Transaction recorded", refund, notifier.RefreshTransaction)
	}
	return result, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return rows, nil
}

func (s *service) Completed(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := s.repo.ListCompletedByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list completed orders")
	}
	return rows, nil
}

// ListViews merges regular and guest shop orders newest first.
func (s *service) ListViews(ctx context.Context, window pagination.Window) (*ViewList, error) {
	window = window.Normalize()
	fetch := window.Offset + window.Limit

	regular, err := s.repo.ListRecent(ctx, fetch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	shop, err := s.shop.ListRecent(ctx, fetch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shop orders")
	}
	regularCount, err := s.repo.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
	}
	shopCount, err := s.shop.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count shop orders")
	}

	sort.SliceStable(shop, func(i, j int) bool { return shop[i].OrderTime.After(shop[j].OrderTime) })
	merged := mergeViews(regular, shop)

	start, end := window.Bounds(len(merged))
	total := regularCount + shopCount
	return &ViewList{
		Orders:     merged[start:end],
		TotalCount: total,
		HasMore:    window.HasMore(total),
	}, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
