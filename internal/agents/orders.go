package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/cart"
	"github.com/angelmondragon/bundlehub-backend/internal/notifier"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
)

// StoreOrderInput is a customer checkout on an agent storefront.
type StoreOrderInput struct {
	CustomerName  string
	CustomerPhone string
	ListingID     uuid.UUID
	TransactionID string
}

// StoreOrderResult pairs the agent-side order with the admin fulfilment row.
type StoreOrderResult struct {
	AgentOrder models.AgentStoreOrder `json:"agentOrder"`
	ShopOrder  models.ShopOrder       `json:"shopOrder"`
	Profit     models.AgentProfit     `json:"profit"`
}

// AgentProfitStats summarises an agent's store orders.
type AgentProfitStats struct {
	TotalProfit     decimal.Decimal `json:"totalProfit"`
	PotentialProfit decimal.Decimal `json:"potentialProfit"`
	TotalOrders     int             `json:"totalOrders"`
	CompletedOrders int             `json:"completedOrders"`
	PendingOrders   int             `json:"pendingOrders"`
	ApprovedOrders  int             `json:"approvedOrders"`
}

// CreateStoreOrder settles a storefront purchase against its payment SMS. The
// SMS, the agent order, the admin shop order and the agent's profit are
// written in one transaction.
func (s *service) CreateStoreOrder(ctx context.Context, slug string, input StoreOrderInput) (*StoreOrderResult, error) {
	name := strings.TrimSpace(input.CustomerName)
	phone := strings.TrimSpace(input.CustomerPhone)
	txID := strings.TrimSpace(input.TransactionID)
	if name == "" || phone == "" || txID == "" || input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name, phone, product and transaction id are required")
	}

	store, err := s.activeStore(ctx, slug)
	if err != nil {
		return nil, err
	}
	listing, err := s.repo.FindListingByID(ctx, store.ID, input.ListingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if listing == nil || !listing.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found in this store")
	}
	if listing.Product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	product := *listing.Product
	if _, err := s.users.FindByID(ctx, store.AgentID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load agent")
	}

	var result StoreOrderResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		msg, err := s.sms.ConsumeTx(ctx, tx, txID)
		if err != nil {
			return err
		}
		if msg.Amount.LessThan(listing.CustomPrice) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf(
				"Payment amount (GHS %s) is less than product price (GHS %s)",
				msg.Amount.StringFixed(2), listing.CustomPrice.StringFixed(2),
			))
		}

		shopOrder := models.ShopOrder{
			Reference:          txID,
			Amount:             product.Price,
			PhoneNumber:        phone,
			FullName:           name,
			Message:            "Agent Store Order from " + store.StoreName,
			ProductID:          &product.ID,
			ProductName:        product.Name,
			ProductDescription: product.Description,
			ProductPrice:       product.Price,
			Status:             enums.OrderStatusPending,
			Source:             enums.ShopOrderSourceAgentStore,
			OrderTime:          s.now().UTC(),
		}
		if err := s.shop.WithTx(tx).Create(ctx, &shopOrder); err != nil {
			return mapDuplicateTransaction(err, txID)
		}

		agentOrder := models.AgentStoreOrder{
			StorefrontID:       store.ID,
			CustomerName:       name,
			CustomerPhone:      phone,
			ProductID:          product.ID,
			ProductName:        product.Name,
			ProductDescription: product.Description,
			CustomerPrice:      listing.CustomPrice,
			AgentPrice:         product.Price,
			TransactionID:      txID,
			Status:             enums.AgentStoreOrderProcessing,
			IsPushedToAdmin:    true,
			ShopOrderID:        &shopOrder.ID,
		}
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, &agentOrder); err != nil {
			return mapDuplicateTransaction(err, txID)
		}

		profit := models.AgentProfit{
			AgentID:           store.AgentID,
			AgentStoreOrderID: agentOrder.ID,
			OrderReference:    txID,
			CustomerPrice:     listing.CustomPrice,
			AdminPrice:        product.Price,
			Profit:            agentOrder.Markup(),
			Status:            enums.AgentProfitPending,
		}
		if err := repo.CreateProfit(ctx, &profit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record agent profit")
		}

		result = StoreOrderResult{AgentOrder: agentOrder, ShopOrder: shopOrder, Profit: profit}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithTransactionID(ctx, txID)
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"store_slug": store.StoreSlug,
		"profit":     result.Profit.Profit.StringFixed(2),
	}), "agent store order created")
	s.notify.Publish(ctx, notifier.EventNewShopOrder, "New agent store order received", result.ShopOrder, notifier.RefreshShopOrder)
	return &result, nil
}

func mapDuplicateTransaction(err error, txID string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "This transaction ID has already been used").
			WithDetails(map[string]any{"transactionId": txID})
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store order")
}

func (s *service) ListOrders(ctx context.Context, agentID uuid.UUID, status *enums.AgentStoreOrderStatus) ([]models.AgentStoreOrder, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	store, err := s.repo.FindStorefrontByAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}
	if store == nil {
		return []models.AgentStoreOrder{}, nil
	}
	rows, err := s.repo.ListOrders(ctx, store.ID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list store orders")
	}
	return rows, nil
}

func (s *service) pendingOrder(ctx context.Context, repo Repository, agentID, orderID uuid.UUID) (*models.AgentStoreOrder, error) {
	store, err := s.requireStorefront(ctx, repo, agentID)
	if err != nil {
		return nil, err
	}
	order, err := repo.FindOrder(ctx, store.ID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
	}
	if order.Status != enums.AgentStoreOrderPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order is not pending").
			WithDetails(map[string]any{"status": order.Status})
	}
	return order, nil
}

// ApproveOrder puts the order's product in the agent's own cart at the agent
// price, addressed to the customer's phone.
func (s *service) ApproveOrder(ctx context.Context, agentID, orderID uuid.UUID) (*models.AgentStoreOrder, error) {
	var order *models.AgentStoreOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.pendingOrder(ctx, repo, agentID, orderID)
		if err != nil {
			return err
		}

		phone := order.CustomerPhone
		if _, err := s.cart.AddOrMergeTx(ctx, tx, cart.MergeInput{
			UserID:       agentID,
			ProductID:    order.ProductID,
			Quantity:     1,
			Price:        order.AgentPrice,
			MobileNumber: &phone,
		}); err != nil {
			return err
		}

		won, err := repo.TransitionOrder(ctx, order.ID, enums.AgentStoreOrderPending, map[string]any{
			"status":           enums.AgentStoreOrderApproved,
			"is_added_to_cart": true,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve store order")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Order is not pending")
		}
		order.Status = enums.AgentStoreOrderApproved
		order.IsAddedToCart = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "agent store order approved")
	return order, nil
}

func (s *service) RejectOrder(ctx context.Context, agentID, orderID uuid.UUID) (*models.AgentStoreOrder, error) {
	order, err := s.pendingOrder(ctx, s.repo, agentID, orderID)
	if err != nil {
		return nil, err
	}
	won, err := s.repo.TransitionOrder(ctx, order.ID, enums.AgentStoreOrderPending, map[string]any{
		"status": enums.AgentStoreOrderRejected,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject store order")
	}
	if !won {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order is not pending")
	}
	order.Status = enums.AgentStoreOrderRejected
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "agent store order rejected")
	return order, nil
}

// MarkOrdersSubmitted flags approved, in-cart orders as pushed once the agent
// submitted the cart.
func (s *service) MarkOrdersSubmitted(ctx context.Context, agentID uuid.UUID, orderIDs []uuid.UUID) (int64, error) {
	store, err := s.repo.FindStorefrontByAgent(ctx, agentID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}
	if store == nil {
		return 0, nil
	}
	n, err := s.repo.MarkSubmitted(ctx, store.ID, orderIDs)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark orders submitted")
	}
	return n, nil
}

func (s *service) ApprovedOrdersInCart(ctx context.Context, agentID uuid.UUID) ([]models.AgentStoreOrder, error) {
	store, err := s.repo.FindStorefrontByAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}
	if store == nil {
		return []models.AgentStoreOrder{}, nil
	}
	rows, err := s.repo.ListApprovedInCart(ctx, store.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list approved orders")
	}
	return rows, nil
}

// ProfitStats counts pushed orders as earned and approved, unpushed orders
// as potential.
func (s *service) ProfitStats(ctx context.Context, agentID uuid.UUID) (*AgentProfitStats, error) {
	stats := &AgentProfitStats{TotalProfit: decimal.Zero, PotentialProfit: decimal.Zero}
	store, err := s.repo.FindStorefrontByAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load storefront")
	}
	if store == nil {
		return stats, nil
	}
	rows, err := s.repo.ListOrders(ctx, store.ID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list store orders")
	}

	stats.TotalOrders = len(rows)
	for _, o := range rows {
		switch {
		case o.IsPushedToAdmin:
			stats.CompletedOrders++
			stats.TotalProfit = stats.TotalProfit.Add(o.Markup())
		case o.Status == enums.AgentStoreOrderApproved:
			stats.ApprovedOrders++
			stats.PotentialProfit = stats.PotentialProfit.Add(o.Markup())
		}
		if o.Status == enums.AgentStoreOrderPending {
			stats.PendingOrders++
		}
	}
	return stats, nil
}
