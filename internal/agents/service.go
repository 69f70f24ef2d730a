package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/internal/cart"
	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/internal/notifier"
	"github.com/angelmondragon/bundlehub-backend/internal/products"
	"github.com/angelmondragon/bundlehub-backend/internal/shop"
	"github.com/angelmondragon/bundlehub-backend/internal/sms"
	"github.com/angelmondragon/bundlehub-backend/internal/users"
	"github.com/angelmondragon/bundlehub-backend/pkg/config"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

// ErrAlreadyProcessed reports a profit that already left Pending.
var ErrAlreadyProcessed = errors.New("profit already processed")

// Service is the agent reseller surface: storefront, catalog, store orders
// and the admin side of agent profits.
type Service interface {
	GetStorefront(ctx context.Context, agentID uuid.UUID) (*models.AgentStorefront, error)
	GetStorefrontBySlug(ctx context.Context, slug string) (*models.AgentStorefront, error)
	SaveStorefront(ctx context.Context, agentID uuid.UUID, input StorefrontInput) (*models.AgentStorefront, error)
	RegenerateLink(ctx context.Context, agentID uuid.UUID) (*models.AgentStorefront, error)

	AvailableProducts(ctx context.Context, agentID uuid.UUID) ([]models.Product, error)
	AddProduct(ctx context.Context, agentID uuid.UUID, input ListingInput) (*models.AgentStorefrontProduct, error)
	AddProducts(ctx context.Context, agentID uuid.UUID, inputs []ListingInput) ([]models.AgentStorefrontProduct, error)
	UpdateProductPrice(ctx context.Context, agentID, listingID uuid.UUID, customPrice decimal.Decimal) (*models.AgentStorefrontProduct, error)
	RemoveProduct(ctx context.Context, agentID, listingID uuid.UUID) error
	ListProducts(ctx context.Context, agentID uuid.UUID) ([]models.AgentStorefrontProduct, error)
	PublicStore(ctx context.Context, slug string) (*PublicStore, error)

	CreateStoreOrder(ctx context.Context, slug string, input StoreOrderInput) (*StoreOrderResult, error)
	ListOrders(ctx context.Context, agentID uuid.UUID, status *enums.AgentStoreOrderStatus) ([]models.AgentStoreOrder, error)
	ApproveOrder(ctx context.Context, agentID, orderID uuid.UUID) (*models.AgentStoreOrder, error)
	RejectOrder(ctx context.Context, agentID, orderID uuid.UUID) (*models.AgentStoreOrder, error)
	MarkOrdersSubmitted(ctx context.Context, agentID uuid.UUID, orderIDs []uuid.UUID) (int64, error)
	ApprovedOrdersInCart(ctx context.Context, agentID uuid.UUID) ([]models.AgentStoreOrder, error)
	ProfitStats(ctx context.Context, agentID uuid.UUID) (*AgentProfitStats, error)

	ListProfits(ctx context.Context, filter ProfitFilter) ([]ProfitView, error)
	AdminProfitStats(ctx context.Context) (*AdminProfitStats, error)
	DepositProfit(ctx context.Context, profitID uuid.UUID) (*models.AgentProfit, error)
	SendCashProfit(ctx context.Context, profitID uuid.UUID) (*models.AgentProfit, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the agent service.
type ServiceParams struct {
	Repo       Repository
	Products   products.Repository
	Users      *users.Repository
	Cart       cart.Service
	SMS        sms.Service
	Ledger     ledger.Service
	ShopOrders shop.Repository
	TxRunner   txRunner
	Notifier   notifier.Publisher
	Logger     *logger.Logger
	Storefront config.StorefrontConfig
	Now        func() time.Time
}

type service struct {
	repo     Repository
	products products.Repository
	users    *users.Repository
	cart     cart.Service
	sms      sms.Service
	ledger   ledger.Service
	shop     shop.Repository
	tx       txRunner
	notify   notifier.Publisher
	logg     *logger.Logger
	payment  config.StorefrontConfig
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("agent repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("products repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case params.SMS == nil:
		return nil, fmt.Errorf("sms service required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.ShopOrders == nil:
		return nil, fmt.Errorf("shop repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
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
		repo:     params.Repo,
		products: params.Products,
		users:    params.Users,
		cart:     params.Cart,
		sms:      params.SMS,
		ledger:   params.Ledger,
		shop:     params.ShopOrders,
		tx:       params.TxRunner,
		notify:   notify,
		logg:     params.Logger,
		payment:  params.Storefront,
		now:      now,
	}, nil
}
