package agents

import (
	"context"
	"errors"
	"testing"
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
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

type harness struct {
	conn   *gorm.DB
	svc    Service
	carts  cart.Service
	ledger ledger.Service
	events *notifier.Recorder
	now    time.Time
}

func newHarness(t *testing.T, name string) *harness {
	t.Helper()
	conn := dbtest.Open(t, name)
	client := db.Wrap(conn)
	logg := logger.New(logger.Options{ServiceName: "test"})
	usersRepo := users.NewRepository(conn)
	productsRepo := products.NewRepository(conn)

	h := &harness{conn: conn, events: &notifier.Recorder{}, now: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), usersRepo, nil, logg)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	cartSvc, err := cart.NewService(cart.NewRepository(conn), productsRepo, client, logg)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	smsSvc, err := sms.NewService(sms.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("sms service: %v", err)
	}
	h.svc, err = NewService(ServiceParams{
		Repo:       NewRepository(conn),
		Products:   productsRepo,
		Users:      usersRepo,
		Cart:       cartSvc,
		SMS:        smsSvc,
		Ledger:     ledgerSvc,
		ShopOrders: shop.NewRepository(conn),
		TxRunner:   client,
		Notifier:   h.events,
		Logger:     logg,
		Storefront: config.StorefrontConfig{PaymentNumber: "0531413817", PaymentName: "BundleHub"},
		Now:        func() time.Time { return h.now },
	})
	if err != nil {
		t.Fatalf("agents service: %v", err)
	}
	h.carts = cartSvc
	h.ledger = ledgerSvc
	return h
}

// storeWithListing creates a SUPER agent with a storefront selling one
// SUPER product priced 10 at 12.
func (h *harness) storeWithListing(t *testing.T) (models.User, *models.AgentStorefront, models.AgentStorefrontProduct) {
	t.Helper()
	ctx := context.Background()
	agent := dbtest.SeedUser(t, h.conn, enums.UserRoleSuper, "0")
	product := dbtest.SeedProduct(t, h.conn, "SUPER 5GB", "10.00", enums.ProductCategorySuper)

	store, err := h.svc.SaveStorefront(ctx, agent.ID, StorefrontInput{StoreName: "Ama Data Hub"})
	if err != nil {
		t.Fatalf("save storefront: %v", err)
	}
	listing, err := h.svc.AddProduct(ctx, agent.ID, ListingInput{ProductID: product.ID, CustomPrice: decimal.RequireFromString("12.00")})
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	return agent, store, *listing
}

func TestSlug(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	got := Slug("  Ama's Data Hub! ", at)
	want := "ama-s-data-hub-loyw3v28"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSaveStorefrontCreatesThenUpdates(t *testing.T) {
	h := newHarness(t, t.Name())
	ctx := context.Background()
	agent := dbtest.SeedUser(t, h.conn, enums.UserRoleNormal, "0")

	momo := "0240000000"
	created, err := h.svc.SaveStorefront(ctx, agent.ID, StorefrontInput{StoreName: "Kofi Bundles", MomoNumber: &momo})
	if err != nil {
		t.Fatalf("create storefront: %v", err)
	}
	if !created.IsActive || created.MomoNumber == nil || *created.MomoNumber != momo {
		t.Fatalf("unexpected storefront: %+v", created)
	}

	updated, err := h.svc.SaveStorefront(ctx, agent.ID, StorefrontInput{StoreName: "Kofi Data"})
	if err != nil {
		t.Fatalf("update storefront: %v", err)
	}
	if updated.ID != created.ID || updated.StoreName != "Kofi Data" || updated.StoreSlug != created.StoreSlug {
		t.Fatalf("expected rename in place, got %+v", updated)
	}
	if updated.MomoNumber == nil || *updated.MomoNumber != momo {
		t.Fatal("expected momo number kept when omitted")
	}

	h.now = h.now.Add(time.Second)
	relinked, err := h.svc.RegenerateLink(ctx, agent.ID)
	if err != nil {
		t.Fatalf("regenerate link: %v", err)
	}
	if relinked.StoreSlug == created.StoreSlug {
		t.Fatal("expected a new slug")
	}
	if _, err := h.svc.GetStorefrontBySlug(ctx, created.StoreSlug); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected old slug to be gone, got %v", err)
	}

	if _, err := h.svc.SaveStorefront(ctx, agent.ID, StorefrontInput{StoreName: " "}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAvailableProductsFollowRole(t *testing.T) {
	h := newHarness(t, t.Name())
	ctx := context.Background()
	dbtest.SeedProduct(t, h.conn, "General 1GB", "5", enums.ProductCategoryGeneral)
	dbtest.SeedProduct(t, h.conn, "Premium 1GB", "7", enums.ProductCategoryPremium)
	empty := dbtest.SeedProduct(t, h.conn, "Premium 2GB", "9", enums.ProductCategoryPremium)
	if err := h.conn.Model(&models.Product{}).Where("id = ?", empty.ID).Update("stock", 0).Error; err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	premium := dbtest.SeedUser(t, h.conn, enums.UserRolePremium, "0")
	got, err := h.svc.AvailableProducts(ctx, premium.ID)
	if err != nil {
		t.Fatalf("available products: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Premium 1GB" {
		t.Fatalf("expected only in-stock premium product, got %+v", got)
	}

	user := dbtest.SeedUser(t, h.conn, enums.UserRoleUser, "0")
	got, err = h.svc.AvailableProducts(ctx, user.ID)
	if err != nil || len(got) != 1 || got[0].Category != enums.ProductCategoryGeneral {
		t.Fatalf("expected general catalog for USER, got %+v err=%v", got, err)
	}

	admin := dbtest.SeedUser(t, h.conn, enums.UserRoleAdmin, "0")
	if _, err := h.svc.AvailableProducts(ctx, admin.ID); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for admin, got %v", err)
	}
}

func TestCatalogEnforcesPriceFloor(t *testing.T) {
	h := newHarness(t, t.Name())
	ctx := context.Background()
	agent, _, listing := h.storeWithListing(t)

	if _, err := h.svc.AddProduct(ctx, agent.ID, ListingInput{ProductID: listing.ProductID, CustomPrice: decimal.RequireFromString("9.99")}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected below-cost rejection, got %v", err)
	}
	if _, err := h.svc.UpdateProductPrice(ctx, agent.ID, listing.ID, decimal.RequireFromString("9")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected below-cost update rejection, got %v", err)
	}

	// re-adding reprices the same listing
	again, err := h.svc.AddProduct(ctx, agent.ID, ListingInput{ProductID: listing.ProductID, CustomPrice: decimal.RequireFromString("13")})
	if err != nil {
		t.Fatalf("re-add product: %v", err)
	}
	if again.ID != listing.ID {
		t.Fatal("expected the existing listing to be updated")
	}

	second := dbtest.SeedProduct(t, h.conn, "SUPER 10GB", "20", enums.ProductCategorySuper)
	third := dbtest.SeedProduct(t, h.conn, "SUPER 20GB", "30", enums.ProductCategorySuper)
	_, err = h.svc.AddProducts(ctx, agent.ID, []ListingInput{
		{ProductID: second.ID, CustomPrice: decimal.RequireFromString("22")},
		{ProductID: third.ID, CustomPrice: decimal.RequireFromString("25")},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected bulk rejection, got %v", err)
	}
	listed, err := h.svc.ListProducts(ctx, agent.ID)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected bulk add rolled back, got %d listings err=%v", len(listed), err)
	}

	added, err := h.svc.AddProducts(ctx, agent.ID, []ListingInput{
		{ProductID: second.ID, CustomPrice: decimal.RequireFromString("22")},
		{ProductID: uuid.New(), CustomPrice: decimal.RequireFromString("1")},
	})
	if err != nil {
		t.Fatalf("bulk add: %v", err)
	}
	if len(added) != 1 || added[0].ProductID != second.ID {
		t.Fatalf("expected unknown product skipped, got %+v", added)
	}

	if err := h.svc.RemoveProduct(ctx, agent.ID, listing.ID); err != nil {
		t.Fatalf("remove product: %v", err)
	}
	if err := h.svc.RemoveProduct(ctx, agent.ID, listing.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestAddProductRequiresStorefront(t *testing.T) {
	h := newHarness(t, t.Name())
	agent := dbtest.SeedUser(t, h.conn, enums.UserRoleSuper, "0")
	product := dbtest.SeedProduct(t, h.conn, "SUPER 1GB", "4", enums.ProductCategorySuper)

	_, err := h.svc.AddProduct(context.Background(), agent.ID, ListingInput{ProductID: product.ID, CustomPrice: decimal.RequireFromString("5")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if rows, err := h.svc.ListProducts(context.Background(), agent.ID); err != nil || len(rows) != 0 {
		t.Fatalf("expected empty listing, got %d err=%v", len(rows), err)
	}
}

func TestPublicStoreShowsPlatformPaymentDetails(t *testing.T) {
	h := newHarness(t, t.Name())
	_, store, listing := h.storeWithListing(t)

	public, err := h.svc.PublicStore(context.Background(), store.StoreSlug)
	if err != nil {
		t.Fatalf("public store: %v", err)
	}
	if public.Storefront.MomoNumber != "0531413817" || public.Storefront.MomoName != "BundleHub" {
		t.Fatalf("expected platform payment details, got %+v", public.Storefront)
	}
	if len(public.Products) != 1 || public.Products[0].ID != listing.ID || !public.Products[0].CustomPrice.Equal(decimal.RequireFromString("12")) {
		t.Fatalf("unexpected products: %+v", public.Products)
	}

	if _, err := h.svc.PublicStore(context.Background(), "missing-store"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateStoreOrderWritesOrderShopOrderAndProfit(t *testing.T) {
	h := newHarness(t, t.Name())
	ctx := context.Background()
	agent, store, listing := h.storeWithListing(t)
	dbtest.SeedSMS(t, h.conn, "AG-1001", "12.00")

	res, err := h.svc.CreateStoreOrder(ctx, store.StoreSlug, StoreOrderInput{
		CustomerName:  "Esi",
		CustomerPhone: "0551112222",
		ListingID:     listing.ID,
		TransactionID: "AG-1001",
	})
	if err != nil {
		t.Fatalf("create store order: %v", err)
	}

	if res.AgentOrder.Status != enums.AgentStoreOrderProcessing || !res.AgentOrder.IsPushedToAdmin {
		t.Fatalf("unexpected agent order: %+v", res.AgentOrder)
	}
	if res.ShopOrder.Source != enums.ShopOrderSourceAgentStore || !res.ShopOrder.Amount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected admin-priced agent shop order, got %+v", res.ShopOrder)
	}
	if res.AgentOrder.ShopOrderID == nil || *res.AgentOrder.ShopOrderID != res.ShopOrder.ID {
		t.Fatal("expected agent order linked to shop order")
	}
	if res.Profit.AgentID != agent.ID || !res.Profit.Profit.Equal(decimal.RequireFromString("2")) || res.Profit.Status != enums.AgentProfitPending {
		t.Fatalf("unexpected profit: %+v", res.Profit)
	}
	if h.events.Count(notifier.EventNewShopOrder) != 1 {
		t.Fatal("expected new-shop-order event")
	}

	// the same payment cannot back a second order
	_, err = h.svc.CreateStoreOrder(ctx, store.StoreSlug, StoreOrderInput{
		CustomerName:  "Esi",
		CustomerPhone: "0551112222",
		ListingID:     listing.ID,
		TransactionID: "AG-1001",
	})
	if !errors.Is(err, sms.ErrAlreadyConsumed) {
		t.Fatalf("expected already consumed, got %v", err)
	}
}

func TestCreateStoreOrderRejectsUnderpayment(t *testing.T) {
	h := newHarness(t, t.Name())
	ctx := context.Background()
	_, store, listing := h.storeWithListing(t)
	dbtest.SeedSMS(t, h.conn, "AG-LOW", "11.50")

	_, err := h.svc.CreateStoreOrder(ctx, store.StoreSlug, StoreOrderInput{
		CustomerName:  "Esi",
		CustomerPhone: "0551112222",
		ListingID:     listing.ID,
		TransactionID: "AG-LOW",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var msg models.SmsMessage
	if err := h.conn.Where("reference = ?", "AG-LOW").First(&msg).Error; err != nil {
		t.Fatalf("load sms: %v", err)
	}
	if msg.IsProcessed {
		t.Fatal("expected sms consumption rolled back")
	}
	var count int64
	h.conn.Model(&models.ShopOrder{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no shop order, got %d", count)
	}
}

func seedPendingOrder(t *testing.T, conn *gorm.DB, store *models.AgentStorefront, listing models.AgentStorefrontProduct, txID string) models.AgentStoreOrder {
	t.Helper()
	order := models.AgentStoreOrder{
		StorefrontID:  store.ID,
		CustomerName:  "Yaw",
		CustomerPhone: "0209998888",
		ProductID:     listing.ProductID,
		ProductName:   "SUPER 5GB",
		CustomerPrice: listing.CustomPrice,
		AgentPrice:    decimal.RequireFromString("10"),
		TransactionID: txID,
		Status:        enums.AgentStoreOrderPending,
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed agent order: %v", err)
	}
	return order
}

func TestApproveOrderAddsToAgentCart(t *testing.T) {
	h := newHarness(t, t.Name())
	ctx := context.Background()
	agent, store, listing := h.storeWithListing(t)
	order := seedPendingOrder(t, h.conn, store, listing, "AG-P1")

	approved, err := h.svc.ApproveOrder(ctx, agent.ID, order.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.AgentStoreOrderApproved || !approved.IsAddedToCart {
		t.Fatalf("unexpected order: %+v", approved)
	}

	c, err := h.carts.Get(ctx, agent.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(c.Items) != 1 {
		t.Fatalf("expected one cart line, got %d", len(c.Items))
	}
	line := c.Items[0]
	if !line.Price.Equal(decimal.RequireFromString("10")) || line.MobileNumber == nil || *line.MobileNumber != "0209998888" {
		t.Fatalf("expected agent price and customer phone, got %+v", line)
	}

	if _, err := h.svc.ApproveOrder(ctx, agent.ID, order.ID); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected second approval refused, got %v", err)
	}

	inCart, err := h.svc.ApprovedOrdersInCart(ctx, agent.ID)
	if err != nil || len(inCart) != 1 {
		t.Fatalf("expected one approved order in cart, got %d err=%v", len(inCart), err)
	}

	stats, err := h.svc.ProfitStats(ctx, agent.ID)
	if err != nil {
		t.Fatalf("profit stats: %v", err)
	}
	if stats.ApprovedOrders != 1 || !stats.PotentialProfit.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("unexpected stats before submit: %+v", stats)
	}

	n, err := h.svc.MarkOrdersSubmitted(ctx, agent.ID, []uuid.UUID{order.ID})
	if err != nil || n != 1 {
		t.Fatalf("mark submitted: n=%d err=%v", n, err)
	}
	stats, err = h.svc.ProfitStats(ctx, agent.ID)
	if err != nil {
		t.Fatalf("profit stats: %v", err)
	}
	if stats.CompletedOrders != 1 || !stats.TotalProfit.Equal(decimal.RequireFromString("2")) || stats.ApprovedOrders != 0 {
		t.Fatalf("unexpected stats after submit: %+v", stats)
	}
}

func TestRejectOrderRequiresPending(t *testing.T) {
	h := newHarness(t, t.Name())
	ctx := context.Background()
	agent, store, listing := h.storeWithListing(t)
	order := seedPendingOrder(t, h.conn, store, listing, "AG-R1")

	rejected, err := h.svc.RejectOrder(ctx, agent.ID, order.ID)
	if err != nil || rejected.Status != enums.AgentStoreOrderRejected {
		t.Fatalf("reject: %+v err=%v", rejected, err)
	}
	if _, err := h.svc.RejectOrder(ctx, agent.ID, order.ID); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	other := dbtest.SeedUser(t, h.conn, enums.UserRoleSuper, "0")
	if _, err := h.svc.RejectOrder(ctx, other.ID, order.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for another agent, got %v", err)
	}
}

func TestDepositProfitCreditsWalletOnce(t *testing.T) {
	h := newHarness(t, t.Name())
	ctx := context.Background()
	agent, store, listing := h.storeWithListing(t)
	dbtest.SeedSMS(t, h.conn, "AG-D1", "12.00")
	dbtest.SeedSMS(t, h.conn, "AG-D2", "12.00")

	first, err := h.svc.CreateStoreOrder(ctx, store.StoreSlug, StoreOrderInput{
		CustomerName: "A", CustomerPhone: "0240000001", ListingID: listing.ID, TransactionID: "AG-D1",
	})
	if err != nil {
		t.Fatalf("order 1: %v", err)
	}
	second, err := h.svc.CreateStoreOrder(ctx, store.StoreSlug, StoreOrderInput{
		CustomerName: "B", CustomerPhone: "0240000002", ListingID: listing.ID, TransactionID: "AG-D2",
	})
	if err != nil {
		t.Fatalf("order 2: %v", err)
	}

	deposited, err := h.svc.DepositProfit(ctx, first.Profit.ID)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if deposited.Status != enums.AgentProfitDeposited {
		t.Fatalf("expected deposited, got %s", deposited.Status)
	}

	var user models.User
	if err := h.conn.First(&user, "id = ?", agent.ID).Error; err != nil {
		t.Fatalf("load agent: %v", err)
	}
	if !user.LoanBalance.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("expected balance 2, got %s", user.LoanBalance)
	}
	entry, err := h.ledger.FindByReference(ctx, h.conn, enums.LedgerEntryAgentProfitDeposit, ledger.AgentProfitRef(first.Profit.ID))
	if err != nil || !entry.Amount.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("expected deposit entry, got %+v err=%v", entry, err)
	}

	_, err = h.svc.DepositProfit(ctx, first.Profit.ID)
	if !errors.Is(err, ErrAlreadyProcessed) || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected already processed, got %v", err)
	}
	if _, err := h.svc.SendCashProfit(ctx, first.Profit.ID); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected send-cash refused after deposit, got %v", err)
	}

	sent, err := h.svc.SendCashProfit(ctx, second.Profit.ID)
	if err != nil || sent.Status != enums.AgentProfitSent {
		t.Fatalf("send cash: %+v err=%v", sent, err)
	}

	stats, err := h.svc.AdminProfitStats(ctx)
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if stats.TotalOrders != 2 || !stats.TotalProfit.Equal(decimal.RequireFromString("4")) ||
		!stats.DepositedProfit.Equal(decimal.RequireFromString("2")) || !stats.SentProfit.Equal(decimal.RequireFromString("2")) ||
		!stats.PendingProfit.IsZero() {
		t.Fatalf("unexpected admin stats: %+v", stats)
	}

	status := enums.AgentProfitDeposited
	views, err := h.svc.ListProfits(ctx, ProfitFilter{Status: &status})
	if err != nil {
		t.Fatalf("list profits: %v", err)
	}
	if len(views) != 1 || views[0].Agent == nil || views[0].Agent.ID != agent.ID {
		t.Fatalf("expected one deposited profit with agent, got %+v", views)
	}

	if _, err := h.svc.DepositProfit(ctx, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
