package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bundlehub-backend/api/controllers"
	"github.com/angelmondragon/bundlehub-backend/api/middleware"
	"github.com/angelmondragon/bundlehub-backend/internal/agents"
	"github.com/angelmondragon/bundlehub-backend/internal/cart"
	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/internal/orders"
	"github.com/angelmondragon/bundlehub-backend/internal/products"
	"github.com/angelmondragon/bundlehub-backend/internal/reporting"
	"github.com/angelmondragon/bundlehub-backend/internal/shop"
	"github.com/angelmondragon/bundlehub-backend/internal/sms"
	"github.com/angelmondragon/bundlehub-backend/internal/topups"
	"github.com/angelmondragon/bundlehub-backend/pkg/config"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	"github.com/angelmondragon/bundlehub-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/bundlehub-backend/pkg/redis"
)

// Params carries everything the API surface is built from.
type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.HTTPMetrics

	// Ready is pinged by /health/ready, keyed by dependency name.
	Ready          map[string]controllers.Pinger
	Idempotency    pkgredis.IdempotencyStore
	RateLimiter    middleware.RateLimiter
	MetricsHandler http.Handler
	Events         http.Handler

	SMS       sms.Service
	Products  products.Service
	Shop      shop.Service
	Cart      cart.Service
	Orders    orders.Service
	Ledger    ledger.Service
	Reporting reporting.Service
	Agents    agents.Service
	TopUps    topups.Service
}

func (p Params) validate() error {
	switch {
	case p.Config == nil:
		return fmt.Errorf("config required")
	case p.Idempotency == nil:
		return fmt.Errorf("idempotency store required")
	case p.RateLimiter == nil:
		return fmt.Errorf("rate limiter required")
	case p.SMS == nil, p.Products == nil, p.Shop == nil, p.Cart == nil, p.Orders == nil:
		return fmt.Errorf("sms, products, shop, cart and orders services required")
	case p.Ledger == nil, p.Reporting == nil, p.Agents == nil, p.TopUps == nil:
		return fmt.Errorf("ledger, reporting, agents and topups services required")
	}
	return nil
}

func NewRouter(p Params) (http.Handler, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, p.Metrics),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	smsPolicy := middleware.NewRateLimitPolicy("sms", cfg.RateLimit.Window, cfg.RateLimit.SMSLimit, cfg.RateLimit.ForwardedIP)
	guestPolicy := middleware.NewRateLimitPolicy("guest-order", cfg.RateLimit.Window, cfg.RateLimit.GuestLimit, cfg.RateLimit.ForwardedIP)
	storePolicy := middleware.NewRateLimitPolicy("store-order", cfg.RateLimit.Window, cfg.RateLimit.StoreLimit, cfg.RateLimit.ForwardedIP)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready))
	})
	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}
	if p.Events != nil {
		r.With(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(logg, enums.UserRoleAdmin),
		).Method(http.MethodGet, "/ws", p.Events)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sms", func(r chi.Router) {
			r.With(
				middleware.RateLimit(smsPolicy, p.RateLimiter, logg),
				middleware.ForwarderSecret(cfg.SMS.ForwarderSecretHash, logg),
			).Post("/", controllers.SMSIngest(p.SMS, logg))
			r.Post("/verify/amount", controllers.SMSVerifyAmount(p.SMS, logg))
		})

		r.Route("/shop", func(r chi.Router) {
			r.Get("/products", controllers.ShopProducts(p.Products, logg))
			r.With(middleware.RateLimit(guestPolicy, p.RateLimiter, logg)).Post("/order", controllers.ShopPlaceOrder(p.Shop, logg))
			r.Post("/complaint", controllers.ShopFileComplaint(p.Shop, logg))
		})

		r.Route("/store/{slug}", func(r chi.Router) {
			r.Get("/", controllers.PublicStore(p.Agents, logg))
			r.With(middleware.RateLimit(storePolicy, p.RateLimiter, logg)).Post("/order", controllers.PublicStoreOrder(p.Agents, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(p.Idempotency, cfg.Redis.IdempotencyTTL, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.CatalogForCaller(p.Products, logg))
				r.Get("/{productId}", controllers.ProductGet(p.Products, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(p.Cart, logg))
				r.Post("/items", controllers.CartAddItem(p.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/submit", controllers.OrdersSubmit(p.Orders, logg))
				r.Get("/history", controllers.OrdersHistory(p.Orders, logg))
				r.Get("/completed", controllers.OrdersCompleted(p.Orders, logg))
			})

			r.Route("/transactions/me", func(r chi.Router) {
				r.Get("/", controllers.MyTransactions(p.Ledger, logg))
				r.Get("/summary", controllers.MyTransactionSummary(p.Ledger, logg))
			})

			r.Route("/agent/storefront", func(r chi.Router) {
				r.Use(middleware.RejectRole(logg, enums.UserRoleAdmin))

				r.Get("/", controllers.AgentStorefrontGet(p.Agents, logg))
				r.Post("/", controllers.AgentStorefrontSave(p.Agents, logg))
				r.Post("/regenerate-link", controllers.AgentStorefrontRegenerateLink(p.Agents, logg))

				r.Get("/available-products", controllers.AgentAvailableProducts(p.Agents, logg))
				r.Get("/products", controllers.AgentListProducts(p.Agents, logg))
				r.Post("/products", controllers.AgentAddProduct(p.Agents, logg))
				r.Post("/products/bulk", controllers.AgentAddProducts(p.Agents, logg))
				r.Put("/products", controllers.AgentUpdateProductPrice(p.Agents, logg))
				r.Delete("/products/{listingId}", controllers.AgentRemoveProduct(p.Agents, logg))

				r.Get("/orders", controllers.AgentListOrders(p.Agents, logg))
				r.Post("/orders/{orderId}/approve", controllers.AgentApproveOrder(p.Agents, logg))
				r.Post("/orders/{orderId}/reject", controllers.AgentRejectOrder(p.Agents, logg))
				r.Get("/orders-in-cart", controllers.AgentOrdersInCart(p.Agents, logg))
				r.Post("/mark-orders-submitted", controllers.AgentMarkOrdersSubmitted(p.Agents, logg))
				r.Get("/profit-stats", controllers.AgentProfitStats(p.Agents, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

				r.Get("/orders", controllers.AdminOrders(p.Orders, logg))
				r.Get("/orders/stats", controllers.AdminOrderStats(p.Reporting, logg))
				r.Post("/orders/{orderId}/status", controllers.AdminOrderStatus(p.Orders, logg))
				r.Post("/order-items/{itemId}/status", controllers.AdminOrderItemStatus(p.Orders, logg))

				r.Get("/shop/orders", controllers.AdminShopOrders(p.Shop, logg))
				r.Post("/shop/orders/{shopOrderId}/status", controllers.AdminShopOrderStatus(p.Shop, logg))

				r.Route("/complaints", func(r chi.Router) {
					r.Get("/", controllers.AdminComplaints(p.Shop, logg))
					r.Get("/count", controllers.AdminComplaintsCount(p.Shop, logg))
					r.Post("/{complaintId}/status", controllers.AdminComplaintStatus(p.Shop, logg))
					r.Delete("/{complaintId}", controllers.AdminComplaintDelete(p.Shop, logg))
				})

				r.Route("/sms", func(r chi.Router) {
					r.Get("/unprocessed", controllers.AdminSMSUnprocessed(p.SMS, logg))
					r.Get("/payment-received", controllers.AdminSMSPaymentReceived(p.SMS, logg))
					r.Post("/{smsId}/processed", controllers.AdminSMSMarkProcessed(p.SMS, logg))
				})

				r.Route("/transactions", func(r chi.Router) {
					r.Get("/", controllers.AdminTransactions(p.Ledger, logg))
					r.Get("/stats", controllers.AdminTransactionStats(p.Reporting, logg))
					r.Get("/balance-sheet", controllers.AdminBalanceSheet(p.Reporting, logg))
				})

				r.Route("/agent-profits", func(r chi.Router) {
					r.Get("/", controllers.AdminAgentProfits(p.Agents, logg))
					r.Get("/stats", controllers.AdminAgentProfitStats(p.Agents, logg))
					r.Post("/{profitId}/deposit", controllers.AdminDepositProfit(p.Agents, logg))
					r.Post("/{profitId}/send-cash", controllers.AdminSendCashProfit(p.Agents, logg))
				})

				r.Route("/users/{userId}/topups", func(r chi.Router) {
					r.Get("/", controllers.AdminUserTopUps(p.TopUps, logg))
					r.Post("/", controllers.AdminApproveTopUp(p.TopUps, logg))
				})
			})
		})
	})

	return r, nil
}
