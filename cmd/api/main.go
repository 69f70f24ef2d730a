package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bundlehub-backend/api/controllers"
	"github.com/angelmondragon/bundlehub-backend/api/routes"
	"github.com/angelmondragon/bundlehub-backend/internal/agents"
	"github.com/angelmondragon/bundlehub-backend/internal/cart"
	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/internal/notifier"
	"github.com/angelmondragon/bundlehub-backend/internal/orders"
	"github.com/angelmondragon/bundlehub-backend/internal/products"
	"github.com/angelmondragon/bundlehub-backend/internal/reporting"
	"github.com/angelmondragon/bundlehub-backend/internal/shop"
	"github.com/angelmondragon/bundlehub-backend/internal/sms"
	"github.com/angelmondragon/bundlehub-backend/internal/tasks"
	"github.com/angelmondragon/bundlehub-backend/internal/topups"
	"github.com/angelmondragon/bundlehub-backend/internal/users"
	"github.com/angelmondragon/bundlehub-backend/pkg/config"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	"github.com/angelmondragon/bundlehub-backend/pkg/metrics"
	"github.com/angelmondragon/bundlehub-backend/pkg/migrate"
	"github.com/angelmondragon/bundlehub-backend/pkg/pubsub"
	"github.com/angelmondragon/bundlehub-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := notifier.NewHub(cfg.Notifier.MaxClients, logg)
	sinks := []notifier.Sink{hub}
	if cfg.Notifier.PubSubTopic != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.Notifier.PubSubTopic, logg)
		if err != nil {
			return err
		}
		defer psClient.Close()
		publisher := psClient.Publisher(cfg.Notifier.PubSubTopic, pubsub.Batching{
			Delay: cfg.Notifier.PubSubBatchDelay,
			Count: cfg.Notifier.PubSubBatchCount,
		})
		defer publisher.Stop()
		sinks = append(sinks, notifier.NewPubSubSink(publisher, logg))
	} else {
		sinks = append(sinks, notifier.LogSink{Logg: logg})
	}
	notify := notifier.New(logg, sinks...)

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	productsRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	shopRepo := shop.NewRepository(conn)
	taskRepo := tasks.NewRepository(conn)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), usersRepo, metrics.NewLedgerMetrics(registry), logg)
	if err != nil {
		return err
	}
	productsSvc, err := products.NewService(productsRepo)
	if err != nil {
		return err
	}
	smsSvc, err := sms.NewService(sms.NewRepository(conn), logg)
	if err != nil {
		return err
	}
	cartSvc, err := cart.NewService(cartRepo, productsRepo, dbClient, logg)
	if err != nil {
		return err
	}
	ordersSvc, err := orders.NewService(orders.NewRepository(conn), cartRepo, productsRepo, usersRepo, ledgerSvc, shopRepo, dbClient, notify, logg)
	if err != nil {
		return err
	}
	scheduler, err := tasks.NewScheduler(taskRepo, logg)
	if err != nil {
		return err
	}
	shopSvc, err := shop.NewService(shop.ServiceParams{
		Repo:        shopRepo,
		Complaints:  shop.NewComplaintRepository(conn),
		SMS:         smsSvc,
		Scheduler:   scheduler,
		TxRunner:    dbClient,
		Notifier:    notify,
		Logger:      logg,
		VerifyDelay: cfg.Reconciler.GuestVerifyDelay,
	})
	if err != nil {
		return err
	}
	agentsSvc, err := agents.NewService(agents.ServiceParams{
		Repo:       agents.NewRepository(conn),
		Products:   productsRepo,
		Users:      usersRepo,
		Cart:       cartSvc,
		SMS:        smsSvc,
		Ledger:     ledgerSvc,
		ShopOrders: shopRepo,
		TxRunner:   dbClient,
		Notifier:   notify,
		Logger:     logg,
		Storefront: cfg.Storefront,
	})
	if err != nil {
		return err
	}
	topupsSvc, err := topups.NewService(topups.NewRepository(conn), ledgerSvc, dbClient, notify, logg)
	if err != nil {
		return err
	}
	reportingSvc, err := reporting.NewService(reporting.ServiceParams{
		Repo:     reporting.NewRepository(conn),
		Ledger:   ledger.NewRepository(conn),
		Cache:    redisClient,
		CacheTTL: cfg.Reporting.StatsCacheTTL,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	dispatcher, err := tasks.NewDispatcher(tasks.DispatcherParams{
		Repo:      taskRepo,
		Logger:    logg,
		Metrics:   metrics.NewTaskMetrics(registry),
		Interval:  cfg.Reconciler.DispatchInterval,
		BatchSize: cfg.Reconciler.DispatchBatchSize,
	})
	if err != nil {
		return err
	}
	if err := dispatcher.Register(shop.KindGuestVerify, shop.VerifyTaskHandler(shopSvc)); err != nil {
		return err
	}

	router, err := routes.NewRouter(routes.Params{
		Config:  cfg,
		Logger:  logg,
		Metrics: metrics.NewHTTPMetrics(registry),
		Ready: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Idempotency:    redisClient,
		RateLimiter:    redisClient,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Events:         hub,
		SMS:            smsSvc,
		Products:       productsSvc,
		Shop:           shopSvc,
		Cart:           cartSvc,
		Orders:         ordersSvc,
		Ledger:         ledgerSvc,
		Reporting:      reportingSvc,
		Agents:         agentsSvc,
		TopUps:         topupsSvc,
	})
	if err != nil {
		return err
	}

	go hub.Run(ctx)
	dispatchDone := make(chan error, 1)
	go func() { dispatchDone <- dispatcher.Run(ctx) }()

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown", err)
		}
	}

	stop()
	if err := <-dispatchDone; err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(logCtx, "task dispatcher stopped", err)
	}
	return nil
}
