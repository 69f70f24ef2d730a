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

	"github.com/angelmondragon/bundlehub-backend/internal/cron"
	"github.com/angelmondragon/bundlehub-backend/internal/ledger"
	"github.com/angelmondragon/bundlehub-backend/internal/tasks"
	"github.com/angelmondragon/bundlehub-backend/internal/users"
	"github.com/angelmondragon/bundlehub-backend/pkg/config"
	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	"github.com/angelmondragon/bundlehub-backend/pkg/metrics"
	"github.com/angelmondragon/bundlehub-backend/pkg/migrate"
	"github.com/angelmondragon/bundlehub-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": cfg.Service.Kind})

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

	conn := dbClient.DB()
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), users.NewRepository(conn), metrics.NewLedgerMetrics(registry), logg)
	if err != nil {
		return err
	}
	auditJob, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{Logger: logg, Verifier: ledgerSvc})
	if err != nil {
		return err
	}
	stuckJob, err := cron.NewStuckTaskJob(cron.StuckTaskJobParams{
		Logger:     logg,
		Repository: tasks.NewRepository(conn),
		ClaimTTL:   cfg.Reconciler.TaskClaimTTL,
	})
	if err != nil {
		return err
	}
	jobs := cron.NewRegistry(stuckJob)
	jobs.RegisterEvery(auditJob, cfg.Cron.LedgerAuditEvery)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(registry),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.LockTTL * 4 / 5,
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting cron worker")
	err = service.Run(ctx)
	logg.Info(ctx, "cron worker shutting down")
	return err
}
