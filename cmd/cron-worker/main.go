package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thanhcle/lunaria-backend/internal/cron"
	"github.com/thanhcle/lunaria-backend/internal/inventory"
	"github.com/thanhcle/lunaria-backend/internal/notifications"
	"github.com/thanhcle/lunaria-backend/internal/orders"
	"github.com/thanhcle/lunaria-backend/internal/payments"
	"github.com/thanhcle/lunaria-backend/internal/prestige"
	"github.com/thanhcle/lunaria-backend/internal/shipping"
	"github.com/thanhcle/lunaria-backend/internal/vouchers"
	"github.com/thanhcle/lunaria-backend/pkg/config"
	"github.com/thanhcle/lunaria-backend/pkg/db"
	"github.com/thanhcle/lunaria-backend/pkg/ghtk"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
	"github.com/thanhcle/lunaria-backend/pkg/metrics"
	"github.com/thanhcle/lunaria-backend/pkg/migrate"
	"github.com/thanhcle/lunaria-backend/pkg/outbox"
	"github.com/thanhcle/lunaria-backend/pkg/redis"
	"github.com/thanhcle/lunaria-backend/pkg/vnpay"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	vnpayClient, err := vnpay.NewClient(cfg.VNPay)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}
	ghtkClient, err := ghtk.NewClient(cfg.GHTK)
	if err != nil {
		logg.Error(context.Background(), "failed to create carrier client", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	inventorySvc, err := inventory.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	prestigeSvc, err := prestige.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create prestige service", err)
		os.Exit(1)
	}
	voucherSvc, err := vouchers.NewService(vouchers.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create voucher service", err)
		os.Exit(1)
	}
	carrierGateway, err := shipping.NewGateway(ghtkClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create carrier gateway", err)
		os.Exit(1)
	}
	refunder, err := payments.NewRefunder(vnpayClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunder", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(
		ordersRepo,
		dbClient,
		outboxSvc,
		inventorySvc,
		voucherSvc,
		prestigeSvc,
		carrierGateway,
		refunder,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	voucherJob, err := cron.NewVoucherMaintenanceJob(cron.VoucherMaintenanceJobParams{
		Logger:   logg,
		Vouchers: voucherSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create voucher maintenance job", err)
		os.Exit(1)
	}
	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger: logg,
		Reader: ordersRepo,
		Orders: ordersSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(voucherJob, expiryJob, cleanupJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
