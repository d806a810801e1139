package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

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
	"github.com/thanhcle/lunaria-backend/pkg/mailer"
	"github.com/thanhcle/lunaria-backend/pkg/migrate"
	"github.com/thanhcle/lunaria-backend/pkg/outbox"
	"github.com/thanhcle/lunaria-backend/pkg/outbox/idempotency"
	"github.com/thanhcle/lunaria-backend/pkg/pubsub"
	"github.com/thanhcle/lunaria-backend/pkg/redis"
	"github.com/thanhcle/lunaria-backend/pkg/vnpay"
)

// Processed-event markers outlive any realistic redelivery window.
const idempotencyTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "notification-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
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

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

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

	ordersSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
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

	manager, err := idempotency.NewManager(redisClient, idempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	consumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		ordersSvc,
		mailer.NewClient(cfg.Mail),
		pubsubClient.DomainSubscription(),
		manager,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting notification worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notification worker shutting down gracefully")
}
