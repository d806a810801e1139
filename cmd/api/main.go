package main

import (
	"context"
	"net/http"
	"os"

	"github.com/thanhcle/lunaria-backend/api/routes"
	"github.com/thanhcle/lunaria-backend/internal/carts"
	"github.com/thanhcle/lunaria-backend/internal/customers"
	"github.com/thanhcle/lunaria-backend/internal/dashboard"
	"github.com/thanhcle/lunaria-backend/internal/guests"
	"github.com/thanhcle/lunaria-backend/internal/inventory"
	"github.com/thanhcle/lunaria-backend/internal/notifications"
	"github.com/thanhcle/lunaria-backend/internal/orders"
	"github.com/thanhcle/lunaria-backend/internal/payments"
	"github.com/thanhcle/lunaria-backend/internal/prestige"
	"github.com/thanhcle/lunaria-backend/internal/shipping"
	"github.com/thanhcle/lunaria-backend/internal/vouchers"
	"github.com/thanhcle/lunaria-backend/pkg/config"
	"github.com/thanhcle/lunaria-backend/pkg/db"
	"github.com/thanhcle/lunaria-backend/pkg/geo"
	"github.com/thanhcle/lunaria-backend/pkg/ghtk"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
	"github.com/thanhcle/lunaria-backend/pkg/migrate"
	"github.com/thanhcle/lunaria-backend/pkg/outbox"
	"github.com/thanhcle/lunaria-backend/pkg/redis"
	"github.com/thanhcle/lunaria-backend/pkg/vnpay"
	"github.com/joho/godotenv"
)

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

	paymentsSvc, err := payments.NewService(ordersSvc, vnpayClient, cfg.App.BaseURL+cfg.VNPay.ReturnPath)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}
	callbackSvc, err := shipping.NewCallbackService(ordersSvc, prestigeSvc, inventorySvc, voucherSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create carrier callback service", err)
		os.Exit(1)
	}

	cartsSvc, err := carts.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	customersSvc, err := customers.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}
	guestsSvc, err := guests.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create guest service", err)
		os.Exit(1)
	}
	dashboardSvc, err := dashboard.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create dashboard service", err)
		os.Exit(1)
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Orders:        ordersSvc,
			Carts:         cartsSvc,
			Vouchers:      voucherSvc,
			Customers:     customersSvc,
			Guests:        guestsSvc,
			Payments:      paymentsSvc,
			Shipping:      carrierGateway,
			Callbacks:     callbackSvc,
			Notifications: notificationsSvc,
			Dashboard:     dashboardSvc,
			Geo:           geo.NewClient(cfg.Geo, geo.WithLogger(logg)),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
