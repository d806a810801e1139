package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thanhcle/lunaria-backend/api/controllers"
	"github.com/thanhcle/lunaria-backend/api/middleware"
	"github.com/thanhcle/lunaria-backend/internal/carts"
	"github.com/thanhcle/lunaria-backend/internal/customers"
	"github.com/thanhcle/lunaria-backend/internal/dashboard"
	"github.com/thanhcle/lunaria-backend/internal/guests"
	"github.com/thanhcle/lunaria-backend/internal/notifications"
	"github.com/thanhcle/lunaria-backend/internal/orders"
	"github.com/thanhcle/lunaria-backend/internal/payments"
	"github.com/thanhcle/lunaria-backend/internal/shipping"
	"github.com/thanhcle/lunaria-backend/internal/vouchers"
	"github.com/thanhcle/lunaria-backend/pkg/config"
	"github.com/thanhcle/lunaria-backend/pkg/geo"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
	"github.com/thanhcle/lunaria-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Optional entries
// (geo client, shipping gateway) disable their routes when nil.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis *redis.Client

	Orders        orders.Service
	Carts         carts.Service
	Vouchers      vouchers.Service
	Customers     customers.Service
	Guests        guests.Service
	Payments      payments.Service
	Shipping      *shipping.Gateway
	Callbacks     shipping.CallbackService
	Notifications notifications.Service
	Dashboard     dashboard.Service
	Geo           *geo.Client
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	readyDeps := map[string]controllers.Pinger{
		"database": deps.DB,
	}
	if deps.Redis != nil {
		readyDeps["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	publicPolicy := middleware.NewRateLimitPolicy(
		"public",
		cfg.RateLimit.PublicWindow,
		cfg.RateLimit.PublicLimit,
	)
	publicLimit := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil {
		publicLimit = middleware.RateLimit(publicPolicy, deps.Redis, logg)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Use(publicLimit)

		r.Post("/orders/guest", controllers.CreateGuestOrder(deps.Orders, logg))
		r.Post("/orders/ghtk-callback", controllers.GHTKCallback(deps.Callbacks, logg))
		r.Post("/payments/pay-url", controllers.PaymentPayURL(deps.Payments, logg))
		r.Get("/payments/vnpay-return", controllers.VNPayReturn(deps.Payments, logg))
		if deps.Shipping != nil {
			r.Post("/shipping-fee", controllers.ShippingFee(deps.Shipping, logg))
		}
		if deps.Geo != nil {
			r.Get("/geo/provinces", controllers.GeoProvinces(deps.Geo, logg))
			r.Get("/geo/districts", controllers.GeoDistricts(deps.Geo, logg))
			r.Get("/geo/wards", controllers.GeoWards(deps.Geo, logg))
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireCustomer(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, deps.Customers, logg))
			r.Get("/", controllers.ListMyOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetMyOrder(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelMyOrder(deps.Orders, logg))
			r.Put("/{orderId}/address", controllers.ChangeOrderAddress(deps.Orders, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Carts, logg))
			r.Post("/items", controllers.AddCartItem(deps.Carts, logg))
			r.Put("/items/{itemId}", controllers.UpdateCartItem(deps.Carts, logg))
			r.Delete("/items/{itemId}", controllers.RemoveCartItem(deps.Carts, logg))
			r.Delete("/", controllers.ClearCart(deps.Carts, logg))
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Post("/claim", controllers.ClaimVoucher(deps.Vouchers, logg))
			r.Post("/claim-all", controllers.ClaimAllVouchers(deps.Vouchers, logg))
			r.Get("/wallet", controllers.VoucherWallet(deps.Vouchers, logg))
			r.Get("/recommend", controllers.RecommendVouchers(deps.Vouchers, logg))
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.Profile(deps.Customers, logg))
			r.Put("/", controllers.UpdateProfile(deps.Customers, logg))
			r.Post("/addresses", controllers.AddAddress(deps.Customers, logg))
			r.Put("/addresses/{addressId}", controllers.UpdateAddress(deps.Customers, logg))
			r.Delete("/addresses/{addressId}", controllers.RemoveAddress(deps.Customers, logg))
		})

		r.Post("/payments/pay-url", controllers.PaymentPayURL(deps.Payments, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireStaff(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.AdminGetOrder(deps.Orders, logg))
			r.Post("/{orderId}/post", controllers.AdminPostOrder(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.AdminCancelOrder(deps.Orders, logg))
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateVoucher(deps.Vouchers, logg))
			r.Get("/", controllers.AdminListVouchers(deps.Vouchers, logg))
			r.Get("/{voucherId}", controllers.AdminGetVoucher(deps.Vouchers, logg))
			r.Put("/{voucherId}", controllers.AdminUpdateVoucher(deps.Vouchers, logg))
			r.Delete("/{voucherId}", controllers.AdminDeleteVoucher(deps.Vouchers, logg))
			r.Post("/{voucherId}/approve", controllers.AdminApproveVoucher(deps.Vouchers, logg))
			r.Post("/{voucherId}/release", controllers.AdminReleaseVoucher(deps.Vouchers, logg))
		})

		r.Get("/guests", controllers.AdminListGuests(deps.Guests, logg))
		r.Get("/dashboard", controllers.DashboardSummary(deps.Dashboard, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
