package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/internal/notifications"
	internalorders "github.com/thanhcle/lunaria-backend/internal/orders"
	"github.com/thanhcle/lunaria-backend/internal/payments"
	"github.com/thanhcle/lunaria-backend/internal/shipping"
	pkgAuth "github.com/thanhcle/lunaria-backend/pkg/auth"
	"github.com/thanhcle/lunaria-backend/pkg/config"
	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
	"github.com/thanhcle/lunaria-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOrders struct {
	guestOrder *models.Order
}

func (s *stubOrders) Create(context.Context, internalorders.CreateInput) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired in test")
}

func (s *stubOrders) CreateGuest(_ context.Context, input internalorders.GuestCreateInput) (*models.Order, error) {
	order := &models.Order{
		ID:            uuid.New(),
		Code:          "TEST00CODE",
		Email:         input.Email,
		ReceiverName:  input.ReceiverName,
		ReceiverPhone: input.ReceiverPhone,
		Status:        enums.OrderStatusPending,
	}
	s.guestOrder = order
	return order, nil
}

func (s *stubOrders) Post(context.Context, uuid.UUID, string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not wired in test")
}

func (s *stubOrders) CustomerCancel(context.Context, uuid.UUID, uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not wired in test")
}

func (s *stubOrders) AdminCancel(context.Context, internalorders.AdminCancelInput) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not wired in test")
}

func (s *stubOrders) ChangeAddress(context.Context, internalorders.ChangeAddressInput) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not wired in test")
}

func (s *stubOrders) RecordTransactionDate(context.Context, string, string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not wired in test")
}

func (s *stubOrders) MarkPaid(context.Context, string, string) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not wired in test")
}

func (s *stubOrders) Transition(context.Context, uuid.UUID, enums.OrderStatus, internalorders.TransitionOptions) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not wired in test")
}

func (s *stubOrders) Get(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrders) GetByCode(context.Context, string) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrders) ListForCustomer(context.Context, uuid.UUID, pagination.Params, internalorders.CustomerFilters) (*internalorders.List, error) {
	return &internalorders.List{Orders: []models.Order{}}, nil
}

func (s *stubOrders) ListAdmin(context.Context, pagination.Params, internalorders.AdminFilters) (*internalorders.List, error) {
	return &internalorders.List{Orders: []models.Order{}}, nil
}

type stubPayments struct{}

func (stubPayments) PayURL(context.Context, payments.PayURLInput) (string, error) {
	return "https://pay.example/redirect", nil
}

func (stubPayments) HandleReturn(context.Context, url.Values) (*payments.ReturnOutcome, error) {
	return &payments.ReturnOutcome{OrderCode: "TEST00CODE", Paid: true}, nil
}

type stubCallbacks struct {
	received []shipping.Callback
}

func (s *stubCallbacks) HandleCallback(_ context.Context, cb shipping.Callback) error {
	s.received = append(s.received, cb)
	return nil
}

type stubNotifications struct{}

func (stubNotifications) List(context.Context, notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []models.Notification{}}, nil
}

func (stubNotifications) MarkRead(context.Context, uuid.UUID) error { return nil }

func (stubNotifications) MarkAllRead(context.Context) (int64, error) { return 0, nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "lunaria", ExpirationMinutes: 60},
	}
}

func testRouter(t *testing.T, mutate func(*Dependencies)) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	deps := Dependencies{
		Config:        testConfig(),
		Logger:        logg,
		DB:            stubPinger{},
		Orders:        &stubOrders{},
		Payments:      stubPayments{},
		Callbacks:     &stubCallbacks{},
		Notifications: stubNotifications{},
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewRouter(deps)
}

func mintToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Username: "pipeline",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyChecksDependencies(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCustomerRoutesRequireAuth(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminRoutesRejectCustomerToken(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, func(deps *Dependencies) { deps.Config = cfg })

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCustomerRoutesRejectStaffToken(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, func(deps *Dependencies) { deps.Config = cfg })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.RoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestGuestOrderRoute(t *testing.T) {
	ordersStub := &stubOrders{}
	router := testRouter(t, func(deps *Dependencies) { deps.Orders = ordersStub })

	body := `{
		"email": "ngoc@example.com",
		"receiver_name": "Ngoc Tran",
		"receiver_phone": "0901234567",
		"address": {"line": "12 Hang Bac", "province": "Ha Noi", "district": "Hoan Kiem", "ward": "Hang Bac"},
		"method": "cod",
		"lines": [{"product_code": "HB-TEE-01", "size": "M", "qty": 1}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/orders/guest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if ordersStub.guestOrder == nil || ordersStub.guestOrder.ReceiverPhone != "0901234567" {
		t.Fatalf("guest order not created from request body")
	}
}

func TestCarrierCallbackRoute(t *testing.T) {
	callbacks := &stubCallbacks{}
	router := testRouter(t, func(deps *Dependencies) { deps.Callbacks = callbacks })

	body := `{"partner_id": "TEST00CODE", "label_id": "S1.A2.B3", "status_id": 5, "reason": "", "fee": 20000}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/orders/ghtk-callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(callbacks.received) != 1 {
		t.Fatalf("expected one callback, got %d", len(callbacks.received))
	}
	cb := callbacks.received[0]
	if cb.OrderCode != "TEST00CODE" || cb.StatusID != 5 || cb.Label != "S1.A2.B3" {
		t.Fatalf("callback fields not mapped: %+v", cb)
	}
}

func TestVNPayReturnRoute(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/public/payments/vnpay-return?vnp_TxnRef=TEST00CODE", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminNotificationsRoute(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, func(deps *Dependencies) { deps.Config = cfg })

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.RoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
