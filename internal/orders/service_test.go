package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/internal/inventory"
	"github.com/thanhcle/lunaria-backend/internal/prestige"
	"github.com/thanhcle/lunaria-backend/internal/vouchers"
	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	"github.com/thanhcle/lunaria-backend/pkg/outbox"
	"github.com/thanhcle/lunaria-backend/pkg/pagination"
	"github.com/thanhcle/lunaria-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  customer_id TEXT,
  email TEXT NOT NULL,
  receiver_name TEXT NOT NULL,
  receiver_phone TEXT NOT NULL,
  delivery_address TEXT,
  payment TEXT,
  shipping TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  total_price INTEGER NOT NULL,
  voucher_code TEXT,
  discount_value INTEGER NOT NULL DEFAULT 0,
  cancel_reason TEXT,
  canceled_by TEXT,
  posted_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  display_name TEXT NOT NULL,
  product_code TEXT NOT NULL,
  image_url TEXT,
  unit_price INTEGER NOT NULL,
  size TEXT NOT NULL,
  qty INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  image_url TEXT,
  unit_price INTEGER NOT NULL,
  hidden INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
  product_code TEXT NOT NULL,
  size TEXT NOT NULL,
  on_hand INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  PRIMARY KEY (product_code, size)
);`,
		`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  first_name TEXT,
  last_name TEXT,
  phone TEXT,
  prestige INTEGER NOT NULL DEFAULT 100,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS guests (
  id TEXT PRIMARY KEY,
  phone TEXT NOT NULL UNIQUE,
  full_name TEXT,
  prestige INTEGER NOT NULL DEFAULT 100,
  total_success INTEGER NOT NULL DEFAULT 0,
  total_canceled INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS vouchers (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  description TEXT,
  discount_rate NUMERIC NOT NULL,
  min_order_price INTEGER NOT NULL DEFAULT 0,
  max_discount_value INTEGER NOT NULL,
  quantity INTEGER,
  type TEXT NOT NULL DEFAULT 'limited',
  status TEXT NOT NULL DEFAULT 'pending',
  released INTEGER NOT NULL DEFAULT 0,
  start_at DATETIME NOT NULL,
  expire_at DATETIME NOT NULL,
  created_by TEXT NOT NULL,
  approved_by TEXT,
  edited_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS wallet_entries (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  voucher_id TEXT NOT NULL,
  used INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (customer_id, voucher_id)
);`,
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL UNIQUE,
  total_price INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_code TEXT NOT NULL,
  size TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) last(t *testing.T) outbox.DomainEvent {
	t.Helper()
	require.NotEmpty(t, s.events)
	return s.events[len(s.events)-1]
}

type stubCarrier struct {
	fee         int64
	label       string
	dispatchErr error
	cancelErr   error
	dispatched  []string
	cancelled   []string
}

func (s *stubCarrier) QuoteFee(ctx context.Context, order models.Order, express bool) (int64, error) {
	return s.fee, nil
}

func (s *stubCarrier) Dispatch(ctx context.Context, order models.Order) (string, error) {
	if s.dispatchErr != nil {
		return "", s.dispatchErr
	}
	s.dispatched = append(s.dispatched, order.Code)
	return s.label, nil
}

func (s *stubCarrier) CancelShipment(ctx context.Context, shippingID string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, shippingID)
	return nil
}

type stubRefunder struct {
	refunded []string
	err      error
}

func (s *stubRefunder) Refund(ctx context.Context, order models.Order, createBy string) error {
	if s.err != nil {
		return s.err
	}
	s.refunded = append(s.refunded, order.Code)
	return nil
}

type orderFixture struct {
	db       *gorm.DB
	svc      Service
	vouchers vouchers.Service
	outbox   *stubOutbox
	carrier  *stubCarrier
	refunder *stubRefunder
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := setupOrdersTestDB(t)
	ob := &stubOutbox{}
	carrier := &stubCarrier{fee: 30000, label: "S1.A1.100"}
	refunder := &stubRefunder{}

	stock, err := inventory.NewService(db)
	require.NoError(t, err)
	voucherSvc, err := vouchers.NewService(vouchers.NewRepository(db), gormTxRunner{db: db}, ob)
	require.NoError(t, err)
	prestigeSvc, err := prestige.NewService(db)
	require.NoError(t, err)

	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, ob, stock, voucherSvc, prestigeSvc, carrier, refunder)
	require.NoError(t, err)

	return &orderFixture{db: db, svc: svc, vouchers: voucherSvc, outbox: ob, carrier: carrier, refunder: refunder}
}

func (f *orderFixture) seedProduct(t *testing.T, code string, unitPrice int64, stock map[string]int) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Product{
		ID:          uuid.New(),
		Code:        code,
		DisplayName: "Tee " + code,
		ImageURL:    "https://img.test/" + code + ".jpg",
		UnitPrice:   unitPrice,
	}).Error)
	for size, onHand := range stock {
		require.NoError(t, f.db.Create(&models.InventoryItem{ProductCode: code, Size: size, OnHand: onHand}).Error)
	}
}

func (f *orderFixture) seedCustomer(t *testing.T, prestigeScore int) uuid.UUID {
	t.Helper()
	customer := &models.Customer{
		ID:       uuid.New(),
		Username: "buyer-" + uuid.NewString()[:8],
		Email:    "buyer@example.com",
		Prestige: prestigeScore,
	}
	require.NoError(t, f.db.Create(customer).Error)
	return customer.ID
}

func (f *orderFixture) onHand(t *testing.T, code, size string) int {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, f.db.Where("product_code = ? AND size = ?", code, size).First(&item).Error)
	return item.OnHand
}

func testAddress() types.DeliveryAddress {
	return types.DeliveryAddress{
		Line:     "45 Le Loi",
		Province: "Đà Nẵng",
		District: "Quận Hải Châu",
		Ward:     "Phường Thạch Thang",
	}
}

func baseCreateInput(customerID uuid.UUID) CreateInput {
	return CreateInput{
		CustomerID:    customerID,
		Email:         "buyer@example.com",
		ReceiverName:  "Tran Van A",
		ReceiverPhone: "0912345678",
		Address:       testAddress(),
		Method:        enums.PaymentMethodCOD,
		Lines:         []LineInput{{ProductCode: "TEE01", Size: "M", Qty: 2}},
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)

	order, err := f.svc.Create(context.Background(), baseCreateInput(customerID))
	require.NoError(t, err)

	assert.Len(t, order.Code, 10)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, int64(240000), order.TotalPrice)
	require.NotNil(t, order.Shipping)
	assert.Equal(t, int64(30000), order.Shipping.Fee)
	assert.Equal(t, int64(270000), order.PayableAmount())
	assert.Equal(t, 5, f.onHand(t, "TEE01", "M"), "stock is untouched until the order is posted")

	var persisted models.Order
	require.NoError(t, f.db.Preload("Items").Where("id = ?", order.ID).First(&persisted).Error)
	require.Len(t, persisted.Items, 1)
	assert.Equal(t, "Tee TEE01", persisted.Items[0].DisplayName)
	assert.Equal(t, int64(120000), persisted.Items[0].UnitPrice)

	event := f.outbox.last(t)
	assert.Equal(t, enums.EventOrderCreated, event.EventType)
}

func TestCreateOrderWithVoucher(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	qty := 5
	require.NoError(t, f.db.Create(&models.Voucher{
		ID:               uuid.New(),
		Code:             "SALE10",
		Title:            "Ten percent",
		DiscountRate:     decimal.NewFromFloat(0.10),
		MinOrderPrice:    100000,
		MaxDiscountValue: 50000,
		Quantity:         &qty,
		Type:             enums.VoucherTypeLimited,
		Status:           enums.VoucherStatusAvailable,
		Released:         true,
		StartAt:          time.Now().Add(-time.Hour),
		ExpireAt:         time.Now().Add(24 * time.Hour),
		CreatedBy:        "staff01",
	}).Error)
	require.NoError(t, f.vouchers.Claim(ctx, customerID, "SALE10"))

	input := baseCreateInput(customerID)
	voucherCode := "SALE10"
	input.VoucherCode = &voucherCode

	order, err := f.svc.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, int64(24000), order.DiscountValue, "10% of 240000")
	assert.Equal(t, int64(240000-24000+30000), order.PayableAmount())

	var entry models.WalletEntry
	require.NoError(t, f.db.Where("customer_id = ?", customerID).First(&entry).Error)
	assert.True(t, entry.Used, "voucher must be reserved by the order")
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 1})
	customerID := f.seedCustomer(t, 100)

	_, err := f.svc.Create(context.Background(), baseCreateInput(customerID))
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 1, f.onHand(t, "TEE01", "M"))
}

func TestCreateOrderCODGate(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	blocked := f.seedCustomer(t, 40)

	_, err := f.svc.Create(context.Background(), baseCreateInput(blocked))
	require.Error(t, err, "score below 50 must block cash on delivery")

	input := baseCreateInput(blocked)
	input.Method = enums.PaymentMethodVNPay
	_, err = f.svc.Create(context.Background(), input)
	assert.NoError(t, err, "prepaid order is allowed regardless of score")
}

func TestCreateOrderClearsCart(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	f.seedProduct(t, "TEE02", 90000, map[string]int{"S": 5})
	customerID := f.seedCustomer(t, 100)

	cart := &models.Cart{ID: uuid.New(), CustomerID: customerID, TotalPrice: 330000}
	require.NoError(t, f.db.Create(cart).Error)
	require.NoError(t, f.db.Create(&models.CartItem{ID: uuid.New(), CartID: cart.ID, ProductCode: "TEE01", Size: "M", Qty: 2, UnitPrice: 120000}).Error)
	require.NoError(t, f.db.Create(&models.CartItem{ID: uuid.New(), CartID: cart.ID, ProductCode: "TEE02", Size: "S", Qty: 1, UnitPrice: 90000}).Error)

	_, err := f.svc.Create(context.Background(), baseCreateInput(customerID))
	require.NoError(t, err)

	var remaining []models.CartItem
	require.NoError(t, f.db.Where("cart_id = ?", cart.ID).Find(&remaining).Error)
	require.Len(t, remaining, 1, "only the ordered line is removed")
	assert.Equal(t, "TEE02", remaining[0].ProductCode)

	var reloaded models.Cart
	require.NoError(t, f.db.Where("id = ?", cart.ID).First(&reloaded).Error)
	assert.Equal(t, int64(90000), reloaded.TotalPrice)
}

func TestCreateGuestOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})

	order, err := f.svc.CreateGuest(context.Background(), GuestCreateInput{
		Email:         "guest@example.com",
		ReceiverName:  "Tran Van B",
		ReceiverPhone: "0987654321",
		Address:       testAddress(),
		Method:        enums.PaymentMethodCOD,
		Lines:         []LineInput{{ProductCode: "TEE01", Size: "M", Qty: 1}},
	})
	require.NoError(t, err)
	assert.Nil(t, order.CustomerID)
	assert.Equal(t, 5, f.onHand(t, "TEE01", "M"))
}

func TestGuestCODGateUsesHistory(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	require.NoError(t, f.db.Create(&models.Guest{ID: uuid.New(), Phone: "0987654321", Prestige: 10}).Error)

	_, err := f.svc.CreateGuest(context.Background(), GuestCreateInput{
		Email:         "guest@example.com",
		ReceiverName:  "Tran Van B",
		ReceiverPhone: "0987654321",
		Address:       testAddress(),
		Method:        enums.PaymentMethodCOD,
		Lines:         []LineInput{{ProductCode: "TEE01", Size: "M", Qty: 1}},
	})
	require.Error(t, err)
}

func TestPostOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)

	require.NoError(t, f.svc.Post(ctx, order.ID, "staff01"))
	assert.Equal(t, 3, f.onHand(t, "TEE01", "M"), "posting decrements stock")

	posted, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, posted.Status)
	require.NotNil(t, posted.Shipping)
	assert.Equal(t, "S1.A1.100", posted.Shipping.ShippingID)
	require.NotNil(t, posted.PostedBy)
	assert.Equal(t, "staff01", *posted.PostedBy)

	require.Error(t, f.svc.Post(ctx, order.ID, "staff01"), "posting twice rejected")
}

func TestPostUnpaidGatewayOrderRefused(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	input := baseCreateInput(customerID)
	input.Method = enums.PaymentMethodVNPay
	order, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	require.Error(t, f.svc.Post(ctx, order.ID, "staff01"))
	assert.Empty(t, f.carrier.dispatched)

	_, err = f.svc.MarkPaid(ctx, order.Code, "20240315103000")
	require.NoError(t, err)
	assert.NoError(t, f.svc.Post(ctx, order.ID, "staff01"))
}

func TestPostInsufficientStockWithdrawsShipment(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 3})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	first := baseCreateInput(customerID)
	second := baseCreateInput(customerID)
	orderA, err := f.svc.Create(ctx, first)
	require.NoError(t, err)
	orderB, err := f.svc.Create(ctx, second)
	require.NoError(t, err)

	require.NoError(t, f.svc.Post(ctx, orderA.ID, "staff01"))
	assert.Equal(t, 1, f.onHand(t, "TEE01", "M"))

	require.Error(t, f.svc.Post(ctx, orderB.ID, "staff01"), "one unit left cannot cover two")
	assert.Equal(t, []string{"S1.A1.100"}, f.carrier.cancelled, "shipment withdrawn after the failed commit")
	assert.Equal(t, 1, f.onHand(t, "TEE01", "M"))

	current, err := f.svc.Get(ctx, orderB.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, current.Status)
}

func TestCustomerCancel(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	stranger := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)

	require.Error(t, f.svc.CustomerCancel(ctx, order.ID, stranger), "foreign order is forbidden")

	require.NoError(t, f.svc.CustomerCancel(ctx, order.ID, customerID))
	cancelled, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CanceledBy)
	assert.Equal(t, "customer", *cancelled.CanceledBy)
	assert.Empty(t, f.refunder.refunded, "cash order has nothing to refund")

	require.Error(t, f.svc.CustomerCancel(ctx, order.ID, customerID), "cancelled is terminal")
}

func TestCustomerCancelPaidOrderRefunds(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	input := baseCreateInput(customerID)
	input.Method = enums.PaymentMethodVNPay
	order, err := f.svc.Create(ctx, input)
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, order.Code, "20240315103000")
	require.NoError(t, err)

	require.NoError(t, f.svc.CustomerCancel(ctx, order.ID, customerID))
	assert.Equal(t, []string{order.Code}, f.refunder.refunded)

	cancelled, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Payment.Refunded)

	eventTypes := make([]enums.OutboxEventType, 0, len(f.outbox.events))
	for _, event := range f.outbox.events {
		eventTypes = append(eventTypes, event.EventType)
	}
	assert.Contains(t, eventTypes, enums.EventPaymentRefunded)
}

func TestCustomerCancelRefundFailureKeepsOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	input := baseCreateInput(customerID)
	input.Method = enums.PaymentMethodVNPay
	order, err := f.svc.Create(ctx, input)
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, order.Code, "20240315103000")
	require.NoError(t, err)

	f.refunder.err = errors.New("gateway down")
	require.Error(t, f.svc.CustomerCancel(ctx, order.ID, customerID))

	current, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, current.Status, "cancel must not commit when refund fails")
}

func TestAdminCancelProcessingShopReason(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	qty := 5
	require.NoError(t, f.db.Create(&models.Voucher{
		ID:               uuid.New(),
		Code:             "SALE10",
		Title:            "Ten percent",
		DiscountRate:     decimal.NewFromFloat(0.10),
		MaxDiscountValue: 50000,
		Quantity:         &qty,
		Type:             enums.VoucherTypeLimited,
		Status:           enums.VoucherStatusAvailable,
		Released:         true,
		StartAt:          time.Now().Add(-time.Hour),
		ExpireAt:         time.Now().Add(24 * time.Hour),
		CreatedBy:        "staff01",
	}).Error)
	require.NoError(t, f.vouchers.Claim(ctx, customerID, "SALE10"))

	input := baseCreateInput(customerID)
	voucherCode := "SALE10"
	input.VoucherCode = &voucherCode
	order, err := f.svc.Create(ctx, input)
	require.NoError(t, err)
	require.NoError(t, f.svc.Post(ctx, order.ID, "staff01"))

	require.NoError(t, f.svc.AdminCancel(ctx, AdminCancelInput{
		OrderID:    order.ID,
		Reason:     enums.CancelReasonOutOfStock,
		CanceledBy: "staff01",
	}))

	assert.Equal(t, []string{"S1.A1.100"}, f.carrier.cancelled, "carrier shipment withdrawn first")
	assert.Equal(t, 5, f.onHand(t, "TEE01", "M"))

	var entry models.WalletEntry
	require.NoError(t, f.db.Where("customer_id = ?", customerID).First(&entry).Error)
	assert.False(t, entry.Used, "shop-fault cancel returns the voucher")
}

func TestAdminCancelCustomerFaultKeepsVoucher(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	qty := 5
	require.NoError(t, f.db.Create(&models.Voucher{
		ID:               uuid.New(),
		Code:             "SALE10",
		Title:            "Ten percent",
		DiscountRate:     decimal.NewFromFloat(0.10),
		MaxDiscountValue: 50000,
		Quantity:         &qty,
		Type:             enums.VoucherTypeLimited,
		Status:           enums.VoucherStatusAvailable,
		Released:         true,
		StartAt:          time.Now().Add(-time.Hour),
		ExpireAt:         time.Now().Add(24 * time.Hour),
		CreatedBy:        "staff01",
	}).Error)
	require.NoError(t, f.vouchers.Claim(ctx, customerID, "SALE10"))

	input := baseCreateInput(customerID)
	voucherCode := "SALE10"
	input.VoucherCode = &voucherCode
	order, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	require.NoError(t, f.svc.AdminCancel(ctx, AdminCancelInput{
		OrderID:    order.ID,
		Reason:     enums.CancelReasonUnreachable,
		CanceledBy: "staff01",
	}))

	var entry models.WalletEntry
	require.NoError(t, f.db.Where("customer_id = ?", customerID).First(&entry).Error)
	assert.True(t, entry.Used, "customer-fault cancel keeps the voucher consumed")
}

func TestAdminCancelDeliveringOrderRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)
	require.NoError(t, f.svc.Post(ctx, order.ID, "staff01"))
	require.NoError(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusDelivering, TransitionOptions{}))
	assert.Equal(t, 3, f.onHand(t, "TEE01", "M"))

	require.NoError(t, f.svc.AdminCancel(ctx, AdminCancelInput{
		OrderID:    order.ID,
		Reason:     enums.CancelReasonOutOfStock,
		CanceledBy: "staff01",
	}))

	assert.Equal(t, []string{"S1.A1.100"}, f.carrier.cancelled)
	assert.Equal(t, 5, f.onHand(t, "TEE01", "M"), "everything past pending restores stock")

	cancelled, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
}

func TestAdminCancelDeliveredOrderRefused(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)
	require.NoError(t, f.svc.Post(ctx, order.ID, "staff01"))
	require.NoError(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusDelivering, TransitionOptions{}))
	require.NoError(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusDelivered, TransitionOptions{}))

	require.Error(t, f.svc.AdminCancel(ctx, AdminCancelInput{
		OrderID:    order.ID,
		Reason:     enums.CancelReasonOutOfStock,
		CanceledBy: "staff01",
	}), "a delivered order is terminal")
}

func TestChangeAddressOnlyOnce(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)

	newAddr := types.DeliveryAddress{Line: "1 Tran Phu", Province: "Hà Nội", District: "Quận Ba Đình", Ward: "Phường Điện Biên"}
	require.NoError(t, f.svc.ChangeAddress(ctx, ChangeAddressInput{OrderID: order.ID, CustomerID: customerID, Address: newAddr}))

	updated, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 Tran Phu", updated.DeliveryAddress.Line)
	assert.True(t, updated.DeliveryAddress.Edited)

	err = f.svc.ChangeAddress(ctx, ChangeAddressInput{OrderID: order.ID, CustomerID: customerID, Address: testAddress()})
	require.Error(t, err, "second edit must be refused")
}

func TestChangeAddressRequotesShippingFee(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)
	require.NotNil(t, order.Shipping)
	require.Equal(t, int64(30000), order.Shipping.Fee)

	f.carrier.fee = 45000
	newAddr := types.DeliveryAddress{Line: "1 Tran Phu", Province: "Hà Nội", District: "Quận Ba Đình", Ward: "Phường Điện Biên"}
	require.NoError(t, f.svc.ChangeAddress(ctx, ChangeAddressInput{OrderID: order.ID, CustomerID: customerID, Address: newAddr}))

	updated, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Shipping)
	assert.Equal(t, int64(45000), updated.Shipping.Fee, "fee follows the new address")
	assert.Equal(t, int64(240000+45000), updated.PayableAmount())
}

func TestMarkPaidIdempotent(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	input := baseCreateInput(customerID)
	input.Method = enums.PaymentMethodVNPay
	order, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordTransactionDate(ctx, order.Code, "20240315102500"))

	before := len(f.outbox.events)
	_, err = f.svc.MarkPaid(ctx, order.Code, "20240315103000")
	require.NoError(t, err)
	assert.Len(t, f.outbox.events, before+1)

	_, err = f.svc.MarkPaid(ctx, order.Code, "20240315103000")
	require.NoError(t, err)
	assert.Len(t, f.outbox.events, before+1, "second settle must not emit again")

	paid, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, paid.Payment.Paid)
	assert.Equal(t, "20240315102500", paid.Payment.TransactionDate,
		"settlement must not overwrite the creation timestamp")
	assert.Equal(t, "20240315103000", paid.Payment.PayDate)

	require.Error(t, f.svc.RecordTransactionDate(ctx, order.Code, "20240316090000"),
		"a settled order keeps its transaction date")
}

func TestTransitionEdges(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)
	require.NoError(t, f.svc.Post(ctx, order.ID, "staff01"))

	require.Error(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusDelivered, TransitionOptions{}),
		"processing cannot jump straight to delivered")

	require.NoError(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusDelivering, TransitionOptions{}))
	require.NoError(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusDelivered, TransitionOptions{}))

	require.Error(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusReturning, TransitionOptions{}),
		"delivered is terminal")

	event := f.outbox.last(t)
	assert.Equal(t, enums.EventOrderTransition, event.EventType)
}

func TestTransitionReturnFlow(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)
	require.NoError(t, f.svc.Post(ctx, order.ID, "staff01"))

	require.NoError(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusDeliveryFailed, TransitionOptions{}),
		"a handover can fail before the delivering leg")
	require.NoError(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusReturning, TransitionOptions{}))
	require.NoError(t, f.svc.Transition(ctx, order.ID, enums.OrderStatusReturned, TransitionOptions{}))

	current, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturned, current.Status)
}

func TestTransitionCompensationFailureRollsBack(t *testing.T) {
	f := newOrderFixture(t)
	f.seedProduct(t, "TEE01", 120000, map[string]int{"M": 5})
	customerID := f.seedCustomer(t, 100)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, baseCreateInput(customerID))
	require.NoError(t, err)
	require.NoError(t, f.svc.Post(ctx, order.ID, "staff01"))

	boom := errors.New("compensation failed")
	err = f.svc.Transition(ctx, order.ID, enums.OrderStatusDelivering, TransitionOptions{
		InTx: func(tx *gorm.DB, order *models.Order) error { return boom },
	})
	require.ErrorIs(t, err, boom)

	current, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, current.Status)
}

func TestAdminListFiltersMethodBeforePaging(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	seed := func(code string, method enums.PaymentMethod) {
		require.NoError(t, f.db.Create(&models.Order{
			ID:            uuid.New(),
			Code:          code,
			Email:         "buyer@example.com",
			ReceiverName:  "Tran Van A",
			ReceiverPhone: "0912345678",
			Payment:       types.PaymentRecord{Method: method},
			Status:        enums.OrderStatusPending,
			TotalPrice:    120000,
		}).Error)
	}
	seed("AAAA000001", enums.PaymentMethodVNPay)
	seed("AAAA000002", enums.PaymentMethodCOD)
	seed("AAAA000003", enums.PaymentMethodCOD)
	seed("AAAA000004", enums.PaymentMethodVNPay)
	seed("AAAA000005", enums.PaymentMethodCOD)

	method := enums.PaymentMethodCOD
	list, err := f.svc.ListAdmin(ctx, pagination.Params{Page: 1, Size: 2}, AdminFilters{Method: &method})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total, "total counts only matching orders")
	assert.Equal(t, 2, list.Pages)
	require.Len(t, list.Orders, 2, "a full page of matches")
	for _, order := range list.Orders {
		assert.Equal(t, enums.PaymentMethodCOD, order.Payment.Method)
	}

	second, err := f.svc.ListAdmin(ctx, pagination.Params{Page: 2, Size: 2}, AdminFilters{Method: &method})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, enums.PaymentMethodCOD, second.Orders[0].Payment.Method)
}

func TestGenerateCodeShape(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 10)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 95, "codes must be effectively unique")
}
