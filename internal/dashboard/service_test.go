package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/enums"
)

func newDashboardService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := "file:dashboard_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  customer_id TEXT,
  email TEXT NOT NULL DEFAULT '',
  receiver_name TEXT NOT NULL DEFAULT '',
  receiver_phone TEXT NOT NULL DEFAULT '',
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
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	svc, err := NewService(db)
	require.NoError(t, err)
	return svc, db
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, total, discount int64, createdAt time.Time, lines map[string]int) {
	t.Helper()
	orderID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO orders (id, code, status, total_price, discount_value, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		orderID.String(), uuid.NewString()[:10], string(status), total, discount, createdAt,
	).Error)
	for code, qty := range lines {
		require.NoError(t, db.Exec(
			`INSERT INTO order_line_items (id, order_id, display_name, product_code, unit_price, size, qty) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), orderID.String(), "Tee "+code, code, 100000, "M", qty,
		).Error)
	}
}

func TestSummarizeWindowsAndCounts(t *testing.T) {
	svc, db := newDashboardService(t)
	// Wednesday 2024-03-13.
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

	seedOrder(t, db, enums.OrderStatusDelivered, 200000, 20000, now.Add(-2*time.Hour), map[string]int{"TEE01": 2})
	// Monday of the same week, before today.
	seedOrder(t, db, enums.OrderStatusDelivered, 300000, 0, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), map[string]int{"TEE02": 1})
	// Earlier in the year, outside the week.
	seedOrder(t, db, enums.OrderStatusDelivered, 500000, 0, time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), map[string]int{"TEE01": 5})
	// Pending orders never count toward revenue.
	seedOrder(t, db, enums.OrderStatusPending, 900000, 0, now.Add(-time.Hour), map[string]int{"TEE03": 9})

	summary, err := svc.Summarize(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(180000), summary.RevenueToday)
	assert.Equal(t, int64(480000), summary.RevenueThisWeek)
	assert.Equal(t, int64(980000), summary.RevenueThisYear)

	assert.Equal(t, int64(3), summary.StatusCounts[enums.OrderStatusDelivered])
	assert.Equal(t, int64(1), summary.StatusCounts[enums.OrderStatusPending])

	assert.Equal(t, int64(8), summary.UnitsSold, "only delivered units count")

	require.NotEmpty(t, summary.TopProducts)
	assert.Equal(t, "TEE01", summary.TopProducts[0].ProductCode)
	assert.Equal(t, int64(7), summary.TopProducts[0].UnitsSold)
}

func TestSummarizeEmptyDatabase(t *testing.T) {
	svc, _ := newDashboardService(t)

	summary, err := svc.Summarize(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, summary.RevenueToday)
	assert.Zero(t, summary.UnitsSold)
	assert.Empty(t, summary.TopProducts)
	assert.Empty(t, summary.StatusCounts)
}

func TestStartOfWeek(t *testing.T) {
	wed := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), startOfWeek(wed))

	sun := time.Date(2024, 3, 17, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), startOfWeek(sun))

	mon := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, startOfWeek(mon))
}
