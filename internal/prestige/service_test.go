package prestige

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
)

func setupPrestigeTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:prestige_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	customers := `
CREATE TABLE IF NOT EXISTS customers (
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
);`
	guests := `
CREATE TABLE IF NOT EXISTS guests (
  id TEXT PRIMARY KEY,
  phone TEXT NOT NULL UNIQUE,
  full_name TEXT,
  prestige INTEGER NOT NULL DEFAULT 100,
  total_success INTEGER NOT NULL DEFAULT 0,
  total_canceled INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(customers).Error)
	require.NoError(t, db.Exec(guests).Error)
	return db
}

func seedCustomer(t *testing.T, db *gorm.DB, prestige int) uuid.UUID {
	t.Helper()
	customer := &models.Customer{
		ID:       uuid.New(),
		Username: "buyer-" + uuid.NewString()[:8],
		Email:    "buyer@example.com",
		Prestige: prestige,
	}
	require.NoError(t, db.Create(customer).Error)
	return customer.ID
}

func customerScore(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var customer models.Customer
	require.NoError(t, db.Where("id = ?", id).First(&customer).Error)
	return customer.Prestige
}

func TestCustomerAdjustmentsClamp(t *testing.T) {
	db := setupPrestigeTestDB(t)
	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()

	id := seedCustomer(t, db, 95)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.RewardCustomer(ctx, tx, id)
	}))
	assert.Equal(t, 100, customerScore(t, db, id), "reward must cap at 100")

	low := seedCustomer(t, db, 20)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.PenalizeCustomer(ctx, tx, low)
	}))
	assert.Equal(t, 0, customerScore(t, db, low), "penalty must floor at 0")

	mid := seedCustomer(t, db, 80)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.PenalizeCustomer(ctx, tx, mid)
	}))
	assert.Equal(t, 50, customerScore(t, db, mid))
}

func TestCustomerAdjustmentUnknownID(t *testing.T) {
	db := setupPrestigeTestDB(t)
	svc, err := NewService(db)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.RewardCustomer(context.Background(), tx, uuid.New())
	})
	assert.Error(t, err)
}

func TestGuestCreatedOnFirstOutcome(t *testing.T) {
	db := setupPrestigeTestDB(t)
	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.PenalizeGuest(ctx, tx, "0912345678", "Tran Van A")
	}))

	var guest models.Guest
	require.NoError(t, db.Where("phone = ?", "0912345678").First(&guest).Error)
	assert.Equal(t, 70, guest.Prestige)
	assert.Equal(t, 1, guest.TotalCanceled)
	assert.Equal(t, 0, guest.TotalSuccess)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.RewardGuest(ctx, tx, "0912345678", "Tran Van A")
	}))
	require.NoError(t, db.Where("phone = ?", "0912345678").First(&guest).Error)
	assert.Equal(t, 80, guest.Prestige)
	assert.Equal(t, 1, guest.TotalSuccess)
}

func TestAllowCOD(t *testing.T) {
	db := setupPrestigeTestDB(t)
	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()

	trusted := seedCustomer(t, db, 50)
	blocked := seedCustomer(t, db, 49)

	assert.NoError(t, svc.AllowCOD(ctx, &trusted, ""))
	assert.Error(t, svc.AllowCOD(ctx, &blocked, ""), "score below threshold must block cash on delivery")

	require.NoError(t, db.Create(&models.Guest{ID: uuid.New(), Phone: "0900000001", Prestige: 10}).Error)
	assert.Error(t, svc.AllowCOD(ctx, nil, "0900000001"))
	assert.NoError(t, svc.AllowCOD(ctx, nil, "0999999999"), "unknown guest has no history")
	assert.Error(t, svc.AllowCOD(ctx, nil, ""))
}
