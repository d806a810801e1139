package inventory

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

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:inventory_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  image_url TEXT,
  unit_price INTEGER NOT NULL,
  hidden INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	inventoryItems := `
CREATE TABLE IF NOT EXISTS inventory_items (
  product_code TEXT NOT NULL,
  size TEXT NOT NULL,
  on_hand INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  PRIMARY KEY (product_code, size)
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(inventoryItems).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, code string, hidden bool, stock map[string]int) {
	t.Helper()

	product := &models.Product{
		ID:          uuid.New(),
		Code:        code,
		DisplayName: "Basic Tee " + code,
		UnitPrice:   120000,
		Hidden:      hidden,
	}
	require.NoError(t, db.Create(product).Error)
	for size, onHand := range stock {
		require.NoError(t, db.Create(&models.InventoryItem{
			ProductCode: code,
			Size:        size,
			OnHand:      onHand,
		}).Error)
	}
}

func onHand(t *testing.T, db *gorm.DB, code, size string) int {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, db.Where("product_code = ? AND size = ?", code, size).First(&item).Error)
	return item.OnHand
}

func TestCheckAvailability(t *testing.T) {
	db := setupInventoryTestDB(t)
	seedProduct(t, db, "TEE01", false, map[string]int{"M": 5, "L": 0})
	seedProduct(t, db, "TEE02", true, map[string]int{"M": 5})

	svc, err := NewService(db)
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, svc.CheckAvailability(ctx, []Line{{ProductCode: "TEE01", Size: "M", Qty: 5}}))
	assert.Error(t, svc.CheckAvailability(ctx, []Line{{ProductCode: "TEE01", Size: "M", Qty: 6}}))
	assert.Error(t, svc.CheckAvailability(ctx, []Line{{ProductCode: "TEE01", Size: "L", Qty: 1}}))
	assert.Error(t, svc.CheckAvailability(ctx, []Line{{ProductCode: "TEE01", Size: "XL", Qty: 1}}))
	assert.Error(t, svc.CheckAvailability(ctx, []Line{{ProductCode: "TEE02", Size: "M", Qty: 1}}), "hidden product must not pass")
	assert.Error(t, svc.CheckAvailability(ctx, []Line{{ProductCode: "NOPE", Size: "M", Qty: 1}}))
	assert.Error(t, svc.CheckAvailability(ctx, nil))
}

func TestDecrementIsConditional(t *testing.T) {
	db := setupInventoryTestDB(t)
	seedProduct(t, db, "TEE01", false, map[string]int{"M": 3})

	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Decrement(ctx, tx, []Line{{ProductCode: "TEE01", Size: "M", Qty: 2}})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, onHand(t, db, "TEE01", "M"))

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Decrement(ctx, tx, []Line{{ProductCode: "TEE01", Size: "M", Qty: 2}})
	})
	assert.Error(t, err, "decrement below zero must be refused")
	assert.Equal(t, 1, onHand(t, db, "TEE01", "M"))
}

func TestDecrementRollsBackAllLines(t *testing.T) {
	db := setupInventoryTestDB(t)
	seedProduct(t, db, "TEE01", false, map[string]int{"M": 5})
	seedProduct(t, db, "TEE03", false, map[string]int{"S": 1})

	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Decrement(ctx, tx, []Line{
			{ProductCode: "TEE01", Size: "M", Qty: 2},
			{ProductCode: "TEE03", Size: "S", Qty: 3},
		})
	})
	require.Error(t, err)

	assert.Equal(t, 5, onHand(t, db, "TEE01", "M"), "first line must roll back with the failed second line")
	assert.Equal(t, 1, onHand(t, db, "TEE03", "S"))
}

func TestRestore(t *testing.T) {
	db := setupInventoryTestDB(t)
	seedProduct(t, db, "TEE01", false, map[string]int{"M": 1})

	svc, err := NewService(db)
	require.NoError(t, err)
	ctx := context.Background()

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Restore(ctx, tx, []Line{
			{ProductCode: "TEE01", Size: "M", Qty: 2},
			{ProductCode: "GONE", Size: "M", Qty: 1},
		})
	})
	require.NoError(t, err, "restoring a pruned variant is not an error")
	assert.Equal(t, 3, onHand(t, db, "TEE01", "M"))
}

func TestLinesFromOrderItems(t *testing.T) {
	items := []models.OrderLineItem{
		{ProductCode: "TEE01", Size: "M", Qty: 2},
		{ProductCode: "TEE03", Size: "S", Qty: 1},
	}
	lines := LinesFromOrderItems(items)
	require.Len(t, lines, 2)
	assert.Equal(t, Line{ProductCode: "TEE01", Size: "M", Qty: 2}, lines[0])
}
