package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the slice of the catalog the order flow needs: identity, display
// snapshot fields and the hidden flag that blocks new stock checks.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string          `gorm:"column:code;not null;uniqueIndex:ux_products_code"`
	DisplayName string          `gorm:"column:display_name;not null"`
	ImageURL    string          `gorm:"column:image_url"`
	UnitPrice   int64           `gorm:"column:unit_price;not null"`
	Hidden      bool            `gorm:"column:hidden;not null;default:false"`
	Inventory   []InventoryItem `gorm:"foreignKey:ProductCode;references:Code;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// InventoryItem is the on-hand counter for one (product, size) variant.
// OnHand is adjusted only through conditional updates that keep it
// non-negative.
type InventoryItem struct {
	ProductCode string    `gorm:"column:product_code;primaryKey"`
	Size        string    `gorm:"column:size;primaryKey"`
	OnHand      int       `gorm:"column:on_hand;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
