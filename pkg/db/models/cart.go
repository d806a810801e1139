package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds a registered customer's pending items. Items matching a new
// order's lines are removed when the order is created.
type Cart struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_carts_customer"`
	TotalPrice int64      `gorm:"column:total_price;not null;default:0"`
	Items      []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is one (product, size) line in a cart.
type CartItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID      uuid.UUID `gorm:"column:cart_id;type:uuid;not null"`
	ProductCode string    `gorm:"column:product_code;not null"`
	Size        string    `gorm:"column:size;not null"`
	Qty         int       `gorm:"column:qty;not null"`
	UnitPrice   int64     `gorm:"column:unit_price;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
