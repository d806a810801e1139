package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem is the immutable per-item snapshot within an order. Unit price
// and display fields are copied from the product at order time so historical
// orders stay stable when the catalog changes.
type OrderLineItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	DisplayName string    `gorm:"column:display_name;not null"`
	ProductCode string    `gorm:"column:product_code;not null"`
	ImageURL    string    `gorm:"column:image_url"`
	UnitPrice   int64     `gorm:"column:unit_price;not null"`
	Size        string    `gorm:"column:size;not null"`
	Qty         int       `gorm:"column:qty;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
