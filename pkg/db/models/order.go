package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/pkg/enums"
	"github.com/thanhcle/lunaria-backend/pkg/types"
)

// Order is the order aggregate. Line items, the address snapshot and the
// payment/shipping sub-records are captured at creation time and survive later
// edits to the referenced product or customer records. Orders are never hard
// deleted.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string                `gorm:"column:code;not null;uniqueIndex:ux_orders_code"`
	CustomerID      *uuid.UUID            `gorm:"column:customer_id;type:uuid"`
	Email           string                `gorm:"column:email;not null"`
	ReceiverName    string                `gorm:"column:receiver_name;not null"`
	ReceiverPhone   string                `gorm:"column:receiver_phone;not null"`
	DeliveryAddress types.DeliveryAddress `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	Payment         types.PaymentRecord   `gorm:"column:payment;type:jsonb;serializer:json"`
	Shipping        *types.ShippingRecord `gorm:"column:shipping;type:jsonb;serializer:json"`
	Status          enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalPrice      int64                 `gorm:"column:total_price;not null"`
	VoucherCode     *string               `gorm:"column:voucher_code"`
	DiscountValue   int64                 `gorm:"column:discount_value;not null;default:0"`
	CancelReason    *string               `gorm:"column:cancel_reason"`
	CanceledBy      *string               `gorm:"column:canceled_by"`
	PostedBy        *string               `gorm:"column:posted_by"`
	Items           []OrderLineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// PayableAmount is the amount due at payment time: total plus shipping fee
// minus any voucher discount. TotalPrice itself excludes both.
func (o Order) PayableAmount() int64 {
	amount := o.TotalPrice - o.DiscountValue
	if o.Shipping != nil {
		amount += o.Shipping.Fee
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
