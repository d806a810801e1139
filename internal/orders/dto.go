package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	"github.com/thanhcle/lunaria-backend/pkg/types"
)

// LineInput is one requested (product, size, qty) line on a new order.
type LineInput struct {
	ProductCode string
	Size        string
	Qty         int
}

// CreateInput carries a registered customer's new order.
type CreateInput struct {
	CustomerID    uuid.UUID
	Email         string
	ReceiverName  string
	ReceiverPhone string
	Address       types.DeliveryAddress
	Method        enums.PaymentMethod
	VoucherCode   *string
	Express       bool
	Lines         []LineInput
}

// GuestCreateInput carries an unregistered buyer's new order. Guests cannot
// apply vouchers.
type GuestCreateInput struct {
	Email         string
	ReceiverName  string
	ReceiverPhone string
	Address       types.DeliveryAddress
	Method        enums.PaymentMethod
	Express       bool
	Lines         []LineInput
}

// AdminCancelInput carries a staff cancellation.
type AdminCancelInput struct {
	OrderID    uuid.UUID
	Reason     string
	CanceledBy string
}

// ChangeAddressInput carries the one-shot delivery address edit.
type ChangeAddressInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Address    types.DeliveryAddress
}

// CustomerFilters describe the inputs supported by the customer order list.
type CustomerFilters struct {
	Status *enums.OrderStatus
}

// AdminFilters describe the inputs supported by the admin order list.
type AdminFilters struct {
	Status   *enums.OrderStatus
	Method   *enums.PaymentMethod
	DateFrom *time.Time
	DateTo   *time.Time
	Query    string
	// SortPrice switches the page order from recency to total price.
	// Accepted values are "asc" and "desc"; empty keeps the default.
	SortPrice string
}

// List wraps an order page plus the total row count.
type List struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Pages  int            `json:"pages"`
}

// CreatedEvent is emitted when an order is created.
type CreatedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	Code        string              `json:"code"`
	CustomerID  *uuid.UUID          `json:"customer_id,omitempty"`
	Method      enums.PaymentMethod `json:"method"`
	TotalPrice  int64               `json:"total_price"`
	Discount    int64               `json:"discount"`
	VoucherCode *string             `json:"voucher_code,omitempty"`
}

// PostedEvent is emitted when staff hand an order to the carrier.
type PostedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	Code       string    `json:"code"`
	ShippingID string    `json:"shipping_id"`
	PostedBy   string    `json:"posted_by"`
}

// TransitionEvent is emitted on every status change.
type TransitionEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	Code    string            `json:"code"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Reason  string            `json:"reason,omitempty"`
}

// CancelledEvent is emitted when an order reaches the cancelled state.
type CancelledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	Code       string    `json:"code"`
	Reason     string    `json:"reason"`
	CanceledBy string    `json:"canceled_by"`
	Refunded   bool      `json:"refunded"`
}

// RefundedEvent is emitted when a settled gateway payment is reversed as
// part of a cancellation.
type RefundedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	Code       string    `json:"code"`
	Amount     int64     `json:"amount"`
	RefundedBy string    `json:"refunded_by"`
}

// PaidEvent is emitted when a gateway payment settles.
type PaidEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	Code    string    `json:"code"`
	Amount  int64     `json:"amount"`
	PayDate string    `json:"pay_date"`
}
