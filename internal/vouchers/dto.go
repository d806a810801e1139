package vouchers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
)

// ListFilters describe the inputs supported by the dashboard voucher list.
type ListFilters struct {
	Status *enums.VoucherStatus
	Query  string
}

// List wraps a voucher page plus the total row count.
type List struct {
	Vouchers []models.Voucher `json:"vouchers"`
	Total    int64            `json:"total"`
	Pages    int              `json:"pages"`
}

// CreateInput carries the fields a staff member submits for a new voucher.
type CreateInput struct {
	Code             string
	Title            string
	Description      string
	DiscountRate     decimal.Decimal
	MinOrderPrice    int64
	MaxDiscountValue int64
	Quantity         *int
	Type             enums.VoucherType
	StartAt          time.Time
	ExpireAt         time.Time
	CreatedBy        string
}

// UpdateInput carries the editable fields of an unreleased voucher.
type UpdateInput struct {
	Title            *string
	Description      *string
	DiscountRate     *decimal.Decimal
	MinOrderPrice    *int64
	MaxDiscountValue *int64
	Quantity         *int
	StartAt          *time.Time
	ExpireAt         *time.Time
	EditedBy         string
}

// WalletVoucher is a claimed voucher as shown in a customer's wallet.
type WalletVoucher struct {
	EntryID uuid.UUID      `json:"entry_id"`
	Used    bool           `json:"used"`
	Voucher models.Voucher `json:"voucher"`
}

// Recommendation pairs a claimable wallet voucher with the discount it would
// grant against a specific order amount.
type Recommendation struct {
	VoucherCode string `json:"voucher_code"`
	Title       string `json:"title"`
	Discount    int64  `json:"discount"`
}

// ClaimedEvent is emitted when a customer claims a voucher.
type ClaimedEvent struct {
	VoucherID   uuid.UUID `json:"voucher_id"`
	VoucherCode string    `json:"voucher_code"`
	CustomerID  uuid.UUID `json:"customer_id"`
}

// ReleasedEvent is emitted when a voucher opens for claiming.
type ReleasedEvent struct {
	VoucherID   uuid.UUID `json:"voucher_id"`
	VoucherCode string    `json:"voucher_code"`
	ReleasedBy  string    `json:"released_by"`
}
