package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thanhcle/lunaria-backend/pkg/enums"
)

// Voucher is a row in the shared voucher pool. Quantity is nil for unlimited
// campaigns; for finite pools it is only ever decremented by an atomic
// conditional update on claim.
type Voucher struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string              `gorm:"column:code;not null;uniqueIndex:ux_vouchers_code"`
	Title            string              `gorm:"column:title;not null"`
	Description      string              `gorm:"column:description"`
	DiscountRate     decimal.Decimal     `gorm:"column:discount_rate;type:numeric(5,4);not null"`
	MinOrderPrice    int64               `gorm:"column:min_order_price;not null;default:0"`
	MaxDiscountValue int64               `gorm:"column:max_discount_value;not null"`
	Quantity         *int                `gorm:"column:quantity"`
	Type             enums.VoucherType   `gorm:"column:type;type:voucher_type;not null;default:'limited'"`
	Status           enums.VoucherStatus `gorm:"column:status;type:voucher_status;not null;default:'pending'"`
	Released         bool                `gorm:"column:released;not null;default:false"`
	StartAt          time.Time           `gorm:"column:start_at;not null"`
	ExpireAt         time.Time           `gorm:"column:expire_at;not null"`
	CreatedBy        string              `gorm:"column:created_by;not null"`
	ApprovedBy       *string             `gorm:"column:approved_by"`
	EditedBy         *string             `gorm:"column:edited_by"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveDiscount returns the discount the voucher grants against the given
// order amount: rate times amount, capped at MaxDiscountValue.
func (v Voucher) EffectiveDiscount(orderAmount int64) int64 {
	raw := v.DiscountRate.Mul(decimal.NewFromInt(orderAmount))
	capped := decimal.Min(raw, decimal.NewFromInt(v.MaxDiscountValue))
	return capped.IntPart()
}

// Expired reports whether the voucher is past its expiry at the given instant.
func (v Voucher) Expired(now time.Time) bool {
	return now.After(v.ExpireAt)
}
