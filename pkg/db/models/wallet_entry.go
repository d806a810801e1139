package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletEntry is a customer's claim on a pool voucher. The (customer, voucher)
// pair is unique, so a double claim fails at the constraint even under
// concurrent requests. Used toggles when the voucher is reserved by an order
// and back when a compensation returns it.
type WalletEntry struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_wallet_entries_customer_voucher"`
	VoucherID  uuid.UUID `gorm:"column:voucher_id;type:uuid;not null;uniqueIndex:ux_wallet_entries_customer_voucher"`
	Used       bool      `gorm:"column:used;not null;default:false"`
	Voucher    *Voucher  `gorm:"foreignKey:VoucherID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
