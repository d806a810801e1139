package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/pkg/enums"
)

// Customer is a registered account. Prestige starts at 100 and is adjusted by
// delivery outcomes; it gates cash-on-delivery eligibility.
type Customer struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username      string            `gorm:"column:username;not null;uniqueIndex:ux_customers_username"`
	Email         string            `gorm:"column:email;not null"`
	Role          enums.Role        `gorm:"column:role;type:actor_role;not null;default:'customer'"`
	FirstName     string            `gorm:"column:first_name"`
	LastName      string            `gorm:"column:last_name"`
	Phone         string            `gorm:"column:phone"`
	Prestige      int               `gorm:"column:prestige;not null;default:100"`
	Addresses     []CustomerAddress `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	WalletEntries []WalletEntry     `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// CustomerAddress is an entry in a customer's saved address book.
type CustomerAddress struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`
	Line       string    `gorm:"column:line;not null"`
	Province   string    `gorm:"column:province;not null"`
	District   string    `gorm:"column:district;not null"`
	Ward       string    `gorm:"column:ward;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
