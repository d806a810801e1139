package models

import (
	"time"

	"github.com/google/uuid"
)

// Guest tracks delivery reliability for unregistered buyers, keyed by phone
// number. A guest row is created lazily on the first carrier-reported outcome.
type Guest struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Phone         string    `gorm:"column:phone;not null;uniqueIndex:ux_guests_phone"`
	FullName      string    `gorm:"column:full_name"`
	Prestige      int       `gorm:"column:prestige;not null;default:100"`
	TotalSuccess  int       `gorm:"column:total_success;not null;default:0"`
	TotalCanceled int       `gorm:"column:total_canceled;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
