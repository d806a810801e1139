package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/pkg/enums"
)

// Notification is one entry on the staff dashboard feed, written by the
// domain-event consumer. OrderCode points back at the triggering order.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	OrderCode string                 `gorm:"column:order_code;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
