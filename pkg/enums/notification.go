package enums

import "fmt"

// NotificationType classifies entries on the staff notification feed.
type NotificationType string

const (
	NotificationTypeOrderCreated     NotificationType = "order_created"
	NotificationTypeOrderCancelled   NotificationType = "order_cancelled"
	NotificationTypePaymentConfirmed NotificationType = "payment_confirmed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderCreated,
	NotificationTypeOrderCancelled,
	NotificationTypePaymentConfirmed,
}

// IsValid reports whether the value matches the canonical notification type enum.
func (t NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseNotificationType converts the raw string to NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
