package enums

import "fmt"

// OutboxEventType enumerates the domain events written through the outbox.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order.created"
	EventOrderPosted      OutboxEventType = "order.posted"
	EventOrderTransition  OutboxEventType = "order.transitioned"
	EventOrderCancelled   OutboxEventType = "order.cancelled"
	EventPaymentConfirmed OutboxEventType = "payment.confirmed"
	EventPaymentRefunded  OutboxEventType = "payment.refunded"
	EventVoucherClaimed   OutboxEventType = "voucher.claimed"
	EventVoucherReleased  OutboxEventType = "voucher.released"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPosted,
	EventOrderTransition,
	EventOrderCancelled,
	EventPaymentConfirmed,
	EventPaymentRefunded,
	EventVoucherClaimed,
	EventVoucherReleased,
}

// IsValid reports whether the value matches the canonical outbox event type enum.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts the raw string to OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateVoucher OutboxAggregateType = "voucher"
)
