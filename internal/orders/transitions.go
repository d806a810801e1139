package orders

import "github.com/thanhcle/lunaria-backend/pkg/enums"

// allowedTransitions is the single source of truth for the order lifecycle.
// Terminal states have no outgoing edges.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusProcessing,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusDelivering,
		enums.OrderStatusDeliveryFailed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDelivering: {
		enums.OrderStatusDelivered,
		enums.OrderStatusDeliveryFailed,
		enums.OrderStatusReturning,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDeliveryFailed: {
		enums.OrderStatusReturning,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusReturning: {
		enums.OrderStatusReturned,
		enums.OrderStatusCancelled,
	},
}

// CanTransition reports whether the edge from one status to another is part
// of the lifecycle.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
