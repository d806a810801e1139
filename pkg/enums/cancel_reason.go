package enums

// Cancellation reasons offered by the admin dashboard. Reasons in the shop
// group are attributable to the shop, so a consumed voucher is returned to the
// customer's wallet when the order is cancelled for one of them.
const (
	CancelReasonOutOfStock      = "product out of stock or no longer available"
	CancelReasonCarrierHandover = "could not hand over to the shipping carrier"
	CancelReasonOrderExpired    = "order expired"
	CancelReasonTechnicalIssue  = "technical issue"

	CancelReasonInvalidAddress   = "invalid delivery address"
	CancelReasonCustomerRequest  = "customer requested cancellation"
	CancelReasonInvalidOrderInfo = "invalid order information"
	CancelReasonUnreachable      = "customer unreachable after 3 attempts"
	CancelReasonDuplicateOrder   = "duplicate order"
	CancelReasonUnpaid           = "customer has not paid"
)

var shopCancelReasons = map[string]struct{}{
	CancelReasonOutOfStock:      {},
	CancelReasonCarrierHandover: {},
	CancelReasonOrderExpired:    {},
	CancelReasonTechnicalIssue:  {},
}

// IsShopCancelReason reports whether the reason is attributable to the shop.
func IsShopCancelReason(reason string) bool {
	_, ok := shopCancelReasons[reason]
	return ok
}
