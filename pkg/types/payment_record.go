package types

import "github.com/thanhcle/lunaria-backend/pkg/enums"

// PaymentRecord is the payment sub-record embedded on an order.
type PaymentRecord struct {
	Method enums.PaymentMethod `json:"method"`
	Paid   bool                `json:"paid"`
	// TransactionDate is the gateway-format creation timestamp
	// (yyyyMMddHHmmss) the checkout redirect was built with. The gateway
	// identifies the transaction by it on refund.
	TransactionDate string `json:"transaction_date,omitempty"`
	// PayDate is the settlement timestamp echoed on the return redirect.
	PayDate  string `json:"pay_date,omitempty"`
	Refunded bool   `json:"refunded"`
}
