package payments

import (
	"context"
	"fmt"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/vnpay"
)

const fullRefundType = "02"

type refundAPI interface {
	Refund(ctx context.Context, req vnpay.RefundRequest) (*vnpay.RefundResponse, error)
}

// Refunder reverses a settled gateway payment when an order is cancelled.
type Refunder struct {
	gateway refundAPI
}

func NewRefunder(gateway refundAPI) (*Refunder, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway client required")
	}
	return &Refunder{gateway: gateway}, nil
}

// Refund asks the gateway to reverse the order's payment in full. The stored
// creation timestamp must match the one the checkout redirect carried or the
// gateway rejects the command.
func (r *Refunder) Refund(ctx context.Context, order models.Order, createBy string) error {
	if !order.Payment.Paid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no settled payment to refund")
	}
	if order.Payment.TransactionDate == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is missing the gateway transaction date")
	}

	resp, err := r.gateway.Refund(ctx, vnpay.RefundRequest{
		TxnRef:          order.Code,
		Amount:          order.PayableAmount(),
		TransactionDate: order.Payment.TransactionDate,
		TransactionType: fullRefundType,
		CreateBy:        createBy,
		OrderInfo:       fmt.Sprintf("Hoan tien don hang %s", order.Code),
	})
	if err != nil {
		return err
	}
	if !resp.Accepted() {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway refused refund: %s", resp.Message))
	}
	return nil
}
