package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/vnpay"
)

type gatewayClient interface {
	BuildPayURL(req vnpay.PayURLRequest) (*vnpay.PayURLResult, error)
	VerifyReturn(query url.Values) (*vnpay.ReturnResult, error)
}

type orderSettler interface {
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	RecordTransactionDate(ctx context.Context, code, transactionDate string) error
	MarkPaid(ctx context.Context, code, payDate string) (*models.Order, error)
}

// PayURLInput carries a checkout or repayment redirect request.
type PayURLInput struct {
	OrderCode string
	// CustomerID must match the order owner for account orders; guest
	// orders skip the check.
	CustomerID *uuid.UUID
	IPAddr     string
	BankCode   string
	Locale     string
}

// ReturnOutcome is the verified result of a gateway redirect back.
type ReturnOutcome struct {
	OrderCode    string
	Amount       int64
	ResponseCode string
	Paid         bool
}

// Service bridges orders to the redirect payment gateway.
type Service interface {
	PayURL(ctx context.Context, input PayURLInput) (string, error)
	HandleReturn(ctx context.Context, query url.Values) (*ReturnOutcome, error)
}

type service struct {
	orders    orderSettler
	gateway   gatewayClient
	returnURL string
}

// NewService builds the payment service. returnURL is the absolute URL the
// gateway redirects the customer back to.
func NewService(orders orderSettler, gateway gatewayClient, returnURL string) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway client required")
	}
	if strings.TrimSpace(returnURL) == "" {
		return nil, fmt.Errorf("return URL required")
	}
	return &service{orders: orders, gateway: gateway, returnURL: returnURL}, nil
}

// PayURL builds the checkout redirect for an unpaid gateway order. The same
// flow serves a repayment attempt after an abandoned or declined checkout.
func (s *service) PayURL(ctx context.Context, input PayURLInput) (string, error) {
	order, err := s.orders.GetByCode(ctx, input.OrderCode)
	if err != nil {
		return "", err
	}
	if order.CustomerID != nil {
		if input.CustomerID == nil || *input.CustomerID != *order.CustomerID {
			return "", pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
	}
	if order.Payment.Method != enums.PaymentMethodVNPay {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a gateway order")
	}
	if order.Payment.Paid {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status != enums.OrderStatusPending {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be paid")
	}

	built, err := s.gateway.BuildPayURL(vnpay.PayURLRequest{
		TxnRef:    order.Code,
		Amount:    order.PayableAmount(),
		OrderInfo: fmt.Sprintf("Thanh toan don hang %s", order.Code),
		ReturnURL: s.returnURL,
		IPAddr:    input.IPAddr,
		BankCode:  input.BankCode,
		Locale:    input.Locale,
	})
	if err != nil {
		return "", err
	}

	// The creation timestamp identifies the transaction on refund, so it
	// must be on the order before the customer is redirected.
	if err := s.orders.RecordTransactionDate(ctx, order.Code, built.CreateDate); err != nil {
		return "", err
	}
	return built.URL, nil
}

// HandleReturn verifies the gateway signature and settles the order on
// success. A declined transaction surfaces as a state conflict; a signature
// mismatch is rejected inside VerifyReturn without touching any order.
func (s *service) HandleReturn(ctx context.Context, query url.Values) (*ReturnOutcome, error) {
	result, err := s.gateway.VerifyReturn(query)
	if err != nil {
		return nil, err
	}

	if result.Paid() {
		if _, err := s.orders.MarkPaid(ctx, result.TxnRef, result.PayDate); err != nil {
			return nil, err
		}
		return &ReturnOutcome{
			OrderCode:    result.TxnRef,
			Amount:       result.Amount,
			ResponseCode: result.ResponseCode,
			Paid:         true,
		}, nil
	}
	if result.Declined() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment for order %s was declined by the bank", result.TxnRef))
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency,
		fmt.Sprintf("gateway reported status %q for order %s", result.TransactionStatus, result.TxnRef))
}
