package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/internal/inventory"
	"github.com/thanhcle/lunaria-backend/internal/orders"
	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/outbox"
)

// Carrier status codes reported on the webhook.
const (
	carrierStatusCancelled      = -1
	carrierStatusDelivering     = 4
	carrierStatusDelivered      = 5
	carrierStatusDeliveryFailed = 9
	carrierStatusReturning      = 20
	carrierStatusReturned       = 21
)

// Failure reason codes the carrier attributes to the recipient (refused the
// parcel, unreachable). These cost the recipient prestige; every other
// failure returns the voucher instead.
var recipientFaultReasons = map[string]struct{}{
	"131": {},
	"132": {},
}

// Callback carries the webhook fields the status flow acts on. OrderCode is
// the partner reference we handed the carrier at dispatch.
type Callback struct {
	OrderCode  string
	Label      string
	StatusID   int
	Reason     string
	ReasonCode string
}

// callbackAction is one row of the status-code lookup: the target state plus
// the compensations that commit with it.
type callbackAction struct {
	target        enums.OrderStatus
	restock       bool
	reward        bool
	handleFailure bool
	returnVoucher bool
}

var callbackActions = map[int]callbackAction{
	// A carrier-side cancel only records the state and reason. Any stock or
	// voucher reconciliation happens through the admin cancel flow.
	carrierStatusCancelled:      {target: enums.OrderStatusCancelled},
	carrierStatusDelivering:     {target: enums.OrderStatusDelivering},
	carrierStatusDelivered:      {target: enums.OrderStatusDelivered, reward: true},
	carrierStatusDeliveryFailed: {target: enums.OrderStatusDeliveryFailed, handleFailure: true},
	carrierStatusReturning:      {target: enums.OrderStatusReturning},
	carrierStatusReturned:       {target: enums.OrderStatusReturned, restock: true},
}

type orderFlow interface {
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, opts orders.TransitionOptions) error
}

type scoreAdjuster interface {
	RewardCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
	PenalizeCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
	RewardGuest(ctx context.Context, tx *gorm.DB, phone, fullName string) error
	PenalizeGuest(ctx context.Context, tx *gorm.DB, phone, fullName string) error
}

type stockRestorer interface {
	Restore(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
}

type voucherReturner interface {
	Return(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, code string) error
}

// CallbackService applies carrier status webhooks to orders.
type CallbackService interface {
	HandleCallback(ctx context.Context, cb Callback) error
}

type callbackService struct {
	orders orderFlow
	scores scoreAdjuster
	stock  stockRestorer
	wallet voucherReturner
}

func NewCallbackService(ordersSvc orderFlow, scores scoreAdjuster, stock stockRestorer, wallet voucherReturner) (CallbackService, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if scores == nil {
		return nil, fmt.Errorf("prestige service required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("voucher service required")
	}
	return &callbackService{orders: ordersSvc, scores: scores, stock: stock, wallet: wallet}, nil
}

// HandleCallback looks the carrier code up in the action table and applies
// the transition with its compensations in one transaction. A code outside
// the table is acknowledged without any state change.
func (s *callbackService) HandleCallback(ctx context.Context, cb Callback) error {
	if strings.TrimSpace(cb.OrderCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback is missing the order reference")
	}

	action, known := callbackActions[cb.StatusID]
	if !known {
		return nil
	}

	order, err := s.orders.GetByCode(ctx, cb.OrderCode)
	if err != nil {
		return err
	}

	return s.orders.Transition(ctx, order.ID, action.target, orders.TransitionOptions{
		Actor:  &outbox.ActorRef{Role: "carrier"},
		Reason: cancelReason(cb),
		InTx: func(tx *gorm.DB, current *models.Order) error {
			return s.compensate(ctx, tx, current, action, cb)
		},
	})
}

func (s *callbackService) compensate(ctx context.Context, tx *gorm.DB, order *models.Order, action callbackAction, cb Callback) error {
	// A pending order never had stock decremented, so there is nothing to
	// put back.
	if action.restock && order.Status != enums.OrderStatusPending {
		if err := s.stock.Restore(ctx, tx, inventory.LinesFromOrderItems(order.Items)); err != nil {
			return err
		}
	}

	if action.returnVoucher {
		if err := s.returnVoucher(ctx, tx, order); err != nil {
			return err
		}
	}

	if action.reward {
		if err := s.adjustScore(ctx, tx, order, true); err != nil {
			return err
		}
	}

	if action.handleFailure {
		if order.Shipping != nil && cb.Reason != "" {
			order.Shipping.Reason = cb.Reason
		}
		if _, fault := recipientFaultReasons[cb.ReasonCode]; fault {
			return s.adjustScore(ctx, tx, order, false)
		}
		return s.returnVoucher(ctx, tx, order)
	}

	return nil
}

func (s *callbackService) returnVoucher(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order.VoucherCode == nil || order.CustomerID == nil {
		return nil
	}
	return s.wallet.Return(ctx, tx, *order.CustomerID, *order.VoucherCode)
}

func (s *callbackService) adjustScore(ctx context.Context, tx *gorm.DB, order *models.Order, reward bool) error {
	if order.CustomerID != nil {
		if reward {
			return s.scores.RewardCustomer(ctx, tx, *order.CustomerID)
		}
		return s.scores.PenalizeCustomer(ctx, tx, *order.CustomerID)
	}
	if reward {
		return s.scores.RewardGuest(ctx, tx, order.ReceiverPhone, order.ReceiverName)
	}
	return s.scores.PenalizeGuest(ctx, tx, order.ReceiverPhone, order.ReceiverName)
}

func cancelReason(cb Callback) string {
	if cb.Reason != "" {
		return cb.Reason
	}
	if cb.StatusID == carrierStatusCancelled {
		return enums.CancelReasonCarrierHandover
	}
	return ""
}
