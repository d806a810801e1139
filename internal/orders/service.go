package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/internal/inventory"
	dbpkg "github.com/thanhcle/lunaria-backend/pkg/db"
	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/outbox"
	"github.com/thanhcle/lunaria-backend/pkg/pagination"
	"github.com/thanhcle/lunaria-backend/pkg/types"
)

const createRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockKeeper interface {
	CheckAvailability(ctx context.Context, lines []inventory.Line) error
	Decrement(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
	Restore(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
}

type voucherWallet interface {
	Reserve(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, code string, orderAmount int64) (int64, error)
	Return(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, code string) error
}

type codGate interface {
	AllowCOD(ctx context.Context, customerID *uuid.UUID, phone string) error
}

// CarrierGateway is the slice of the shipping layer the order flow needs:
// a fee quote at creation, a dispatch at posting, a cancel on abort.
type CarrierGateway interface {
	QuoteFee(ctx context.Context, order models.Order, express bool) (int64, error)
	Dispatch(ctx context.Context, order models.Order) (string, error)
	CancelShipment(ctx context.Context, shippingID string) error
}

// Refunder reverses a settled gateway payment.
type Refunder interface {
	Refund(ctx context.Context, order models.Order, createBy string) error
}

// TransitionOptions parameterize a lifecycle transition: who did it, why,
// and compensation work that must commit atomically with the status change.
type TransitionOptions struct {
	Actor  *outbox.ActorRef
	Reason string
	InTx   func(tx *gorm.DB, order *models.Order) error
}

// Service covers the order lifecycle from creation to its terminal states.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	CreateGuest(ctx context.Context, input GuestCreateInput) (*models.Order, error)
	Post(ctx context.Context, orderID uuid.UUID, postedBy string) error
	CustomerCancel(ctx context.Context, orderID, customerID uuid.UUID) error
	AdminCancel(ctx context.Context, input AdminCancelInput) error
	ChangeAddress(ctx context.Context, input ChangeAddressInput) error
	RecordTransactionDate(ctx context.Context, code, transactionDate string) error
	MarkPaid(ctx context.Context, code, payDate string) (*models.Order, error)
	Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, opts TransitionOptions) error

	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerFilters) (*List, error)
	ListAdmin(ctx context.Context, params pagination.Params, filters AdminFilters) (*List, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	stock    stockKeeper
	vouchers voucherWallet
	cod      codGate
	carrier  CarrierGateway
	refunder Refunder
}

// NewService builds the order service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	stock stockKeeper,
	vouchers voucherWallet,
	cod codGate,
	carrier CarrierGateway,
	refunder Refunder,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if vouchers == nil {
		return nil, fmt.Errorf("voucher service required")
	}
	if cod == nil {
		return nil, fmt.Errorf("prestige service required")
	}
	if carrier == nil {
		return nil, fmt.Errorf("carrier gateway required")
	}
	if refunder == nil {
		return nil, fmt.Errorf("refunder required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		stock:    stock,
		vouchers: vouchers,
		cod:      cod,
		carrier:  carrier,
		refunder: refunder,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	customerID := input.CustomerID
	return s.create(ctx, createRequest{
		customerID:    &customerID,
		email:         input.Email,
		receiverName:  input.ReceiverName,
		receiverPhone: input.ReceiverPhone,
		address:       input.Address,
		method:        input.Method,
		voucherCode:   input.VoucherCode,
		express:       input.Express,
		lines:         input.Lines,
		clearCart:     true,
	})
}

// CreateGuest places an order without an account. Vouchers need a wallet, so
// guests cannot apply one.
func (s *service) CreateGuest(ctx context.Context, input GuestCreateInput) (*models.Order, error) {
	return s.create(ctx, createRequest{
		email:         input.Email,
		receiverName:  input.ReceiverName,
		receiverPhone: input.ReceiverPhone,
		address:       input.Address,
		method:        input.Method,
		express:       input.Express,
		lines:         input.Lines,
	})
}

type createRequest struct {
	customerID    *uuid.UUID
	email         string
	receiverName  string
	receiverPhone string
	address       types.DeliveryAddress
	method        enums.PaymentMethod
	voucherCode   *string
	express       bool
	lines         []LineInput
	clearCart     bool
}

func (s *service) create(ctx context.Context, req createRequest) (*models.Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if req.method == enums.PaymentMethodCOD {
		if err := s.cod.AllowCOD(ctx, req.customerID, req.receiverPhone); err != nil {
			return nil, err
		}
	}

	// Creation only checks availability; stock is decremented when staff post
	// the order to the carrier.
	if err := s.stock.CheckAvailability(ctx, toStockLines(req.lines)); err != nil {
		return nil, err
	}

	items, total, err := s.snapshotItems(ctx, req.lines)
	if err != nil {
		return nil, err
	}

	draft := models.Order{
		CustomerID:      req.customerID,
		Email:           req.email,
		ReceiverName:    req.receiverName,
		ReceiverPhone:   req.receiverPhone,
		DeliveryAddress: req.address,
		Status:          enums.OrderStatusPending,
		TotalPrice:      total,
		Payment:         types.PaymentRecord{Method: req.method},
		Items:           items,
	}

	// The fee quote is an external call, so it stays outside the creation
	// transaction.
	fee, err := s.carrier.QuoteFee(ctx, draft, req.express)
	if err != nil {
		return nil, err
	}
	draft.Shipping = &types.ShippingRecord{Fee: fee, Express: req.express}

	var created *models.Order
	for attempt := 0; attempt < createRetries; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order code")
		}

		order := draft
		order.ID = uuid.New()
		order.Code = code
		order.Items = cloneItems(items, order.ID)

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			if req.voucherCode != nil && *req.voucherCode != "" {
				discount, err := s.vouchers.Reserve(ctx, tx, *req.customerID, *req.voucherCode, total)
				if err != nil {
					return err
				}
				order.DiscountValue = discount
				order.VoucherCode = req.voucherCode
			}

			if _, err := repo.Create(ctx, &order); err != nil {
				return err
			}

			if req.clearCart && req.customerID != nil {
				if err := repo.RemoveCartLines(ctx, *req.customerID, req.lines); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart lines")
				}
			}

			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorForOrder(order),
				Data: CreatedEvent{
					OrderID:     order.ID,
					Code:        order.Code,
					CustomerID:  order.CustomerID,
					Method:      order.Payment.Method,
					TotalPrice:  order.TotalPrice,
					Discount:    order.DiscountValue,
					VoucherCode: order.VoucherCode,
				},
			})
		})
		if err == nil {
			created = &order
			break
		}
		if dbpkg.IsUniqueViolation(err, "ux_orders_code") && attempt < createRetries-1 {
			continue
		}
		return nil, translateCreateError(err)
	}
	return created, nil
}

// Post hands a pending order to the carrier. The dispatch happens before the
// transaction; if the commit then fails, the shipment is cancelled best
// effort so the carrier does not pick up an order we never moved.
func (s *service) Post(ctx context.Context, orderID uuid.UUID, postedBy string) error {
	if postedBy == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "poster identity missing")
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != enums.OrderStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only a pending order can be posted")
	}
	if order.Payment.Method == enums.PaymentMethodVNPay && !order.Payment.Paid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "gateway order has not been paid")
	}

	shippingID, err := s.carrier.Dispatch(ctx, *order)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if current.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order moved while posting")
		}

		// Stock comes off the shelf at posting time; a failed decrement
		// aborts the whole operation and withdraws the shipment.
		if err := s.stock.Decrement(ctx, tx, inventory.LinesFromOrderItems(current.Items)); err != nil {
			return err
		}

		current.Status = enums.OrderStatusProcessing
		current.PostedBy = &postedBy
		if current.Shipping == nil {
			current.Shipping = &types.ShippingRecord{}
		}
		current.Shipping.ShippingID = shippingID
		if err := saveOrder(ctx, tx, current); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPosted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{Username: postedBy, Role: string(enums.RoleStaff)},
			Data: PostedEvent{
				OrderID:    current.ID,
				Code:       current.Code,
				ShippingID: shippingID,
				PostedBy:   postedBy,
			},
		})
	})
	if err != nil {
		_ = s.carrier.CancelShipment(ctx, shippingID)
		return err
	}
	return nil
}

// CustomerCancel lets the buyer abort an order that staff have not touched
// yet. A settled gateway payment is refunded first; the cancellation only
// commits once the refund went through.
func (s *service) CustomerCancel(ctx context.Context, orderID, customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	if order.Status != enums.OrderStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only a pending order can be cancelled by the customer")
	}

	refunded := false
	if order.Payment.Method == enums.PaymentMethodVNPay && order.Payment.Paid {
		if err := s.refunder.Refund(ctx, *order, "customer"); err != nil {
			return err
		}
		refunded = true
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if current.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order moved while cancelling")
		}

		reason := enums.CancelReasonCustomerRequest
		canceledBy := string(enums.RoleCustomer)
		current.Status = enums.OrderStatusCancelled
		current.CancelReason = &reason
		current.CanceledBy = &canceledBy
		if refunded {
			current.Payment.Refunded = true
		}
		if err := saveOrder(ctx, tx, current); err != nil {
			return err
		}

		actor := &outbox.ActorRef{CustomerID: customerID.String(), Role: string(enums.RoleCustomer)}
		if refunded {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentRefunded,
				AggregateType: enums.AggregateOrder,
				AggregateID:   current.ID,
				Version:       1,
				Actor:         actor,
				Data: RefundedEvent{
					OrderID:    current.ID,
					Code:       current.Code,
					Amount:     current.PayableAmount(),
					RefundedBy: canceledBy,
				},
			}); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         actor,
			Data: CancelledEvent{
				OrderID:    current.ID,
				Code:       current.Code,
				Reason:     reason,
				CanceledBy: canceledBy,
				Refunded:   refunded,
			},
		})
	})
}

// AdminCancel aborts any order that has not reached a terminal state. An
// order already handed to the carrier is withdrawn first; a paid gateway
// order is refunded; a voucher is returned only when the reason is
// attributable to the shop.
func (s *service) AdminCancel(ctx context.Context, input AdminCancelInput) error {
	if input.CanceledBy == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "canceller identity missing")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancel reason required")
	}

	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return err
	}
	if !CanTransition(order.Status, enums.OrderStatusCancelled) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
	}

	if order.Status != enums.OrderStatusPending {
		if order.Shipping == nil || order.Shipping.ShippingID == "" {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "posted order has no shipment to withdraw")
		}
		if err := s.carrier.CancelShipment(ctx, order.Shipping.ShippingID); err != nil {
			return err
		}
	}

	refunded := false
	if order.Payment.Method == enums.PaymentMethodVNPay && order.Payment.Paid {
		if err := s.refunder.Refund(ctx, *order, input.CanceledBy); err != nil {
			return err
		}
		refunded = true
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if !CanTransition(current.Status, enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order moved while cancelling")
		}

		// Stock is decremented at posting time, so every status past
		// pending gets a restore.
		if current.Status != enums.OrderStatusPending {
			if err := s.stock.Restore(ctx, tx, inventory.LinesFromOrderItems(current.Items)); err != nil {
				return err
			}
		}

		if enums.IsShopCancelReason(input.Reason) && current.VoucherCode != nil && current.CustomerID != nil {
			if err := s.vouchers.Return(ctx, tx, *current.CustomerID, *current.VoucherCode); err != nil {
				return err
			}
		}

		reason := input.Reason
		current.Status = enums.OrderStatusCancelled
		current.CancelReason = &reason
		current.CanceledBy = &input.CanceledBy
		if refunded {
			current.Payment.Refunded = true
		}
		if err := saveOrder(ctx, tx, current); err != nil {
			return err
		}

		actor := &outbox.ActorRef{Username: input.CanceledBy, Role: string(enums.RoleStaff)}
		if refunded {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentRefunded,
				AggregateType: enums.AggregateOrder,
				AggregateID:   current.ID,
				Version:       1,
				Actor:         actor,
				Data: RefundedEvent{
					OrderID:    current.ID,
					Code:       current.Code,
					Amount:     current.PayableAmount(),
					RefundedBy: input.CanceledBy,
				},
			}); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         actor,
			Data: CancelledEvent{
				OrderID:    current.ID,
				Code:       current.Code,
				Reason:     reason,
				CanceledBy: input.CanceledBy,
				Refunded:   refunded,
			},
		})
	})
}

// ChangeAddress applies the single delivery address edit a customer gets
// while the order is still pending.
func (s *service) ChangeAddress(ctx context.Context, input ChangeAddressInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.Address.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID == nil || *order.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "address can only change while the order is pending")
		}
		if order.DeliveryAddress.Edited {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery address was already edited once")
		}

		address := input.Address
		address.Edited = true
		order.DeliveryAddress = address

		// The shipping fee was quoted against the old address; requote it
		// against the new one.
		if order.Shipping != nil {
			fee, err := s.carrier.QuoteFee(ctx, *order, order.Shipping.Express)
			if err != nil {
				return err
			}
			order.Shipping.Fee = fee
		}
		return saveOrder(ctx, tx, order)
	})
}

// RecordTransactionDate stores the gateway creation timestamp a checkout
// redirect was built with. A repayment attempt overwrites the previous one;
// refunds reference whichever timestamp the settled redirect carried.
func (s *service) RecordTransactionDate(ctx context.Context, code, transactionDate string) error {
	if strings.TrimSpace(code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order code required")
	}
	if strings.TrimSpace(transactionDate) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction date required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByCode(ctx, code)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Payment.Method != enums.PaymentMethodVNPay {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a gateway order")
		}
		if order.Payment.Paid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}

		order.Payment.TransactionDate = transactionDate
		return saveOrder(ctx, tx, order)
	})
}

// MarkPaid records a settled gateway payment against the order.
func (s *service) MarkPaid(ctx context.Context, code, payDate string) (*models.Order, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code required")
	}

	var paid *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByCode(ctx, code)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Payment.Method != enums.PaymentMethodVNPay {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a gateway order")
		}
		if order.Payment.Paid {
			paid = order
			return nil
		}

		order.Payment.Paid = true
		order.Payment.PayDate = payDate
		if err := saveOrder(ctx, tx, order); err != nil {
			return err
		}
		paid = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorForOrder(*order),
			Data: PaidEvent{
				OrderID: order.ID,
				Code:    order.Code,
				Amount:  order.PayableAmount(),
				PayDate: payDate,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// Transition moves an order along a lifecycle edge. The compensation hook
// and the status change commit in the same transaction; an edge not in the
// lifecycle yields a state conflict.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, opts TransitionOptions) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		from := order.Status
		if from == to {
			return nil
		}
		if !CanTransition(from, to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot move from %s to %s", from, to))
		}

		if opts.InTx != nil {
			if err := opts.InTx(tx, order); err != nil {
				return err
			}
		}

		order.Status = to
		if to == enums.OrderStatusCancelled && opts.Reason != "" {
			reason := opts.Reason
			order.CancelReason = &reason
			canceledBy := "carrier"
			if opts.Actor != nil && opts.Actor.Username != "" {
				canceledBy = opts.Actor.Username
			}
			order.CanceledBy = &canceledBy
		}
		if err := saveOrder(ctx, tx, order); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderTransition,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         opts.Actor,
			Data: TransitionEvent{
				OrderID: order.ID,
				Code:    order.Code,
				From:    from,
				To:      to,
				Reason:  opts.Reason,
			},
		})
	})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code required")
	}
	order, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerFilters) (*List, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	list, err := s.repo.ListForCustomer(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return list, nil
}

func (s *service) ListAdmin(ctx context.Context, params pagination.Params, filters AdminFilters) (*List, error) {
	list, err := s.repo.ListAdmin(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// snapshotItems copies display fields and unit prices out of the catalog so
// the order stays stable when products change later.
func (s *service) snapshotItems(ctx context.Context, lines []LineInput) ([]models.OrderLineItem, int64, error) {
	items := make([]models.OrderLineItem, 0, len(lines))
	var total int64
	for _, line := range lines {
		product, err := s.repo.FindProductByCode(ctx, line.ProductCode)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductCode))
			}
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		items = append(items, models.OrderLineItem{
			ID:          uuid.New(),
			DisplayName: product.DisplayName,
			ProductCode: product.Code,
			ImageURL:    product.ImageURL,
			UnitPrice:   product.UnitPrice,
			Size:        line.Size,
			Qty:         line.Qty,
		})
		total += product.UnitPrice * int64(line.Qty)
	}
	return items, total, nil
}

func validateCreate(req createRequest) error {
	if strings.TrimSpace(req.receiverName) == "" || strings.TrimSpace(req.receiverPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "receiver name and phone required")
	}
	if req.address.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if !req.method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(req.lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	for _, line := range req.lines {
		if line.ProductCode == "" || line.Size == "" || line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "each line needs a product, size and positive quantity")
		}
	}
	if req.voucherCode != nil && *req.voucherCode != "" && req.customerID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vouchers require an account")
	}
	return nil
}

func toStockLines(lines []LineInput) []inventory.Line {
	out := make([]inventory.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, inventory.Line{ProductCode: line.ProductCode, Size: line.Size, Qty: line.Qty})
	}
	return out
}

func cloneItems(items []models.OrderLineItem, orderID uuid.UUID) []models.OrderLineItem {
	out := make([]models.OrderLineItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].ID = uuid.New()
		out[i].OrderID = orderID
	}
	return out
}

func actorForOrder(order models.Order) *outbox.ActorRef {
	if order.CustomerID != nil {
		return &outbox.ActorRef{CustomerID: order.CustomerID.String(), Role: string(enums.RoleCustomer)}
	}
	return &outbox.ActorRef{Role: "guest"}
}

func saveOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if err := tx.WithContext(ctx).Omit("Items").Save(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
	}
	return nil
}

func translateCreateError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
}
