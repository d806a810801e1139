package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
	"github.com/thanhcle/lunaria-backend/pkg/mailer"
	"github.com/thanhcle/lunaria-backend/pkg/outbox"
	"github.com/thanhcle/lunaria-backend/pkg/outbox/idempotency"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type orderSource interface {
	GetByCode(ctx context.Context, code string) (*models.Order, error)
}

// Consumer watches domain events, writes staff feed entries and sends the
// matching customer emails. Email delivery is best effort; a failed send is
// logged and the event is still acked.
type Consumer struct {
	repo         repository
	orders       orderSource
	sender       mailer.Sender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, orders orderSource, sender mailer.Sender, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order source required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		orders:       orders,
		sender:       sender,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func handledEvent(eventType string) bool {
	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderCreated, enums.EventOrderCancelled, enums.EventPaymentConfirmed:
		return true
	default:
		return false
	}
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !handledEvent(eventType) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, enums.OutboxEventType(eventType), envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderCreated:
		var payload orderCreatedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order created payload: %w", err)
		}
		return c.handleCreated(ctx, payload, logCtx)
	case enums.EventOrderCancelled:
		var payload orderCancelledPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order cancelled payload: %w", err)
		}
		return c.handleCancelled(ctx, payload, logCtx)
	case enums.EventPaymentConfirmed:
		var payload paymentConfirmedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment confirmed payload: %w", err)
		}
		return c.handlePaid(ctx, payload, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) handleCreated(ctx context.Context, payload orderCreatedPayload, logCtx context.Context) error {
	if payload.Code == "" {
		return fmt.Errorf("order code missing")
	}

	notification := &models.Notification{
		Type:      enums.NotificationTypeOrderCreated,
		OrderCode: payload.Code,
		Title:     "New order",
		Message:   fmt.Sprintf("Order %s was placed, total %d VND (%s).", payload.Code, payload.TotalPrice, payload.Method),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}

	c.sendOrderMail(ctx, payload.Code, logCtx, func(order models.Order) mailer.Message {
		return mailer.Message{
			To:      order.Email,
			Subject: fmt.Sprintf("Order %s received", order.Code),
			HTMLBody: fmt.Sprintf(
				"<p>Hi %s,</p><p>We received your order <strong>%s</strong>. Amount due: %d VND.</p>",
				order.ReceiverName, order.Code, order.PayableAmount(),
			),
		}
	})
	return nil
}

func (c *Consumer) handleCancelled(ctx context.Context, payload orderCancelledPayload, logCtx context.Context) error {
	if payload.Code == "" {
		return fmt.Errorf("order code missing")
	}

	message := fmt.Sprintf("Order %s was cancelled. Reason: %s.", payload.Code, payload.Reason)
	if payload.Refunded {
		message += " Payment was refunded."
	}
	notification := &models.Notification{
		Type:      enums.NotificationTypeOrderCancelled,
		OrderCode: payload.Code,
		Title:     "Order cancelled",
		Message:   message,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}

	c.sendOrderMail(ctx, payload.Code, logCtx, func(order models.Order) mailer.Message {
		body := fmt.Sprintf(
			"<p>Hi %s,</p><p>Your order <strong>%s</strong> has been cancelled.</p>",
			order.ReceiverName, order.Code,
		)
		if payload.Refunded {
			body += "<p>Your payment has been refunded through the original payment method.</p>"
		}
		return mailer.Message{
			To:       order.Email,
			Subject:  fmt.Sprintf("Order %s cancelled", order.Code),
			HTMLBody: body,
		}
	})
	return nil
}

func (c *Consumer) handlePaid(ctx context.Context, payload paymentConfirmedPayload, logCtx context.Context) error {
	if payload.Code == "" {
		return fmt.Errorf("order code missing")
	}

	notification := &models.Notification{
		Type:      enums.NotificationTypePaymentConfirmed,
		OrderCode: payload.Code,
		Title:     "Payment received",
		Message:   fmt.Sprintf("Order %s was paid, %d VND.", payload.Code, payload.Amount),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}

	c.sendOrderMail(ctx, payload.Code, logCtx, func(order models.Order) mailer.Message {
		return mailer.Message{
			To:      order.Email,
			Subject: fmt.Sprintf("Payment for order %s confirmed", order.Code),
			HTMLBody: fmt.Sprintf(
				"<p>Hi %s,</p><p>We received your payment of %d VND for order <strong>%s</strong>.</p>",
				order.ReceiverName, payload.Amount, order.Code,
			),
		}
	})
	return nil
}

func (c *Consumer) sendOrderMail(ctx context.Context, code string, logCtx context.Context, compose func(models.Order) mailer.Message) {
	order, err := c.orders.GetByCode(ctx, code)
	if err != nil {
		c.logg.Error(logCtx, "load order for email", err)
		return
	}
	if order.Email == "" {
		return
	}
	if err := c.sender.Send(ctx, compose(*order)); err != nil {
		c.logg.Error(logCtx, "send order email", err)
	}
}

type orderCreatedPayload struct {
	OrderID    uuid.UUID           `json:"order_id"`
	Code       string              `json:"code"`
	Method     enums.PaymentMethod `json:"method"`
	TotalPrice int64               `json:"total_price"`
}

type orderCancelledPayload struct {
	Code     string `json:"code"`
	Reason   string `json:"reason"`
	Refunded bool   `json:"refunded"`
}

type paymentConfirmedPayload struct {
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
}
