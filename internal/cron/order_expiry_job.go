package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/thanhcle/lunaria-backend/internal/orders"
	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

const (
	systemCanceller = "system"

	// An unpaid gateway order blocks its voucher and clutters the dashboard,
	// so it is swept sooner than a plain stale order.
	pendingUnpaidDays   = 2
	orderExpirationDays = 10
)

// OrderExpiryJobParams configure the stale pending order sweeper.
type OrderExpiryJobParams struct {
	Logger     *logger.Logger
	Reader     staleOrderReader
	Orders     orderCanceller
	UnpaidDays int
	ExpireDays int
}

type staleOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderCanceller interface {
	AdminCancel(ctx context.Context, input orders.AdminCancelInput) error
}

// NewOrderExpiryJob builds the job that cancels stale pending orders: gateway
// orders the customer never paid, and any pending order past the expiration
// window.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	unpaidDays := params.UnpaidDays
	if unpaidDays <= 0 {
		unpaidDays = pendingUnpaidDays
	}
	expireDays := params.ExpireDays
	if expireDays <= 0 {
		expireDays = orderExpirationDays
	}
	return &orderExpiryJob{
		logg:       params.Logger,
		reader:     params.Reader,
		orders:     params.Orders,
		unpaidDays: unpaidDays,
		expireDays: expireDays,
		now:        time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg       *logger.Logger
	reader     staleOrderReader
	orders     orderCanceller
	unpaidDays int
	expireDays int
	now        func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	unpaidCutoff := now.Add(-time.Duration(j.unpaidDays) * 24 * time.Hour)
	expireCutoff := now.Add(-time.Duration(j.expireDays) * 24 * time.Hour)

	stale, err := j.reader.FindPendingBefore(ctx, unpaidCutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	expired, unpaid := 0, 0
	for _, order := range stale {
		reason := ""
		switch {
		case !order.CreatedAt.After(expireCutoff):
			reason = enums.CancelReasonOrderExpired
		case order.Payment.Method == enums.PaymentMethodVNPay && !order.Payment.Paid:
			reason = enums.CancelReasonUnpaid
		default:
			continue
		}
		err := j.orders.AdminCancel(ctx, orders.AdminCancelInput{
			OrderID:    order.ID,
			Reason:     reason,
			CanceledBy: systemCanceller,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("cancel order %s: %w", order.Code, err))
			continue
		}
		if reason == enums.CancelReasonOrderExpired {
			expired++
		} else {
			unpaid++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": len(stale),
		"expired": expired,
		"unpaid":  unpaid,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return multierr.Combine(errs...)
}
