package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

type VoucherMaintenanceJobParams struct {
	Logger   *logger.Logger
	Vouchers voucherMaintainer
}

type voucherMaintainer interface {
	ReleaseDue(ctx context.Context, now time.Time) (int, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// NewVoucherMaintenanceJob builds the job that walks vouchers through their
// scheduled lifecycle: releasing ones whose start date arrived, expiring ones
// past their end date, and purging expired ones past the retention window.
func NewVoucherMaintenanceJob(params VoucherMaintenanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Vouchers == nil {
		return nil, fmt.Errorf("voucher service required")
	}
	return &voucherMaintenanceJob{
		logg:     params.Logger,
		vouchers: params.Vouchers,
		now:      time.Now,
	}, nil
}

type voucherMaintenanceJob struct {
	logg     *logger.Logger
	vouchers voucherMaintainer
	now      func() time.Time
}

func (j *voucherMaintenanceJob) Name() string { return "voucher-maintenance" }

func (j *voucherMaintenanceJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs []error

	released, err := j.vouchers.ReleaseDue(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("release due vouchers: %w", err))
	}
	expired, err := j.vouchers.ExpireDue(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire due vouchers: %w", err))
	}
	purged, err := j.vouchers.PurgeExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge expired vouchers: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"released": released,
		"expired":  expired,
		"purged":   purged,
	})
	j.logg.Info(logCtx, "voucher maintenance complete")
	return multierr.Combine(errs...)
}
