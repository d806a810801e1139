package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

func TestVoucherMaintenanceJobRunsAllPhases(t *testing.T) {
	vouchers := &fakeVoucherMaintainer{}
	jobIface, err := NewVoucherMaintenanceJob(VoucherMaintenanceJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Vouchers: vouchers,
	})
	if err != nil {
		t.Fatalf("NewVoucherMaintenanceJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vouchers.releaseCalls != 1 || vouchers.expireCalls != 1 || vouchers.purgeCalls != 1 {
		t.Fatalf("expected each phase once, got release=%d expire=%d purge=%d",
			vouchers.releaseCalls, vouchers.expireCalls, vouchers.purgeCalls)
	}
}

func TestVoucherMaintenanceJobContinuesPastPhaseFailure(t *testing.T) {
	vouchers := &fakeVoucherMaintainer{releaseErr: errors.New("boom")}
	jobIface, err := NewVoucherMaintenanceJob(VoucherMaintenanceJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Vouchers: vouchers,
	})
	if err != nil {
		t.Fatalf("NewVoucherMaintenanceJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected combined error")
	}
	if vouchers.expireCalls != 1 || vouchers.purgeCalls != 1 {
		t.Fatalf("later phases should still run, got expire=%d purge=%d",
			vouchers.expireCalls, vouchers.purgeCalls)
	}
}

type fakeVoucherMaintainer struct {
	releaseCalls int
	expireCalls  int
	purgeCalls   int
	releaseErr   error
}

func (f *fakeVoucherMaintainer) ReleaseDue(context.Context, time.Time) (int, error) {
	f.releaseCalls++
	return 2, f.releaseErr
}

func (f *fakeVoucherMaintainer) ExpireDue(context.Context, time.Time) (int64, error) {
	f.expireCalls++
	return 1, nil
}

func (f *fakeVoucherMaintainer) PurgeExpired(context.Context, time.Time) (int64, error) {
	f.purgeCalls++
	return 1, nil
}
