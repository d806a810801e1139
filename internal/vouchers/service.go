package vouchers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/thanhcle/lunaria-backend/pkg/db"
	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/outbox"
	"github.com/thanhcle/lunaria-backend/pkg/pagination"
)

// ExpiredRetentionDays is how long an expired voucher stays visible before
// the purge sweep removes it.
const ExpiredRetentionDays = 7

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service covers voucher claiming, order-time reservation, and the staff
// dashboard pipeline.
type Service interface {
	Claim(ctx context.Context, customerID uuid.UUID, code string) error
	ClaimAll(ctx context.Context, customerID uuid.UUID) (int, error)
	Wallet(ctx context.Context, customerID uuid.UUID) ([]WalletVoucher, error)
	Recommend(ctx context.Context, customerID uuid.UUID, orderAmount int64) ([]Recommendation, error)

	Reserve(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, code string, orderAmount int64) (int64, error)
	Return(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, code string) error

	Create(ctx context.Context, input CreateInput) (*models.Voucher, error)
	Approve(ctx context.Context, id uuid.UUID, approvedBy string) error
	Release(ctx context.Context, id uuid.UUID, releasedBy string) error
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	ListDashboard(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error)

	ReleaseDue(ctx context.Context, now time.Time) (int, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the voucher service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vouchers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, now: time.Now}, nil
}

// Claim puts a released voucher into the customer's wallet. A finite pool is
// drained by a conditional decrement, so the last unit is claimed exactly
// once even under concurrent requests; a duplicate claim dies on the wallet's
// unique (customer, voucher) constraint.
func (s *service) Claim(ctx context.Context, customerID uuid.UUID, code string) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "voucher code required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		voucher, err := repo.FindByCode(ctx, code)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
		}
		if err := claimable(*voucher, s.now()); err != nil {
			return err
		}

		if voucher.Type == enums.VoucherTypeLimited {
			taken, err := repo.DecrementQuantity(ctx, voucher.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement voucher quantity")
			}
			if !taken {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher is out of stock")
			}
		}

		entry := &models.WalletEntry{
			ID:         uuid.New(),
			CustomerID: customerID,
			VoucherID:  voucher.ID,
		}
		if err := repo.CreateWalletEntry(ctx, entry); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_wallet_entries_customer_voucher") {
				return pkgerrors.New(pkgerrors.CodeConflict, "voucher already claimed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVoucherClaimed,
			AggregateType: enums.AggregateVoucher,
			AggregateID:   voucher.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{CustomerID: customerID.String(), Role: string(enums.RoleCustomer)},
			Data: ClaimedEvent{
				VoucherID:   voucher.ID,
				VoucherCode: voucher.Code,
				CustomerID:  customerID,
			},
		})
	})
}

// ClaimAll grabs every voucher the customer can still claim. Per-voucher
// failures (exhausted pool, already claimed) are skipped, not fatal.
func (s *service) ClaimAll(ctx context.Context, customerID uuid.UUID) (int, error) {
	if customerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	available := enums.VoucherStatusAvailable
	listing, err := s.repo.List(ctx, pagination.Params{Size: pagination.MaxSize}, ListFilters{Status: &available})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available vouchers")
	}

	claimed := 0
	for _, voucher := range listing.Vouchers {
		if err := s.Claim(ctx, customerID, voucher.Code); err != nil {
			continue
		}
		claimed++
	}
	return claimed, nil
}

func (s *service) Wallet(ctx context.Context, customerID uuid.UUID) ([]WalletVoucher, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	entries, err := s.repo.ListWallet(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet")
	}
	wallet := make([]WalletVoucher, 0, len(entries))
	for _, entry := range entries {
		if entry.Voucher == nil {
			continue
		}
		wallet = append(wallet, WalletVoucher{EntryID: entry.ID, Used: entry.Used, Voucher: *entry.Voucher})
	}
	return wallet, nil
}

// Recommend ranks the customer's unused wallet vouchers by the discount each
// would grant against the order amount, best first.
func (s *service) Recommend(ctx context.Context, customerID uuid.UUID, orderAmount int64) ([]Recommendation, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if orderAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	entries, err := s.repo.ListWallet(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet")
	}

	now := s.now()
	recs := make([]Recommendation, 0, len(entries))
	for _, entry := range entries {
		if entry.Used || entry.Voucher == nil {
			continue
		}
		voucher := *entry.Voucher
		if voucher.Expired(now) || voucher.Status != enums.VoucherStatusAvailable {
			continue
		}
		if orderAmount < voucher.MinOrderPrice {
			continue
		}
		recs = append(recs, Recommendation{
			VoucherCode: voucher.Code,
			Title:       voucher.Title,
			Discount:    voucher.EffectiveDiscount(orderAmount),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Discount > recs[j].Discount })
	return recs, nil
}

// Reserve consumes a wallet voucher for an order being created and returns
// the discount. It runs inside the order's transaction so a failed order
// returns the voucher with the rollback.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, code string, orderAmount int64) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for voucher reservation")
	}
	if customerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	repo := s.repo.WithTx(tx)
	entry, err := repo.FindWalletEntryByCode(ctx, customerID, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not in wallet")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet entry")
	}
	if entry.Voucher == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "wallet entry missing voucher")
	}

	voucher := *entry.Voucher
	now := s.now()
	if voucher.Expired(now) {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "voucher has expired")
	}
	if orderAmount < voucher.MinOrderPrice {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order does not meet the voucher minimum")
	}

	flipped, err := repo.SetWalletEntryUsed(ctx, entry.ID, true)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve wallet entry")
	}
	if !flipped {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "voucher already used")
	}
	return voucher.EffectiveDiscount(orderAmount), nil
}

// Return gives a reserved voucher back to the wallet, used when an order is
// cancelled for a reason attributable to the shop. Returning an entry that
// was never reserved is a no-op.
func (s *service) Return(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, code string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for voucher return")
	}

	repo := s.repo.WithTx(tx)
	entry, err := repo.FindWalletEntryByCode(ctx, customerID, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet entry")
	}
	if _, err := repo.SetWalletEntryUsed(ctx, entry.ID, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return wallet entry")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Voucher, error) {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	if input.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher code required")
	}
	if input.CreatedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "creator identity missing")
	}
	if input.DiscountRate.IsNegative() || input.DiscountRate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount rate must be positive")
	}
	if input.MaxDiscountValue <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max discount value must be positive")
	}
	if !input.ExpireAt.After(input.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be after the start date")
	}
	voucherType := input.Type
	if voucherType == "" {
		voucherType = enums.VoucherTypeLimited
	}
	if voucherType == enums.VoucherTypeLimited {
		if input.Quantity == nil || *input.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "limited voucher requires a positive quantity")
		}
	} else {
		input.Quantity = nil
	}

	voucher := &models.Voucher{
		ID:               uuid.New(),
		Code:             input.Code,
		Title:            input.Title,
		Description:      input.Description,
		DiscountRate:     input.DiscountRate,
		MinOrderPrice:    input.MinOrderPrice,
		MaxDiscountValue: input.MaxDiscountValue,
		Quantity:         input.Quantity,
		Type:             voucherType,
		Status:           enums.VoucherStatusPending,
		StartAt:          input.StartAt,
		ExpireAt:         input.ExpireAt,
		CreatedBy:        input.CreatedBy,
	}
	created, err := s.repo.Create(ctx, voucher)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_vouchers_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "voucher code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create voucher")
	}
	return created, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, approvedBy string) error {
	if approvedBy == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "approver identity missing")
	}
	voucher, err := s.loadVoucher(ctx, id)
	if err != nil {
		return err
	}
	if voucher.Status != enums.VoucherStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only a pending voucher can be approved")
	}
	err = s.repo.Update(ctx, id, map[string]any{
		"status":      enums.VoucherStatusApproved,
		"approved_by": approvedBy,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve voucher")
	}
	return nil
}

// Release opens an approved voucher for claiming. The start date is a hard
// gate; releasing early is refused rather than silently deferred.
func (s *service) Release(ctx context.Context, id uuid.UUID, releasedBy string) error {
	if releasedBy == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "releaser identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		voucher, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
		}
		if voucher.Released {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher already released")
		}
		if voucher.Status != enums.VoucherStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only an approved voucher can be released")
		}
		now := s.now()
		if now.Before(voucher.StartAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher start date has not arrived")
		}
		if voucher.Expired(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher has expired")
		}

		err = repo.Update(ctx, id, map[string]any{
			"status":   enums.VoucherStatusAvailable,
			"released": true,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release voucher")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVoucherReleased,
			AggregateType: enums.AggregateVoucher,
			AggregateID:   voucher.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{Username: releasedBy, Role: string(enums.RoleStaff)},
			Data: ReleasedEvent{
				VoucherID:   voucher.ID,
				VoucherCode: voucher.Code,
				ReleasedBy:  releasedBy,
			},
		})
	})
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) error {
	if input.EditedBy == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "editor identity missing")
	}
	voucher, err := s.loadVoucher(ctx, id)
	if err != nil {
		return err
	}
	if voucher.Released {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "released voucher cannot be edited")
	}

	updates := map[string]any{"edited_by": input.EditedBy}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.DiscountRate != nil {
		if input.DiscountRate.IsNegative() || input.DiscountRate.IsZero() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount rate must be positive")
		}
		updates["discount_rate"] = *input.DiscountRate
	}
	if input.MinOrderPrice != nil {
		updates["min_order_price"] = *input.MinOrderPrice
	}
	if input.MaxDiscountValue != nil {
		updates["max_discount_value"] = *input.MaxDiscountValue
	}
	if input.Quantity != nil {
		if voucher.Type == enums.VoucherTypeUnlimited {
			return pkgerrors.New(pkgerrors.CodeValidation, "unlimited voucher has no quantity")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.StartAt != nil {
		updates["start_at"] = *input.StartAt
	}
	if input.ExpireAt != nil {
		updates["expire_at"] = *input.ExpireAt
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update voucher")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	voucher, err := s.loadVoucher(ctx, id)
	if err != nil {
		return err
	}
	if voucher.Status == enums.VoucherStatusAvailable {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "available voucher cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete voucher")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	return s.loadVoucher(ctx, id)
}

func (s *service) ListDashboard(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error) {
	listing, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vouchers")
	}
	return listing, nil
}

// ReleaseDue is the weekly sweep: every approved voucher whose start date has
// arrived is released, each in its own transaction so one failure does not
// hold back the rest.
func (s *service) ReleaseDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListReleasable(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list releasable vouchers")
	}

	released := 0
	for _, voucher := range due {
		if err := s.Release(ctx, voucher.ID, "system"); err != nil {
			continue
		}
		released++
	}
	return released, nil
}

func (s *service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	expired, err := s.repo.MarkExpired(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark expired vouchers")
	}
	return expired, nil
}

func (s *service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -ExpiredRetentionDays)
	purged, err := s.repo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge expired vouchers")
	}
	return purged, nil
}

func (s *service) loadVoucher(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher id required")
	}
	voucher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
	}
	return voucher, nil
}

func claimable(voucher models.Voucher, now time.Time) error {
	if voucher.Status != enums.VoucherStatusAvailable || !voucher.Released {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher is not open for claiming")
	}
	if now.Before(voucher.StartAt) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher start date has not arrived")
	}
	if voucher.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher has expired")
	}
	return nil
}
