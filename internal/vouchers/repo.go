package vouchers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	"github.com/thanhcle/lunaria-backend/pkg/pagination"
)

// Repository defines persistence operations for the voucher pool and wallets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, voucher *models.Voucher) (*models.Voucher, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error

	DecrementQuantity(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementQuantity(ctx context.Context, id uuid.UUID) error
	ListReleasable(ctx context.Context, now time.Time) ([]models.Voucher, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)

	CreateWalletEntry(ctx context.Context, entry *models.WalletEntry) error
	FindWalletEntry(ctx context.Context, customerID, voucherID uuid.UUID) (*models.WalletEntry, error)
	FindWalletEntryByCode(ctx context.Context, customerID uuid.UUID, code string) (*models.WalletEntry, error)
	ListWallet(ctx context.Context, customerID uuid.UUID) ([]models.WalletEntry, error)
	SetWalletEntryUsed(ctx context.Context, entryID uuid.UUID, used bool) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a voucher repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, voucher *models.Voucher) (*models.Voucher, error) {
	if err := r.db.WithContext(ctx).Create(voucher).Error; err != nil {
		return nil, err
	}
	return voucher, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&voucher).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&voucher).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Voucher{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("code LIKE ? OR title LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Voucher
	err := query.
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Size).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return &List{Vouchers: rows, Total: total, Pages: params.Pages(total)}, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Voucher{}).Error
}

// DecrementQuantity takes one unit from a finite pool. The conditional
// predicate makes the last unit go to exactly one claimer; false means the
// pool is exhausted.
func (r *repository) DecrementQuantity(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE vouchers
		SET quantity = quantity - 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity > 0
	`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) IncrementQuantity(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE vouchers
		SET quantity = quantity + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity IS NOT NULL
	`, id).Error
}

func (r *repository) ListReleasable(ctx context.Context, now time.Time) ([]models.Voucher, error) {
	var rows []models.Voucher
	err := r.db.WithContext(ctx).
		Where("status = ? AND released = ? AND start_at <= ?", enums.VoucherStatusApproved, false, now).
		Find(&rows).Error
	return rows, err
}

func (r *repository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("expire_at < ? AND status <> ?", now, enums.VoucherStatusExpired).
		Updates(map[string]any{"status": enums.VoucherStatusExpired})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND expire_at < ?", enums.VoucherStatusExpired, cutoff).
		Delete(&models.Voucher{})
	return res.RowsAffected, res.Error
}

func (r *repository) CreateWalletEntry(ctx context.Context, entry *models.WalletEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindWalletEntry(ctx context.Context, customerID, voucherID uuid.UUID) (*models.WalletEntry, error) {
	var entry models.WalletEntry
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND voucher_id = ?", customerID, voucherID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindWalletEntryByCode(ctx context.Context, customerID uuid.UUID, code string) (*models.WalletEntry, error) {
	var entry models.WalletEntry
	err := r.db.WithContext(ctx).
		Preload("Voucher").
		Joins("JOIN vouchers ON vouchers.id = wallet_entries.voucher_id").
		Where("wallet_entries.customer_id = ? AND vouchers.code = ?", customerID, code).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListWallet(ctx context.Context, customerID uuid.UUID) ([]models.WalletEntry, error) {
	var entries []models.WalletEntry
	err := r.db.WithContext(ctx).
		Preload("Voucher").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// SetWalletEntryUsed flips the reservation flag; the predicate refuses a
// no-op flip so double spends and double returns both surface as false.
func (r *repository) SetWalletEntryUsed(ctx context.Context, entryID uuid.UUID, used bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WalletEntry{}).
		Where("id = ? AND used = ?", entryID, !used).
		Updates(map[string]any{"used": used})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
