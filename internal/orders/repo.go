package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	"github.com/thanhcle/lunaria-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerFilters) (*List, error)
	ListAdmin(ctx context.Context, params pagination.Params, filters AdminFilters) (*List, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	RemoveCartLines(ctx context.Context, customerID uuid.UUID, lines []LineInput) error
	FindProductByCode(ctx context.Context, code string) (*models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("code = ?", code).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerFilters) (*List, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Size).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return &List{Orders: rows, Total: total, Pages: params.Pages(total)}, nil
}

func (r *repository) ListAdmin(ctx context.Context, params pagination.Params, filters AdminFilters) (*List, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("code LIKE ? OR receiver_name LIKE ? OR receiver_phone LIKE ?", like, like, like)
	}
	if filters.Method != nil {
		query = query.Where("payment->>'method' = ?", string(*filters.Method))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	sort := "created_at DESC"
	switch filters.SortPrice {
	case "asc":
		sort = "total_price ASC"
	case "desc":
		sort = "total_price DESC"
	}

	var rows []models.Order
	err := query.
		Preload("Items").
		Order(sort).
		Offset(params.Offset()).
		Limit(params.Size).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return &List{Orders: rows, Total: total, Pages: params.Pages(total)}, nil
}

// FindPendingBefore returns pending orders created before the cutoff, oldest
// first. Used by the expiry sweep.
func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// RemoveCartLines drops the cart items matched by a new order so the cart
// reflects what is left to buy.
func (r *repository) RemoveCartLines(ctx context.Context, customerID uuid.UUID, lines []LineInput) error {
	if len(lines) == 0 {
		return nil
	}

	var cart models.Cart
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&cart).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	for _, line := range lines {
		err := r.db.WithContext(ctx).
			Where("cart_id = ? AND product_code = ? AND size = ?", cart.ID, line.ProductCode, line.Size).
			Delete(&models.CartItem{}).Error
		if err != nil {
			return err
		}
	}

	return r.db.WithContext(ctx).Exec(`
		UPDATE carts
		SET total_price = COALESCE((
			SELECT SUM(unit_price * qty) FROM cart_items WHERE cart_id = carts.id
		), 0),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, cart.ID).Error
}
