package carts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
)

// AddItemInput carries one line being added to the customer's cart.
type AddItemInput struct {
	ProductCode string
	Size        string
	Qty         int
}

// Service manages the per-customer cart: one cart per account, one line per
// (product, size) pair, total kept in sync with the lines.
type Service interface {
	Get(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*models.Cart, error)
	UpdateItemQty(ctx context.Context, customerID, itemID uuid.UUID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

type service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &service{db: db}, nil
}

// Get returns the customer's cart, creating an empty one on first use.
func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	return s.loadOrCreate(ctx, s.db, customerID)
}

func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.ProductCode == "" || input.Size == "" || input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line needs a product, size and positive quantity")
	}

	var product models.Product
	err := s.db.WithContext(ctx).Where("code = ? AND hidden = ?", input.ProductCode, false).First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", input.ProductCode))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.loadOrCreate(ctx, tx, customerID)
		if err != nil {
			return err
		}

		// Same (product, size) pair merges into the existing line.
		var existing models.CartItem
		err = tx.WithContext(ctx).
			Where("cart_id = ? AND product_code = ? AND size = ?", cart.ID, input.ProductCode, input.Size).
			First(&existing).Error
		switch {
		case err == nil:
			update := tx.WithContext(ctx).Model(&models.CartItem{}).
				Where("id = ?", existing.ID).
				Update("qty", gorm.Expr("qty + ?", input.Qty))
			if update.Error != nil {
				return update.Error
			}
		case err == gorm.ErrRecordNotFound:
			item := models.CartItem{
				ID:          uuid.New(),
				CartID:      cart.ID,
				ProductCode: product.Code,
				Size:        input.Size,
				Qty:         input.Qty,
				UnitPrice:   product.UnitPrice,
			}
			if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return recomputeTotal(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, translateCartError(err)
	}
	return s.Get(ctx, customerID)
}

// UpdateItemQty sets a line's quantity; zero or less removes the line.
func (s *service) UpdateItemQty(ctx context.Context, customerID, itemID uuid.UUID, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, customerID, itemID)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, cartID, err := s.ownedItem(ctx, tx, customerID, itemID)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", item.ID).Update("qty", qty).Error; err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, cartID)
	})
	if err != nil {
		return nil, translateCartError(err)
	}
	return s.Get(ctx, customerID)
}

func (s *service) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*models.Cart, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, cartID, err := s.ownedItem(ctx, tx, customerID, itemID)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("id = ?", item.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, cartID)
	})
	if err != nil {
		return nil, translateCartError(err)
	}
	return s.Get(ctx, customerID)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.WithContext(ctx).Where("customer_id = ?", customerID).First(&cart).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if err := tx.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, cart.ID)
	})
}

func (s *service) loadOrCreate(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := tx.WithContext(ctx).Preload("Items").Where("customer_id = ?", customerID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = models.Cart{ID: uuid.New(), CustomerID: customerID}
	if err := tx.WithContext(ctx).Create(&cart).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return &cart, nil
}

// ownedItem loads a cart item and verifies it belongs to the customer's cart.
func (s *service) ownedItem(ctx context.Context, tx *gorm.DB, customerID, itemID uuid.UUID) (*models.CartItem, uuid.UUID, error) {
	if customerID == uuid.Nil {
		return nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	var cart models.Cart
	if err := tx.WithContext(ctx).Where("customer_id = ?", customerID).First(&cart).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, uuid.Nil, err
	}

	var item models.CartItem
	if err := tx.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cart.ID).First(&item).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, uuid.Nil, err
	}
	return &item, cart.ID, nil
}

func recomputeTotal(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	return tx.WithContext(ctx).Exec(`
		UPDATE carts
		SET total_price = COALESCE((
			SELECT SUM(unit_price * qty) FROM cart_items WHERE cart_id = carts.id
		), 0),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, cartID).Error
}

func translateCartError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
}
