package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
)

// Line is one (product, size, qty) stock movement.
type Line struct {
	ProductCode string
	Size        string
	Qty         int
}

// Service guards the on-hand counters. Decrement and Restore run inside the
// caller's transaction so a failed line rolls back every other line of the
// same order.
type Service interface {
	CheckAvailability(ctx context.Context, lines []Line) error
	Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error
	Restore(ctx context.Context, tx *gorm.DB, lines []Line) error
}

type service struct {
	db *gorm.DB
}

// NewService builds the inventory service bound to the shared DB handle.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &service{db: db}, nil
}

// CheckAvailability verifies every line references a visible product with
// enough stock. It is a pre-flight read; the authoritative guard is the
// conditional update in Decrement.
func (s *service) CheckAvailability(ctx context.Context, lines []Line) error {
	if err := validateLines(lines); err != nil {
		return err
	}

	for _, line := range lines {
		var product models.Product
		err := s.db.WithContext(ctx).
			Where("code = ?", line.ProductCode).
			First(&product).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductCode))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.Hidden {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("product %s is no longer available", line.ProductCode))
		}

		var item models.InventoryItem
		err = s.db.WithContext(ctx).
			Where("product_code = ? AND size = ?", line.ProductCode, line.Size).
			First(&item).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s has no size %s", line.ProductCode, line.Size))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
		}
		if item.OnHand < line.Qty {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %s size %s", line.ProductCode, line.Size))
		}
	}
	return nil
}

// Decrement reserves stock for every line. Each update only lands when enough
// stock remains, so two concurrent orders cannot both take the last unit; a
// zero row count surfaces as a state conflict and rolls the caller back.
func (s *service) Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory decrement")
	}
	if err := validateLines(lines); err != nil {
		return err
	}

	for _, line := range lines {
		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_items
			SET on_hand = on_hand - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_code = ? AND size = ? AND on_hand >= ?
		`, line.Qty, line.ProductCode, line.Size, line.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement inventory")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %s size %s", line.ProductCode, line.Size))
		}
	}
	return nil
}

// Restore returns previously reserved stock, used when a shipped order is
// returned or a processing order is cancelled. A missing variant row is not
// an error; the product may have been pruned from the catalog since.
func (s *service) Restore(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory restore")
	}
	if err := validateLines(lines); err != nil {
		return err
	}

	for _, line := range lines {
		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_items
			SET on_hand = on_hand + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_code = ? AND size = ?
		`, line.Qty, line.ProductCode, line.Size)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore inventory")
		}
	}
	return nil
}

// LinesFromOrderItems maps persisted line items back to stock movements.
func LinesFromOrderItems(items []models.OrderLineItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{ProductCode: item.ProductCode, Size: item.Size, Qty: item.Qty})
	}
	return lines
}

func validateLines(lines []Line) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	for _, line := range lines {
		if line.ProductCode == "" || line.Size == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "product code and size required")
		}
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return nil
}
