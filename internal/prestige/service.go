package prestige

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
)

const (
	// Score bounds and step sizes for delivery outcomes.
	MinScore    = 0
	MaxScore    = 100
	RewardStep  = 10
	PenaltyStep = 30

	// CODThreshold is the minimum score allowed to place a cash-on-delivery
	// order. Buyers below it must prepay.
	CODThreshold = 50
)

// Service adjusts delivery reliability scores for customers and guests.
// Adjustments are single conditional updates clamped inside [MinScore,
// MaxScore], so concurrent carrier callbacks cannot push a score out of range.
type Service interface {
	RewardCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
	PenalizeCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
	RewardGuest(ctx context.Context, tx *gorm.DB, phone, fullName string) error
	PenalizeGuest(ctx context.Context, tx *gorm.DB, phone, fullName string) error
	AllowCOD(ctx context.Context, customerID *uuid.UUID, phone string) error
}

type service struct {
	db *gorm.DB
}

// NewService builds the prestige service bound to the shared DB handle.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &service{db: db}, nil
}

func (s *service) RewardCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	return s.adjustCustomer(ctx, tx, customerID, RewardStep)
}

func (s *service) PenalizeCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	return s.adjustCustomer(ctx, tx, customerID, -PenaltyStep)
}

func (s *service) adjustCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, delta int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for prestige adjustment")
	}
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE customers
		SET prestige = CASE
				WHEN prestige + ? > ? THEN ?
				WHEN prestige + ? < ? THEN ?
				ELSE prestige + ?
			END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, delta, MaxScore, MaxScore, delta, MinScore, MinScore, delta, customerID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust customer prestige")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return nil
}

func (s *service) RewardGuest(ctx context.Context, tx *gorm.DB, phone, fullName string) error {
	return s.adjustGuest(ctx, tx, phone, fullName, RewardStep)
}

func (s *service) PenalizeGuest(ctx context.Context, tx *gorm.DB, phone, fullName string) error {
	return s.adjustGuest(ctx, tx, phone, fullName, -PenaltyStep)
}

// adjustGuest creates the guest row on first contact, then applies the same
// clamped adjustment used for customers. Success and cancellation tallies
// move together with the score.
func (s *service) adjustGuest(ctx context.Context, tx *gorm.DB, phone, fullName string, delta int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for prestige adjustment")
	}
	if phone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest phone required")
	}

	var guest models.Guest
	err := tx.WithContext(ctx).Where("phone = ?", phone).First(&guest).Error
	if err == gorm.ErrRecordNotFound {
		guest = models.Guest{ID: uuid.New(), Phone: phone, FullName: fullName, Prestige: MaxScore}
		if createErr := tx.WithContext(ctx).Create(&guest).Error; createErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create guest")
		}
	} else if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest")
	}

	counter := "total_success"
	if delta < 0 {
		counter = "total_canceled"
	}
	res := tx.WithContext(ctx).Exec(fmt.Sprintf(`
		UPDATE guests
		SET prestige = CASE
				WHEN prestige + ? > ? THEN ?
				WHEN prestige + ? < ? THEN ?
				ELSE prestige + ?
			END,
			%s = %s + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE phone = ?
	`, counter, counter), delta, MaxScore, MaxScore, delta, MinScore, MinScore, delta, phone)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust guest prestige")
	}
	return nil
}

// AllowCOD checks the buyer's score against the cash-on-delivery threshold.
// An unknown guest phone has no history and is allowed.
func (s *service) AllowCOD(ctx context.Context, customerID *uuid.UUID, phone string) error {
	score := MaxScore

	if customerID != nil && *customerID != uuid.Nil {
		var customer models.Customer
		err := s.db.WithContext(ctx).Select("prestige").Where("id = ?", *customerID).First(&customer).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer prestige")
		}
		score = customer.Prestige
	} else if phone != "" {
		var guest models.Guest
		err := s.db.WithContext(ctx).Select("prestige").Where("phone = ?", phone).First(&guest).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest prestige")
		}
		if err == nil {
			score = guest.Prestige
		}
	} else {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id or phone required")
	}

	if score < CODThreshold {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery reliability too low for cash on delivery")
	}
	return nil
}
