package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/types"
)

// ProfileUpdate carries the editable profile fields; nil leaves a field
// unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// AddressInput carries one address-book entry.
type AddressInput struct {
	Line     string
	Province string
	District string
	Ward     string
}

// Service covers the account profile and the saved address book the checkout
// flow snapshots from.
type Service interface {
	Profile(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
	UpdateProfile(ctx context.Context, customerID uuid.UUID, update ProfileUpdate) (*models.Customer, error)

	AddAddress(ctx context.Context, customerID uuid.UUID, input AddressInput) (*models.CustomerAddress, error)
	UpdateAddress(ctx context.Context, customerID, addressID uuid.UUID, input AddressInput) (*models.CustomerAddress, error)
	RemoveAddress(ctx context.Context, customerID, addressID uuid.UUID) error
	// ResolveAddress turns a saved address into the delivery snapshot an
	// order captures.
	ResolveAddress(ctx context.Context, customerID, addressID uuid.UUID) (types.DeliveryAddress, error)
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

func (s *service) Profile(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	var customer models.Customer
	err := s.db.WithContext(ctx).Preload("Addresses").Where("id = ?", customerID).First(&customer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return &customer, nil
}

func (s *service) UpdateProfile(ctx context.Context, customerID uuid.UUID, update ProfileUpdate) (*models.Customer, error) {
	fields := map[string]any{}
	if update.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		fields["phone"] = strings.TrimSpace(*update.Phone)
	}
	if len(fields) == 0 {
		return s.Profile(ctx, customerID)
	}

	result := s.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", customerID).Updates(fields)
	if result.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update customer")
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return s.Profile(ctx, customerID)
}

func (s *service) AddAddress(ctx context.Context, customerID uuid.UUID, input AddressInput) (*models.CustomerAddress, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if err := validateAddress(input); err != nil {
		return nil, err
	}

	address := models.CustomerAddress{
		ID:         uuid.New(),
		CustomerID: customerID,
		Line:       strings.TrimSpace(input.Line),
		Province:   strings.TrimSpace(input.Province),
		District:   strings.TrimSpace(input.District),
		Ward:       strings.TrimSpace(input.Ward),
	}
	if err := s.db.WithContext(ctx).Create(&address).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save address")
	}
	return &address, nil
}

func (s *service) UpdateAddress(ctx context.Context, customerID, addressID uuid.UUID, input AddressInput) (*models.CustomerAddress, error) {
	if err := validateAddress(input); err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&models.CustomerAddress{}).
		Where("id = ? AND customer_id = ?", addressID, customerID).
		Updates(map[string]any{
			"line":     strings.TrimSpace(input.Line),
			"province": strings.TrimSpace(input.Province),
			"district": strings.TrimSpace(input.District),
			"ward":     strings.TrimSpace(input.Ward),
		})
	if result.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update address")
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return s.findAddress(ctx, customerID, addressID)
}

func (s *service) RemoveAddress(ctx context.Context, customerID, addressID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", addressID, customerID).
		Delete(&models.CustomerAddress{})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "delete address")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

func (s *service) ResolveAddress(ctx context.Context, customerID, addressID uuid.UUID) (types.DeliveryAddress, error) {
	address, err := s.findAddress(ctx, customerID, addressID)
	if err != nil {
		return types.DeliveryAddress{}, err
	}
	return types.DeliveryAddress{
		AddressID: address.ID.String(),
		Line:      address.Line,
		Province:  address.Province,
		District:  address.District,
		Ward:      address.Ward,
	}, nil
}

func (s *service) findAddress(ctx context.Context, customerID, addressID uuid.UUID) (*models.CustomerAddress, error) {
	var address models.CustomerAddress
	err := s.db.WithContext(ctx).Where("id = ? AND customer_id = ?", addressID, customerID).First(&address).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return &address, nil
}

func validateAddress(input AddressInput) error {
	if strings.TrimSpace(input.Line) == "" ||
		strings.TrimSpace(input.Province) == "" ||
		strings.TrimSpace(input.District) == "" ||
		strings.TrimSpace(input.Ward) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address needs a line, province, district and ward")
	}
	return nil
}
