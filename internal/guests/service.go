package guests

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/pagination"
)

// List wraps a page of guest records for the admin dashboard.
type List struct {
	Guests []models.Guest `json:"guests"`
	Total  int64          `json:"total"`
	Pages  int            `json:"pages"`
}

// Service exposes the guest reliability records tracked by phone number.
type Service interface {
	FindByPhone(ctx context.Context, phone string) (*models.Guest, error)
	ListAdmin(ctx context.Context, params pagination.Params, query string) (*List, error)
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

func (s *service) FindByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number required")
	}
	var guest models.Guest
	err := s.db.WithContext(ctx).Where("phone = ?", trimmed).First(&guest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "guest not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest")
	}
	return &guest, nil
}

// ListAdmin pages through guest records, optionally filtered by a phone or
// name fragment.
func (s *service) ListAdmin(ctx context.Context, params pagination.Params, query string) (*List, error) {
	params = params.Normalize()

	scope := s.db.WithContext(ctx).Model(&models.Guest{})
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		scope = scope.Where("phone LIKE ? OR LOWER(full_name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count guests")
	}

	var guests []models.Guest
	err := scope.Order("updated_at DESC").
		Offset(params.Offset()).
		Limit(params.Size).
		Find(&guests).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list guests")
	}

	return &List{Guests: guests, Total: total, Pages: params.Pages(total)}, nil
}
