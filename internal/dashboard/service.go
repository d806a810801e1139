package dashboard

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
)

const topProductLimit = 10

// TopProduct is one row of the best-seller ranking.
type TopProduct struct {
	ProductCode string `json:"product_code"`
	DisplayName string `json:"display_name"`
	UnitsSold   int64  `json:"units_sold"`
}

// Summary is the admin dashboard snapshot.
type Summary struct {
	RevenueToday    int64                       `json:"revenue_today"`
	RevenueThisWeek int64                       `json:"revenue_this_week"`
	RevenueThisYear int64                       `json:"revenue_this_year"`
	StatusCounts    map[enums.OrderStatus]int64 `json:"status_counts"`
	UnitsSold       int64                       `json:"units_sold"`
	TopProducts     []TopProduct                `json:"top_products"`
}

// Service aggregates order data for the admin dashboard. Revenue counts only
// delivered orders, net of voucher discounts and excluding shipping fees.
type Service interface {
	Summarize(ctx context.Context, now time.Time) (*Summary, error)
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

func (s *service) Summarize(ctx context.Context, now time.Time) (*Summary, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := startOfWeek(now)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	summary := &Summary{StatusCounts: map[enums.OrderStatus]int64{}}

	var err error
	if summary.RevenueToday, err = s.revenueSince(ctx, dayStart); err != nil {
		return nil, err
	}
	if summary.RevenueThisWeek, err = s.revenueSince(ctx, weekStart); err != nil {
		return nil, err
	}
	if summary.RevenueThisYear, err = s.revenueSince(ctx, yearStart); err != nil {
		return nil, err
	}

	if err = s.countStatuses(ctx, summary.StatusCounts); err != nil {
		return nil, err
	}
	if summary.UnitsSold, err = s.unitsSold(ctx); err != nil {
		return nil, err
	}
	if summary.TopProducts, err = s.topProducts(ctx); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *service) revenueSince(ctx context.Context, since time.Time) (int64, error) {
	var revenue *int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("SUM(total_price - discount_value)").
		Where("status = ? AND created_at >= ?", enums.OrderStatusDelivered, since).
		Scan(&revenue).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}
	if revenue == nil {
		return 0, nil
	}
	return *revenue, nil
}

func (s *service) countStatuses(ctx context.Context, counts map[enums.OrderStatus]int64) error {
	rows := []struct {
		Status enums.OrderStatus
		Total  int64
	}{}
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order statuses")
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return nil
}

func (s *service) unitsSold(ctx context.Context) (int64, error) {
	var units *int64
	err := s.db.WithContext(ctx).Model(&models.OrderLineItem{}).
		Select("SUM(order_line_items.qty)").
		Joins("JOIN orders ON orders.id = order_line_items.order_id").
		Where("orders.status = ?", enums.OrderStatusDelivered).
		Scan(&units).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum units sold")
	}
	if units == nil {
		return 0, nil
	}
	return *units, nil
}

func (s *service) topProducts(ctx context.Context) ([]TopProduct, error) {
	var products []TopProduct
	err := s.db.WithContext(ctx).Model(&models.OrderLineItem{}).
		Select("order_line_items.product_code, MAX(order_line_items.display_name) AS display_name, SUM(order_line_items.qty) AS units_sold").
		Joins("JOIN orders ON orders.id = order_line_items.order_id").
		Where("orders.status = ?", enums.OrderStatusDelivered).
		Group("order_line_items.product_code").
		Order("units_sold DESC").
		Limit(topProductLimit).
		Scan(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank products")
	}
	return products, nil
}

// startOfWeek returns midnight Monday of the week containing t.
func startOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
