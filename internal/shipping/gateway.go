package shipping

import (
	"context"
	"fmt"

	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/ghtk"
)

// The carrier prices by weight but the catalog does not carry one, so every
// unit is declared at a flat garment weight.
const (
	unitWeightKg    = 0.5
	unitWeightGrams = 500
)

type carrierAPI interface {
	PostShipment(ctx context.Context, req ghtk.ShipmentRequest) (string, error)
	CancelShipment(ctx context.Context, label string) error
	ShipmentFee(ctx context.Context, req ghtk.FeeRequest) (int64, error)
}

// Gateway adapts the carrier client to the order flow: fee quotes at
// creation, dispatch at posting, cancellation on abort.
type Gateway struct {
	carrier carrierAPI
}

func NewGateway(carrier carrierAPI) (*Gateway, error) {
	if carrier == nil {
		return nil, fmt.Errorf("carrier client required")
	}
	return &Gateway{carrier: carrier}, nil
}

func (g *Gateway) QuoteFee(ctx context.Context, order models.Order, express bool) (int64, error) {
	fee, err := g.carrier.ShipmentFee(ctx, ghtk.FeeRequest{
		Address:  order.DeliveryAddress.Line,
		Province: order.DeliveryAddress.Province,
		District: order.DeliveryAddress.District,
		Weight:   totalUnits(order.Items) * unitWeightGrams,
		Value:    order.TotalPrice,
		Express:  express,
	})
	if err != nil {
		return 0, err
	}
	return fee, nil
}

// Dispatch hands the order to the carrier and returns the shipment label.
// The courier collects the payable amount for cash orders and nothing for
// settled gateway orders.
func (g *Gateway) Dispatch(ctx context.Context, order models.Order) (string, error) {
	if len(order.Items) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order has no line items to ship")
	}

	products := make([]ghtk.ShipmentProduct, 0, len(order.Items))
	for _, item := range order.Items {
		products = append(products, ghtk.ShipmentProduct{
			Name:     item.DisplayName,
			Price:    item.UnitPrice,
			Quantity: item.Qty,
			Weight:   unitWeightKg,
		})
	}

	var pickMoney int64
	if order.Payment.Method == enums.PaymentMethodCOD {
		pickMoney = order.PayableAmount()
	}

	express := false
	if order.Shipping != nil {
		express = order.Shipping.Express
	}

	return g.carrier.PostShipment(ctx, ghtk.ShipmentRequest{
		OrderID:   order.Code,
		Products:  products,
		Name:      order.ReceiverName,
		Tel:       order.ReceiverPhone,
		Address:   order.DeliveryAddress.Line,
		Province:  order.DeliveryAddress.Province,
		District:  order.DeliveryAddress.District,
		Ward:      order.DeliveryAddress.Ward,
		PickMoney: pickMoney,
		Value:     order.TotalPrice,
		Express:   express,
	})
}

func (g *Gateway) CancelShipment(ctx context.Context, shippingID string) error {
	return g.carrier.CancelShipment(ctx, shippingID)
}

func totalUnits(items []models.OrderLineItem) int64 {
	var total int64
	for _, item := range items {
		total += int64(item.Qty)
	}
	return total
}
