package controllers

import (
	"net/http"

	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/api/validators"
	"github.com/thanhcle/lunaria-backend/internal/shipping"
	"github.com/thanhcle/lunaria-backend/pkg/db/models"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
	"github.com/thanhcle/lunaria-backend/pkg/types"
)

type shippingFeeRequest struct {
	Line     string `json:"line" validate:"required"`
	Province string `json:"province" validate:"required"`
	District string `json:"district" validate:"required"`
	Value    int64  `json:"value" validate:"min=0"`
	Units    int    `json:"units" validate:"required,min=1"`
	Express  bool   `json:"express"`
}

// ShippingFee quotes the carrier fee for a prospective delivery so checkout
// can show it before the order exists.
func ShippingFee(gateway *shipping.Gateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shippingFeeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft := models.Order{
			TotalPrice: req.Value,
			DeliveryAddress: types.DeliveryAddress{
				Line:     req.Line,
				Province: req.Province,
				District: req.District,
			},
			Items: []models.OrderLineItem{{Qty: req.Units}},
		}

		fee, err := gateway.QuoteFee(r.Context(), draft, req.Express)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"fee": fee})
	}
}
