package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/api/validators"
	internalorders "github.com/thanhcle/lunaria-backend/internal/orders"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
	"github.com/thanhcle/lunaria-backend/pkg/types"
)

type addressResolver interface {
	ResolveAddress(ctx context.Context, customerID, addressID uuid.UUID) (types.DeliveryAddress, error)
}

type orderLineRequest struct {
	ProductCode string `json:"product_code" validate:"required"`
	Size        string `json:"size" validate:"required"`
	Qty         int    `json:"qty" validate:"required,min=1"`
}

type addressRequest struct {
	Line     string `json:"line" validate:"required"`
	Province string `json:"province" validate:"required"`
	District string `json:"district" validate:"required"`
	Ward     string `json:"ward" validate:"required"`
}

func (a addressRequest) snapshot() types.DeliveryAddress {
	return types.DeliveryAddress{
		Line:     a.Line,
		Province: a.Province,
		District: a.District,
		Ward:     a.Ward,
	}
}

type createOrderRequest struct {
	Email         string             `json:"email" validate:"required,email"`
	ReceiverName  string             `json:"receiver_name" validate:"required"`
	ReceiverPhone string             `json:"receiver_phone" validate:"required"`
	AddressID     *uuid.UUID         `json:"address_id,omitempty"`
	Address       *addressRequest    `json:"address,omitempty"`
	Method        string             `json:"method" validate:"required"`
	VoucherCode   *string            `json:"voucher_code,omitempty"`
	Express       bool               `json:"express"`
	Lines         []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func orderLines(lines []orderLineRequest) []internalorders.LineInput {
	out := make([]internalorders.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, internalorders.LineInput{
			ProductCode: line.ProductCode,
			Size:        line.Size,
			Qty:         line.Qty,
		})
	}
	return out
}

// CreateOrder places an order for the authenticated customer. The delivery
// snapshot comes from a saved address-book entry or an inline address.
func CreateOrder(svc internalorders.Service, addresses addressResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		var address types.DeliveryAddress
		switch {
		case req.AddressID != nil:
			address, err = addresses.ResolveAddress(r.Context(), id, *req.AddressID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		case req.Address != nil:
			address = req.Address.snapshot()
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "an address or a saved address id is required"))
			return
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			CustomerID:    id,
			Email:         req.Email,
			ReceiverName:  req.ReceiverName,
			ReceiverPhone: req.ReceiverPhone,
			Address:       address,
			Method:        method,
			VoucherCode:   req.VoucherCode,
			Express:       req.Express,
			Lines:         orderLines(req.Lines),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type createGuestOrderRequest struct {
	Email         string             `json:"email" validate:"required,email"`
	ReceiverName  string             `json:"receiver_name" validate:"required"`
	ReceiverPhone string             `json:"receiver_phone" validate:"required"`
	Address       addressRequest     `json:"address" validate:"required"`
	Method        string             `json:"method" validate:"required"`
	Express       bool               `json:"express"`
	Lines         []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// CreateGuestOrder places an order without an account. Vouchers are not
// accepted on this surface.
func CreateGuestOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGuestOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.CreateGuest(r.Context(), internalorders.GuestCreateInput{
			Email:         req.Email,
			ReceiverName:  req.ReceiverName,
			ReceiverPhone: req.ReceiverPhone,
			Address:       req.Address.snapshot(),
			Method:        method,
			Express:       req.Express,
			Lines:         orderLines(req.Lines),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListMyOrders returns the authenticated customer's order history.
func ListMyOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters internalorders.CustomerFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.ListForCustomer(r.Context(), id, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetMyOrder returns one of the authenticated customer's orders.
func GetMyOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.CustomerID == nil || *order.CustomerID != id {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CancelMyOrder cancels one of the authenticated customer's pending orders.
func CancelMyOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CustomerCancel(r.Context(), orderID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

type changeAddressRequest struct {
	Address addressRequest `json:"address" validate:"required"`
}

// ChangeOrderAddress applies the one-shot delivery address edit.
func ChangeOrderAddress(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req changeAddressRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.ChangeAddress(r.Context(), internalorders.ChangeAddressInput{
			OrderID:    orderID,
			CustomerID: id,
			Address:    req.Address.snapshot(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}
