package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/api/validators"
	internalorders "github.com/thanhcle/lunaria-backend/internal/orders"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

// parseDateFilter accepts a plain date or a full timestamp.
func parseDateFilter(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// AdminListOrders returns the paginated dashboard order list.
func AdminListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters internalorders.AdminFilters
		query := r.URL.Query()

		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(query.Get("method")); raw != "" {
			method, err := enums.ParsePaymentMethod(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method filter"))
				return
			}
			filters.Method = &method
		}
		if raw := strings.TrimSpace(query.Get("date_from")); raw != "" {
			from, err := parseDateFilter(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_from"))
				return
			}
			filters.DateFrom = &from
		}
		if raw := strings.TrimSpace(query.Get("date_to")); raw != "" {
			to, err := parseDateFilter(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_to"))
				return
			}
			filters.DateTo = &to
		}
		filters.Query = strings.TrimSpace(query.Get("q"))

		switch raw := strings.TrimSpace(query.Get("sort")); raw {
		case "", "newest":
		case "price_asc":
			filters.SortPrice = "asc"
		case "price_desc":
			filters.SortPrice = "desc"
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort"))
			return
		}

		list, err := svc.ListAdmin(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminGetOrder returns one order with its lines for the dashboard.
func AdminGetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		responses.WriteSuccess(w, order)
	}
}

// AdminPostOrder hands a pending order to the carrier.
func AdminPostOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Post(r.Context(), orderID, actorName(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processing"})
	}
}

type adminCancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AdminCancelOrder cancels an order from the dashboard with an audit reason.
func AdminCancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adminCancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.AdminCancel(r.Context(), internalorders.AdminCancelInput{
			OrderID:    orderID,
			Reason:     req.Reason,
			CanceledBy: actorName(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
