package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/api/middleware"
	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/api/validators"
	"github.com/thanhcle/lunaria-backend/internal/payments"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

type payURLRequest struct {
	OrderCode string `json:"order_code" validate:"required"`
	BankCode  string `json:"bank_code,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// PaymentPayURL builds the gateway checkout redirect for an unpaid order.
// On the authenticated surface the order must belong to the caller; the
// guest surface skips the ownership check because guest orders carry no
// account.
func PaymentPayURL(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req payURLRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := payments.PayURLInput{
			OrderCode: req.OrderCode,
			IPAddr:    middleware.ClientIP(r),
			BankCode:  req.BankCode,
			Locale:    req.Locale,
		}
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CustomerID = &id
		}

		payURL, err := svc.PayURL(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"pay_url": payURL})
	}
}

// VNPayReturn verifies the gateway redirect back and settles the order when
// the payment succeeded. The gateway may replay the redirect; settlement is
// conditional so a replay is harmless.
func VNPayReturn(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := svc.HandleReturn(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}
