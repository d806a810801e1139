package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/api/validators"
	"github.com/thanhcle/lunaria-backend/internal/vouchers"
	"github.com/thanhcle/lunaria-backend/pkg/enums"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

type createVoucherRequest struct {
	Code             string          `json:"code" validate:"required"`
	Title            string          `json:"title" validate:"required"`
	Description      string          `json:"description"`
	DiscountRate     decimal.Decimal `json:"discount_rate" validate:"required"`
	MinOrderPrice    int64           `json:"min_order_price" validate:"min=0"`
	MaxDiscountValue int64           `json:"max_discount_value" validate:"min=0"`
	Quantity         *int            `json:"quantity,omitempty"`
	Type             string          `json:"type" validate:"required"`
	StartAt          time.Time       `json:"start_at" validate:"required"`
	ExpireAt         time.Time       `json:"expire_at" validate:"required"`
}

// AdminCreateVoucher drafts a new voucher for the approval pipeline.
func AdminCreateVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createVoucherRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		voucherType, err := enums.ParseVoucherType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid voucher type"))
			return
		}

		voucher, err := svc.Create(r.Context(), vouchers.CreateInput{
			Code:             req.Code,
			Title:            req.Title,
			Description:      req.Description,
			DiscountRate:     req.DiscountRate,
			MinOrderPrice:    req.MinOrderPrice,
			MaxDiscountValue: req.MaxDiscountValue,
			Quantity:         req.Quantity,
			Type:             voucherType,
			StartAt:          req.StartAt,
			ExpireAt:         req.ExpireAt,
			CreatedBy:        actorName(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, voucher)
	}
}

// AdminApproveVoucher moves a draft voucher to the approved state.
func AdminApproveVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voucherID, err := parseIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Approve(r.Context(), voucherID, actorName(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "approved"})
	}
}

// AdminReleaseVoucher opens an approved voucher for claiming.
func AdminReleaseVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voucherID, err := parseIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Release(r.Context(), voucherID, actorName(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "released"})
	}
}

type updateVoucherRequest struct {
	Title            *string          `json:"title,omitempty"`
	Description      *string          `json:"description,omitempty"`
	DiscountRate     *decimal.Decimal `json:"discount_rate,omitempty"`
	MinOrderPrice    *int64           `json:"min_order_price,omitempty"`
	MaxDiscountValue *int64           `json:"max_discount_value,omitempty"`
	Quantity         *int             `json:"quantity,omitempty"`
	StartAt          *time.Time       `json:"start_at,omitempty"`
	ExpireAt         *time.Time       `json:"expire_at,omitempty"`
}

// AdminUpdateVoucher edits an unreleased voucher.
func AdminUpdateVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voucherID, err := parseIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateVoucherRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Update(r.Context(), voucherID, vouchers.UpdateInput{
			Title:            req.Title,
			Description:      req.Description,
			DiscountRate:     req.DiscountRate,
			MinOrderPrice:    req.MinOrderPrice,
			MaxDiscountValue: req.MaxDiscountValue,
			Quantity:         req.Quantity,
			StartAt:          req.StartAt,
			ExpireAt:         req.ExpireAt,
			EditedBy:         actorName(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// AdminDeleteVoucher removes an unreleased voucher.
func AdminDeleteVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voucherID, err := parseIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), voucherID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminGetVoucher returns one voucher for the dashboard.
func AdminGetVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voucherID, err := parseIDParam(r, "voucherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		voucher, err := svc.Get(r.Context(), voucherID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, voucher)
	}
}

// AdminListVouchers returns the paginated voucher pipeline.
func AdminListVouchers(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters vouchers.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseVoucherStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		filters.Query = strings.TrimSpace(r.URL.Query().Get("q"))

		list, err := svc.ListDashboard(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
