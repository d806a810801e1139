package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/internal/shipping"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

// ghtkCallbackRequest mirrors the carrier's callback payload. Fields the
// lifecycle does not act on (weight, fee, pick_money) are accepted and
// ignored rather than rejected, since the carrier controls the schema.
type ghtkCallbackRequest struct {
	PartnerID  string `json:"partner_id"`
	LabelID    string `json:"label_id"`
	StatusID   int    `json:"status_id"`
	ReasonCode string `json:"reason_code"`
	Reason     string `json:"reason"`
}

// GHTKCallback applies a carrier status push to the order it references.
// The carrier retries on non-2xx, so state conflicts from out-of-order or
// replayed pushes are acknowledged instead of failed.
func GHTKCallback(svc shipping.CallbackService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ghtkCallbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}

		err := svc.HandleCallback(r.Context(), shipping.Callback{
			OrderCode:  req.PartnerID,
			Label:      req.LabelID,
			StatusID:   req.StatusID,
			Reason:     req.Reason,
			ReasonCode: req.ReasonCode,
		})
		if err != nil {
			if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeStateConflict {
				if logg != nil {
					logg.Warn(logg.WithFields(r.Context(), map[string]any{
						"order_code": req.PartnerID,
						"status_id":  req.StatusID,
					}), "carrier callback ignored on state conflict")
				}
				responses.WriteSuccess(w, map[string]string{"status": "ignored"})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
