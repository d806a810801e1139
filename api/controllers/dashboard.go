package controllers

import (
	"net/http"
	"time"

	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/internal/dashboard"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

// DashboardSummary returns the revenue and order-status snapshot.
func DashboardSummary(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.Summarize(r.Context(), time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
