package controllers

import (
	"net/http"
	"strings"

	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/internal/guests"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

// AdminListGuests returns the guest reliability records for the dashboard.
func AdminListGuests(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		list, err := svc.ListAdmin(r.Context(), params, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
