package controllers

import (
	"net/http"
	"strings"

	"github.com/thanhcle/lunaria-backend/api/responses"
	"github.com/thanhcle/lunaria-backend/pkg/geo"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

// GeoProvinces proxies the administrative-unit lookup used by address forms.
func GeoProvinces(client *geo.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		units, err := client.Provinces(r.Context(), strings.TrimSpace(r.URL.Query().Get("name")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, units)
	}
}

func GeoDistricts(client *geo.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		units, err := client.Districts(r.Context(), strings.TrimSpace(query.Get("province_id")), strings.TrimSpace(query.Get("name")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, units)
	}
}

func GeoWards(client *geo.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		units, err := client.Wards(r.Context(), strings.TrimSpace(query.Get("district_id")), strings.TrimSpace(query.Get("name")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, units)
	}
}
