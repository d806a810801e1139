package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// newParamRouter mounts a handler behind a chi route so URL params resolve
// in tests.
func newParamRouter(pattern string, handler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.HandleFunc(pattern, handler)
	return r
}
