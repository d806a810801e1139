package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/thanhcle/lunaria-backend/api/middleware"
	"github.com/thanhcle/lunaria-backend/api/validators"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/pagination"
)

// customerID extracts the authenticated customer's id from the request
// context. The auth middleware guarantees the value parses on happy paths.
func customerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid customer identity")
	}
	return id, nil
}

// actorName returns the staff display name carried in the token, falling
// back to the user id so audit columns are never empty.
func actorName(r *http.Request) string {
	if username := middleware.UsernameFromContext(r.Context()); username != "" {
		return username
	}
	return middleware.UserIDFromContext(r.Context())
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return pagination.Params{}, err
	}
	size, err := validators.ParseQueryInt(r, "size", pagination.DefaultSize, 1, pagination.MaxSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Size: size}, nil
}
