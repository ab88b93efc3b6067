package controllers

import (
	"net/http"

	"github.com/avidal-labs/brewshop-backend/api/middleware"
	"github.com/avidal-labs/brewshop-backend/api/responses"
	"github.com/avidal-labs/brewshop-backend/api/validators"
	identitysvc "github.com/avidal-labs/brewshop-backend/internal/identity"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

type signInRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

// AuthSignIn exchanges a provider access token for a session-bound customer.
func AuthSignIn(svc *identitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload signInRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identity, err := svc.SignIn(r.Context(),
			middleware.SessionIDFromContext(r.Context()), payload.AccessToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, identity)
	}
}

// AuthMe returns the signed-in identity.
func AuthMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, middleware.IdentityFromContext(r.Context()))
	}
}

// AuthSignOut destroys the session, cart included.
func AuthSignOut(svc *identitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := middleware.SessionIDFromContext(r.Context())
		if err := svc.SignOut(r.Context(), sid); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "signed out"})
	}
}
