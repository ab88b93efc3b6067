package middleware

import (
	"context"
	"net/http"

	"github.com/avidal-labs/brewshop-backend/api/responses"
	identitysvc "github.com/avidal-labs/brewshop-backend/internal/identity"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

type identityKey struct{}

// Authenticated rejects requests whose session has no bound customer and
// exposes the identity to downstream handlers.
func Authenticated(ids *identitysvc.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, err := ids.Current(ctx, SessionIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			ctx = context.WithValue(ctx, identityKey{}, identity)
			if logg != nil {
				ctx = logg.WithCustomer(ctx, identity.Customer)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity bound by Authenticated, nil when
// the route is public.
func IdentityFromContext(ctx context.Context) *identitysvc.Identity {
	identity, _ := ctx.Value(identityKey{}).(*identitysvc.Identity)
	return identity
}
