package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

type sessionIDKey struct{}

// Session guarantees every request carries a browser session id. First-time
// visitors get a fresh cookie; the id rides the request context from here on.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				sid = cookie.Value
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionIDKey{}, sid)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sid)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the browser session id bound by Session.
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey{}).(string)
	return sid
}
