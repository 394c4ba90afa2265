package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aforsev/storefront-backend/pkg/config"
	"github.com/aforsev/storefront-backend/pkg/logger"
)

// GuestSession resolves the anonymous session identifier for cart routes.
// The identifier comes from the session cookie, or from the override header
// for clients that cannot carry cookies. When neither is present a new
// session id is minted and set as a cookie so subsequent requests stick to
// the same guest cart. Authenticated requests skip minting.
func GuestSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := strings.TrimSpace(r.Header.Get(cfg.HeaderOverride))
			if sessionID == "" {
				if cookie, err := r.Cookie(cfg.CookieName); err == nil {
					sessionID = strings.TrimSpace(cookie.Value)
				}
			}

			if sessionID == "" && UserIDFromContext(ctx) == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cfg.CookieTTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if sessionID != "" {
				ctx = WithSessionID(ctx, sessionID)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, sessionID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
