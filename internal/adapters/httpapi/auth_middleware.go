package httpapi

import (
	"net/http"
	"strings"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

// NewAuthMiddleware enforces Authorization: Bearer <token> on the routes it wraps.
//
// On success, it stores the verified principal in request context.
func NewAuthMiddleware(v identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeError(w, r, http.StatusUnauthorized, apperr.CodeNotAuthenticated, "missing Authorization header", nil)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, http.StatusUnauthorized, apperr.CodeNotAuthenticated, "malformed Authorization header", nil)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, apperr.CodeNotAuthenticated, "missing bearer token", nil)
				return
			}

			p, err := v.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, apperr.CodeUnauthenticated, "invalid token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit subject via X-Debug-Subject and stores it in request context.
// X-Debug-Role sets the role claim and X-Debug-Email the email.
// If the subject header is absent, it falls back to defaultSubject (if provided).
//
// Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, apperr.CodeNotAuthenticated, "missing subject (set X-Debug-Subject)", nil)
				return
			}

			p := identity.Principal{
				ID:    domain.UserID(sub),
				Email: strings.TrimSpace(r.Header.Get("X-Debug-Email")),
			}
			if role := domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get("X-Debug-Role")))); role != "" {
				p.Claims.Role = role
				p.Claims.Admin = role == domain.RoleAdmin
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
