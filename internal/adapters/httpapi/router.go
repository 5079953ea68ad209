package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware guards every route that needs a principal. Required.
	AuthMiddleware func(http.Handler) http.Handler
	// Logger receives one line per request. Nil disables request logging.
	Logger *zap.Logger
	// LocalAccounts mounts /auth/signup and /auth/login. Leave it off when tokens come
	// from an external issuer.
	LocalAccounts bool
}

// NewRouter constructs the API HTTP router with local accounts enabled.
func NewRouter(s *Server, auth func(http.Handler) http.Handler) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{AuthMiddleware: auth, Logger: s.log, LocalAccounts: true})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Baseline middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// Unauthenticated health check.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Public reads.
	r.Get("/events", s.ListEvents)
	r.Get("/events/{eventId}", s.GetEvent)
	r.Get("/clubs", s.ListClubs)
	r.Get("/clubs/{clubId}/events", s.ListClubEvents)
	if opts.LocalAccounts {
		r.Post("/auth/signup", s.Signup)
		r.Post("/auth/login", s.Login)
	}

	r.Group(func(r chi.Router) {
		r.Use(opts.AuthMiddleware)

		r.Post("/auth/logout", s.Logout)
		r.Post("/auth/refresh", s.RefreshToken)
		r.Get("/me", s.GetMe)
		r.Patch("/me", s.UpdateMe)

		r.Post("/events", s.CreateEvent)
		r.Delete("/events/{eventId}", s.DeleteEvent)
		r.Post("/events/{eventId}/registration", s.RegisterForEvent)
		r.Delete("/events/{eventId}/registration", s.UnregisterFromEvent)

		r.Post("/clubs", s.CreateClub)

		r.Get("/admin/users", s.ListUsers)
		r.Post("/admin/users/{userId}/promote", s.PromoteUser)
		r.Get("/admin/principals", s.ListPrincipals)
		r.Post("/admin/principals/{uid}/elevate", s.ElevatePrincipal)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("requestId", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
