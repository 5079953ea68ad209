package httpapi

import (
	"net/http"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/app/session"
	"github.com/campus-events/eventhub-api/internal/domain"
)

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := req.normalize(s.opts.PhoneRegion); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if domain.Role(req.Role) == domain.RoleAdmin && !s.opts.AllowAdminSignup {
		writeError(w, r, http.StatusForbidden, apperr.CodePermissionDenied, "admin signup is disabled", map[string]any{"role": "admin not allowed"})
		return
	}

	res := s.Sessions.New()
	u, err := res.Signup(r.Context(), string(req.Email), req.Password, session.SignupProfile{
		Name:     req.Name,
		Phone:    req.Phone,
		Location: req.Location,
		Bio:      req.Bio,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	p, _ := res.Principal()
	writeJSON(w, http.StatusCreated, SessionResponse{
		Token:     p.Token,
		ExpiresAt: p.Claims.ExpiresAt,
		User:      meUserFromDomain(u),
	})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	res := s.Sessions.New()
	u, err := res.Login(r.Context(), string(req.Email), req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	p, _ := res.Principal()
	writeJSON(w, http.StatusOK, SessionResponse{
		Token:     p.Token,
		ExpiresAt: p.Claims.ExpiresAt,
		User:      meUserFromDomain(u),
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	res, _, ok := s.resumeSession(w, r)
	if !ok {
		return
	}
	if err := res.Logout(r.Context()); err != nil {
		s.writeAppError(w, r, apperr.Internal("sign out", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshToken issues a new token carrying the account's current custom claims.
func (s *Server) RefreshToken(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, apperr.CodeNotAuthenticated, "missing principal", nil)
		return
	}
	next, err := s.Identity.Refresh(r.Context(), p)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: next.Token, ExpiresAt: next.Claims.ExpiresAt})
}
