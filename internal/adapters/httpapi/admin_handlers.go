package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/domain"
)

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.adminSession(w, r); !ok {
		return
	}
	var q string
	if err := queryParam(r, "q", &q); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	users, err := s.Admin.ListUsers(r.Context(), strings.TrimSpace(q))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, profileFromDomain(u))
	}
	writeJSON(w, http.StatusOK, UserListResponse{Users: out})
}

// PromoteUser sets the profile role and the identity claim of another account.
func (s *Server) PromoteUser(w http.ResponseWriter, r *http.Request) {
	res, _, ok := s.adminSession(w, r)
	if !ok {
		return
	}
	id, err := pathParam(r, "userId")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := res.PromoteToAdmin(r.Context(), domain.UserID(id)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.log.Info("user promoted to admin", zap.String("userId", id))
	writeJSON(w, http.StatusOK, ElevateResponse{Message: "User promoted to admin"})
}

// ListPrincipals and ElevatePrincipal authorize on the caller's token claims, not the
// resolved role.
func (s *Server) ListPrincipals(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	recs, err := s.Admin.ListPrincipals(r.Context(), &p)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]Principal, 0, len(recs))
	for _, rec := range recs {
		out = append(out, principalFromRecord(rec))
	}
	writeJSON(w, http.StatusOK, PrincipalListResponse{Users: out})
}

func (s *Server) ElevatePrincipal(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	uid, err := pathParam(r, "uid")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := s.Admin.ElevatePrincipal(r.Context(), &p, domain.UserID(uid)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ElevateResponse{Message: "Successfully set admin role"})
}
