package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/app/admin"
	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/app/clubs"
	"github.com/campus-events/eventhub-api/internal/app/events"
	"github.com/campus-events/eventhub-api/internal/app/session"
	clockport "github.com/campus-events/eventhub-api/internal/ports/out/clock"
	"github.com/campus-events/eventhub-api/internal/ports/out/idempotency"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

type ServerOptions struct {
	// AllowAdminSignup honours role=admin on POST /auth/signup.
	AllowAdminSignup bool
	// PhoneRegion is the default region for phone numbers without a country code.
	PhoneRegion string
	Logger      *zap.Logger
}

// Server is the HTTP adapter. Each authenticated request resumes its own session resolver
// from the verified principal; the registries are shared.
type Server struct {
	Sessions *session.Factory
	Events   *events.Registry
	Clubs    *clubs.Registry
	Admin    *admin.Service
	Identity identity.Provider
	Idem     idempotency.Store

	clk  clockport.Clock
	log  *zap.Logger
	opts ServerOptions
}

func NewServer(
	sessions *session.Factory,
	eventsReg *events.Registry,
	clubsReg *clubs.Registry,
	adminSvc *admin.Service,
	idp identity.Provider,
	idem idempotency.Store,
	clk clockport.Clock,
	opts ServerOptions,
) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "US"
	}
	return &Server{
		Sessions: sessions,
		Events:   eventsReg,
		Clubs:    clubsReg,
		Admin:    adminSvc,
		Identity: idp,
		Idem:     idem,
		clk:      clk,
		log:      opts.Logger,
		opts:     opts,
	}
}

// resumeSession resumes the caller's session. It writes a 401 and returns false when the
// request carries no principal.
func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) (*session.Resolver, identity.Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, apperr.CodeNotAuthenticated, "missing principal", nil)
		return nil, identity.Principal{}, false
	}
	return s.Sessions.Resume(r.Context(), p), p, true
}

// adminSession is resumeSession plus the resolved-role admin check.
func (s *Server) adminSession(w http.ResponseWriter, r *http.Request) (*session.Resolver, identity.Principal, bool) {
	res, p, ok := s.resumeSession(w, r)
	if !ok {
		return nil, p, false
	}
	if !res.IsAdmin() {
		writeError(w, r, http.StatusForbidden, apperr.CodePermissionDenied, "admin role required", nil)
		return nil, p, false
	}
	return res, p, true
}
