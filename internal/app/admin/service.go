package admin

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/app/session"
	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

// Service implements the privileged callables. Access is decided from the caller's token
// claims alone, never from the profile document.
type Service struct {
	idp   identity.Provider
	store docstore.Store
	log   *zap.Logger
}

func NewService(idp identity.Provider, store docstore.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{idp: idp, store: store, log: log}
}

// ElevatePrincipal sets the admin custom claims on uid. The target's existing tokens keep
// their old claims until refreshed.
func (s *Service) ElevatePrincipal(ctx context.Context, caller *identity.Principal, uid domain.UserID) error {
	if err := authorize(caller); err != nil {
		return err
	}
	if strings.TrimSpace(string(uid)) == "" {
		return apperr.New(apperr.ErrValidationFailed, "uid is required", map[string]any{"uid": "required"})
	}

	err := s.idp.ElevateToAdmin(ctx, uid)
	if errors.Is(err, identity.ErrPrincipalNotFound) {
		return apperr.New(apperr.ErrNotFound, "principal not found", map[string]any{"uid": string(uid)})
	}
	if err != nil {
		s.log.Error("set admin claims", zap.String("uid", string(uid)), zap.Error(err))
		return apperr.Internal("Error setting admin role", err)
	}
	s.log.Info("principal elevated", zap.String("uid", string(uid)), zap.String("by", string(caller.ID)))
	return nil
}

// ListPrincipals returns every account known to the identity provider.
func (s *Service) ListPrincipals(ctx context.Context, caller *identity.Principal) ([]identity.PrincipalRecord, error) {
	if err := authorize(caller); err != nil {
		return nil, err
	}
	recs, err := s.idp.ListPrincipals(ctx)
	if err != nil {
		s.log.Error("list principals", zap.Error(err))
		return nil, apperr.Internal("Error fetching users", err)
	}
	return recs, nil
}

// ListUsers returns profile documents newest first, narrowed to names or emails containing
// query when it is non-empty. Callers gate this on the resolved session role.
func (s *Service) ListUsers(ctx context.Context, query string) ([]domain.User, error) {
	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: session.UsersCollection,
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	query = strings.TrimSpace(query)
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		u := session.UserFromDocument(d)
		if query != "" && !domain.ContainsFold(u.Name, query) && !domain.ContainsFold(u.Email, query) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// authorize accepts only the admin=true claim; a role=admin claim alone is not enough.
func authorize(caller *identity.Principal) error {
	if caller == nil || caller.ID == "" {
		return apperr.New(apperr.ErrUnauthenticated, "Authentication required", nil)
	}
	if !caller.Claims.Admin {
		return apperr.New(apperr.ErrPermissionDenied, "Only admins can perform this action", nil)
	}
	return nil
}
