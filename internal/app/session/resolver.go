package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/app/notify"
	"github.com/campus-events/eventhub-api/internal/domain"
	clockport "github.com/campus-events/eventhub-api/internal/ports/out/clock"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

type Options struct {
	Precedence domain.RolePrecedence
	// TrustPrincipalClaims uses the claims already verified on the principal instead of
	// asking the provider. Set it when tokens come from an external issuer.
	TrustPrincipalClaims bool
	Logger               *zap.Logger
}

// Factory builds resolvers that share collaborators. Each resolver tracks one session.
type Factory struct {
	idp   identity.Provider
	store docstore.Store
	clk   clockport.Clock
	opts  Options
}

func NewFactory(idp identity.Provider, store docstore.Store, clk clockport.Clock, opts Options) *Factory {
	if !opts.Precedence.Valid() {
		opts.Precedence = domain.DefaultRolePrecedence
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Factory{idp: idp, store: store, clk: clk, opts: opts}
}

// New returns a signed-out resolver.
func (f *Factory) New() *Resolver {
	return &Resolver{
		idp:        f.idp,
		store:      f.store,
		clk:        f.clk,
		log:        f.opts.Logger,
		precedence: f.opts.Precedence,
		trusted:    f.opts.TrustPrincipalClaims,
	}
}

// Resume returns a resolver already resolved for an authenticated principal.
func (f *Factory) Resume(ctx context.Context, p identity.Principal) *Resolver {
	r := f.New()
	r.OnIdentityChange(ctx, &p)
	return r
}

// Resolver merges the identity provider's view of the signed-in principal with the stored
// profile into one resolved user with a role.
// It is safe for concurrent use.
type Resolver struct {
	idp        identity.Provider
	store      docstore.Store
	clk        clockport.Clock
	log        *zap.Logger
	precedence domain.RolePrecedence
	trusted    bool

	mu        sync.RWMutex
	principal *identity.Principal
	user      *domain.ResolvedUser

	hub notify.Hub[*domain.ResolvedUser]
}

// OnIdentityChange re-resolves the session for p, or clears it when p is nil.
//
// Claim and profile fetch failures are logged and swallowed: the session then exposes the
// bare principal with no role, which never passes IsAdmin.
func (r *Resolver) OnIdentityChange(ctx context.Context, p *identity.Principal) {
	if p == nil {
		r.mu.Lock()
		r.principal = nil
		r.user = nil
		r.mu.Unlock()
		r.notify()
		return
	}

	pc := *p
	resolved := r.resolve(ctx, pc)

	r.mu.Lock()
	r.principal = &pc
	r.user = &resolved
	r.mu.Unlock()
	r.notify()
}

func (r *Resolver) resolve(ctx context.Context, p identity.Principal) domain.ResolvedUser {
	bare := domain.ResolvedUser{ID: p.ID, Email: p.Email, DisplayName: p.DisplayName}

	claims := p.Claims
	if !r.trusted {
		var err error
		claims, err = r.idp.Claims(ctx, p)
		if err != nil {
			r.log.Warn("fetch token claims", zap.String("uid", string(p.ID)), zap.Error(err))
			return bare
		}
	}

	var profileRole domain.Role
	doc, err := r.store.Get(ctx, UsersCollection, string(p.ID))
	switch {
	case err == nil:
		u := UserFromDocument(doc)
		bare.Profile = &u
		profileRole = u.Role
	case errors.Is(err, docstore.ErrNotFound):
	default:
		r.log.Warn("fetch profile", zap.String("uid", string(p.ID)), zap.Error(err))
		return domain.ResolvedUser{ID: p.ID, Email: p.Email, DisplayName: p.DisplayName}
	}

	bare.Role = domain.ResolveRole(claims.Role, profileRole, r.precedence)
	return bare
}

// Signup creates the account and its profile document, then resolves the new session.
// Identity provider errors are returned unmodified.
func (r *Resolver) Signup(ctx context.Context, email, password string, in SignupProfile) (domain.ResolvedUser, error) {
	p, err := r.idp.CreateAccount(ctx, email, password)
	if err != nil {
		return domain.ResolvedUser{}, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	profile := domain.User{
		ID:        p.ID,
		Email:     p.Email,
		Name:      in.Name,
		Phone:     in.Phone,
		Location:  in.Location,
		Bio:       in.Bio,
		Role:      role,
		CreatedAt: r.clk.Now(),
	}
	if err := r.store.Set(ctx, UsersCollection, string(p.ID), profileFields(profile)); err != nil {
		return domain.ResolvedUser{}, apperr.Internal("write profile", err)
	}

	if role == domain.RoleAdmin {
		if err := r.idp.ElevateToAdmin(ctx, p.ID); err != nil {
			return domain.ResolvedUser{}, apperr.Internal("elevate new account", err)
		}
		if refreshed, err := r.idp.Refresh(ctx, p); err != nil {
			r.log.Warn("refresh token after elevation", zap.String("uid", string(p.ID)), zap.Error(err))
		} else {
			p = refreshed
		}
	}

	r.OnIdentityChange(ctx, &p)
	u, _ := r.CurrentUser()
	return u, nil
}

// Login signs in and resolves the session. Identity provider errors are returned unmodified.
func (r *Resolver) Login(ctx context.Context, email, password string) (domain.ResolvedUser, error) {
	p, err := r.idp.SignIn(ctx, email, password)
	if err != nil {
		return domain.ResolvedUser{}, err
	}
	r.OnIdentityChange(ctx, &p)
	u, _ := r.CurrentUser()
	return u, nil
}

func (r *Resolver) Logout(ctx context.Context) error {
	p, ok := r.Principal()
	if !ok {
		return nil
	}
	if err := r.idp.SignOut(ctx, p); err != nil {
		return err
	}
	r.OnIdentityChange(ctx, nil)
	return nil
}

func (r *Resolver) IsAdmin() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user != nil && r.user.IsAdmin()
}

func (r *Resolver) CurrentUser() (domain.ResolvedUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.user == nil {
		return domain.ResolvedUser{}, false
	}
	return cloneResolved(*r.user), true
}

// Principal returns the signed-in principal, including its current bearer token.
func (r *Resolver) Principal() (identity.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.principal == nil {
		return identity.Principal{}, false
	}
	return *r.principal, true
}

// Token returns the current bearer token, or "" when signed out.
func (r *Resolver) Token() string {
	p, _ := r.Principal()
	return p.Token
}

// PromoteToAdmin records the admin role on the target's profile and sets the admin custom
// claims. Local state changes only when the target is this session's principal; other
// sessions see the new role after their next resolution.
func (r *Resolver) PromoteToAdmin(ctx context.Context, target domain.UserID) error {
	if target == "" {
		return apperr.New(apperr.ErrValidationFailed, "user id is required", map[string]any{"userId": "required"})
	}
	err := r.store.Update(ctx, UsersCollection, string(target), docstore.Fields{"role": string(domain.RoleAdmin)})
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.New(apperr.ErrNotFound, "user not found", map[string]any{"userId": string(target)})
	}
	if err != nil {
		return apperr.Internal("update profile role", err)
	}
	if err := r.idp.ElevateToAdmin(ctx, target); err != nil {
		return apperr.Internal("elevate principal", err)
	}

	r.mu.Lock()
	isCurrent := r.principal != nil && r.principal.ID == target
	var p identity.Principal
	if isCurrent {
		p = *r.principal
		if r.user != nil {
			r.user.Role = domain.RoleAdmin
			if r.user.Profile != nil {
				r.user.Profile.Role = domain.RoleAdmin
			}
		}
	}
	r.mu.Unlock()
	if !isCurrent {
		return nil
	}

	if refreshed, err := r.idp.Refresh(ctx, p); err != nil {
		r.log.Warn("refresh token after promotion", zap.String("uid", string(target)), zap.Error(err))
	} else {
		r.mu.Lock()
		if r.principal != nil && r.principal.ID == target {
			r.principal = &refreshed
		}
		r.mu.Unlock()
	}
	r.notify()
	return nil
}

// UpdateProfile merges patch into the target's profile document. Local state changes only
// when the target is this session's principal.
func (r *Resolver) UpdateProfile(ctx context.Context, target domain.UserID, patch ProfilePatch) error {
	if target == "" {
		return apperr.New(apperr.ErrValidationFailed, "user id is required", map[string]any{"userId": "required"})
	}
	if patch.IsEmpty() {
		return nil
	}
	err := r.store.Update(ctx, UsersCollection, string(target), patchFields(patch))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.New(apperr.ErrNotFound, "user not found", map[string]any{"userId": string(target)})
	}
	if err != nil {
		return apperr.Internal("update profile", err)
	}

	r.mu.Lock()
	changed := r.principal != nil && r.principal.ID == target && r.user != nil && r.user.Profile != nil
	if changed {
		applyPatch(r.user.Profile, patch)
	}
	r.mu.Unlock()
	if changed {
		r.notify()
	}
	return nil
}

// Subscribe registers fn to receive the resolved user after every state change; nil means
// signed out. The returned func unsubscribes.
func (r *Resolver) Subscribe(fn func(*domain.ResolvedUser)) func() {
	return r.hub.Subscribe(fn)
}

// notify publishes a copy of the current state; subscribers share that copy.
func (r *Resolver) notify() {
	u, ok := r.CurrentUser()
	if !ok {
		r.hub.Publish(nil)
		return
	}
	r.hub.Publish(&u)
}

func cloneResolved(u domain.ResolvedUser) domain.ResolvedUser {
	if u.Profile != nil {
		p := *u.Profile
		u.Profile = &p
	}
	return u
}
