package localidp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-events/eventhub-api/internal/domain"
	clockport "github.com/campus-events/eventhub-api/internal/ports/out/clock"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

// AccountsCollection holds one document per account, keyed by principal id.
const AccountsCollection = "accounts"

type Options struct {
	Issuer            string
	Audience          string
	SigningKey        []byte
	TokenTTL          time.Duration
	BcryptCost        int
	MinPasswordLength int
}

// Provider is a self-hosted identity provider: bcrypt-hashed passwords in the document
// store and HS256 bearer tokens carrying the account's custom claims.
//
// Tokens are self-contained, so claims changed after issue (ElevateToAdmin) only show up
// in tokens minted later by SignIn or Refresh.
type Provider struct {
	store docstore.Store
	clk   clockport.Clock
	opts  Options
	log   *zap.Logger

	parser *jwt.Parser

	// createMu serializes the email uniqueness check with the insert.
	createMu sync.Mutex

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> token expiry
}

var (
	_ identity.Provider = (*Provider)(nil)
	_ identity.Verifier = (*Provider)(nil)
)

func New(store docstore.Store, clk clockport.Clock, opts Options, log *zap.Logger) (*Provider, error) {
	if len(opts.SigningKey) < 32 {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		store: store,
		clk:   clk,
		opts:  opts,
		log:   log,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(opts.Issuer),
			jwt.WithAudience(opts.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clk.Now),
		),
		revoked: make(map[string]time.Time),
	}, nil
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (identity.Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return identity.Principal{}, identity.ErrInvalidEmail
	}
	if len(password) < p.opts.MinPasswordLength {
		return identity.Principal{}, identity.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.opts.BcryptCost)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("hash password: %w", err)
	}

	p.createMu.Lock()
	defer p.createMu.Unlock()

	if _, ok, err := p.findByEmail(ctx, email); err != nil {
		return identity.Principal{}, err
	} else if ok {
		return identity.Principal{}, identity.ErrEmailAlreadyExists
	}

	now := domain.FormatTimestamp(p.clk.Now())
	a := account{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		LastSignInAt: now,
	}
	id, err := p.store.Create(ctx, AccountsCollection, a.fields())
	if err != nil {
		return identity.Principal{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = domain.UserID(id)

	p.log.Info("account created", zap.String("uid", id))
	return p.issue(a)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.Principal, error) {
	a, ok, err := p.findByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return identity.Principal{}, err
	}
	if !ok {
		return identity.Principal{}, identity.ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return identity.Principal{}, identity.ErrInvalidCredential
	}
	if a.Disabled {
		return identity.Principal{}, identity.ErrAccountDisabled
	}

	a.LastSignInAt = domain.FormatTimestamp(p.clk.Now())
	if err := p.store.Update(ctx, AccountsCollection, string(a.ID), docstore.Fields{"lastSignInAt": a.LastSignInAt}); err != nil {
		p.log.Warn("record sign-in time", zap.String("uid", string(a.ID)), zap.Error(err))
	}
	return p.issue(a)
}

// SignOut revokes the principal's token for the rest of its lifetime.
func (p *Provider) SignOut(ctx context.Context, pr identity.Principal) error {
	_ = ctx
	if pr.Token == "" {
		return nil
	}
	c, err := p.parse(pr.Token)
	if err != nil {
		// An already invalid token cannot authenticate anything; nothing to revoke.
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clk.Now()
	for id, exp := range p.revoked {
		if !exp.After(now) {
			delete(p.revoked, id)
		}
	}
	p.revoked[c.ID] = c.ExpiresAt.Time
	return nil
}

func (p *Provider) Claims(ctx context.Context, pr identity.Principal) (identity.Claims, error) {
	if pr.Token == "" {
		return pr.Claims, nil
	}
	verified, err := p.Verify(ctx, pr.Token)
	if err != nil {
		return identity.Claims{}, err
	}
	return verified.Claims, nil
}

func (p *Provider) Refresh(ctx context.Context, pr identity.Principal) (identity.Principal, error) {
	a, err := p.load(ctx, pr.ID)
	if err != nil {
		return identity.Principal{}, err
	}
	if a.Disabled {
		return identity.Principal{}, identity.ErrAccountDisabled
	}
	return p.issue(a)
}

func (p *Provider) ElevateToAdmin(ctx context.Context, id domain.UserID) error {
	if id == "" {
		return identity.ErrPrincipalNotFound
	}
	err := p.store.Update(ctx, AccountsCollection, string(id), docstore.Fields{
		"claimRole":  string(domain.RoleAdmin),
		"claimAdmin": true,
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return identity.ErrPrincipalNotFound
	}
	if err != nil {
		return fmt.Errorf("set custom claims: %w", err)
	}
	p.log.Info("custom claims elevated", zap.String("uid", string(id)))
	return nil
}

func (p *Provider) ListPrincipals(ctx context.Context) ([]identity.PrincipalRecord, error) {
	docs, err := p.store.Query(ctx, docstore.Query{Collection: AccountsCollection, OrderBy: "createdAt"})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]identity.PrincipalRecord, 0, len(docs))
	for _, d := range docs {
		a := accountFromDocument(d)
		rec := identity.PrincipalRecord{
			ID:          a.ID,
			Email:       a.Email,
			DisplayName: a.DisplayName,
			Disabled:    a.Disabled,
			CustomClaims: identity.Claims{
				Role:  a.ClaimRole,
				Admin: a.ClaimAdmin,
			},
		}
		rec.CreatedAt, _ = domain.ParseTimestamp(a.CreatedAt)
		rec.LastSignInAt, _ = domain.ParseTimestamp(a.LastSignInAt)
		out = append(out, rec)
	}
	return out, nil
}

// Verify authenticates a token minted by this provider.
func (p *Provider) Verify(ctx context.Context, raw string) (identity.Principal, error) {
	_ = ctx
	c, err := p.parse(raw)
	if err != nil {
		return identity.Principal{}, err
	}
	p.mu.Lock()
	_, revoked := p.revoked[c.ID]
	p.mu.Unlock()
	if revoked {
		return identity.Principal{}, identity.ErrTokenRevoked
	}
	return c.principal(raw), nil
}

func (p *Provider) parse(raw string) (*tokenClaims, error) {
	c := &tokenClaims{}
	_, err := p.parser.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return p.opts.SigningKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}
	if c.Subject == "" || c.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti", identity.ErrInvalidToken)
	}
	return c, nil
}

func (p *Provider) issue(a account) (identity.Principal, error) {
	now := p.clk.Now()
	c := &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.opts.Issuer,
			Subject:   string(a.ID),
			Audience:  jwt.ClaimStrings{p.opts.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.opts.TokenTTL)),
			ID:        uuid.NewString(),
		},
		Email: a.Email,
		Name:  a.DisplayName,
		Role:  string(a.ClaimRole),
		Admin: a.ClaimAdmin,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.opts.SigningKey)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("sign token: %w", err)
	}
	return c.principal(raw), nil
}

func (p *Provider) load(ctx context.Context, id domain.UserID) (account, error) {
	if id == "" {
		return account{}, identity.ErrPrincipalNotFound
	}
	d, err := p.store.Get(ctx, AccountsCollection, string(id))
	if errors.Is(err, docstore.ErrNotFound) {
		return account{}, identity.ErrPrincipalNotFound
	}
	if err != nil {
		return account{}, fmt.Errorf("load account: %w", err)
	}
	return accountFromDocument(d), nil
}

func (p *Provider) findByEmail(ctx context.Context, email string) (account, bool, error) {
	docs, err := p.store.Query(ctx, docstore.Query{
		Collection: AccountsCollection,
		Where:      &docstore.Filter{Field: "emailLower", Value: strings.ToLower(email)},
	})
	if err != nil {
		return account{}, false, fmt.Errorf("lookup account: %w", err)
	}
	if len(docs) == 0 {
		return account{}, false, nil
	}
	return accountFromDocument(docs[0]), true, nil
}
