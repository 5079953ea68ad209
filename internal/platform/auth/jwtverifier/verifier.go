package jwtverifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/platform/config"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Verifier validates RS256 tokens issued by an external identity provider against the
// provider's JWKS. Keys are refreshed on an interval and whenever a token presents an
// unknown kid.
type Verifier struct {
	cfg    config.JWTConfig
	jwks   *keyfunc.JWKS
	parser *jwt.Parser
}

func New(cfg config.JWTConfig) (*Verifier, error) {
	return NewWithOptions(cfg, nil, nil)
}

func NewWithOptions(cfg config.JWTConfig, httpClient *http.Client, clock Clock) (*Verifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if clock == nil {
		clock = realClock{}
	}
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "role"
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		Client:            httpClient,
		RefreshInterval:   cfg.JWKSRefreshInterval,
		RefreshRateLimit:  cfg.JWKSMinRefreshInterval,
		RefreshTimeout:    cfg.HTTPTimeout,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithTimeFunc(clock.Now),
		jwt.WithExpirationRequired(),
	)
	return &Verifier{cfg: cfg, jwks: jwks, parser: parser}, nil
}

// Close stops the background JWKS refresh.
func (v *Verifier) Close() {
	v.jwks.EndBackground()
}

// Verify verifies a JWT and returns the principal it authenticates. The role claim is read
// from the configured claim name; `admin: true` is honoured as well.
func (v *Verifier) Verify(ctx context.Context, raw string) (identity.Principal, error) {
	_ = ctx
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, v.jwks.Keyfunc); err != nil {
		return identity.Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return identity.Principal{}, fmt.Errorf("%w: missing sub", ErrUnauthorized)
	}

	p := identity.Principal{
		ID:    domain.UserID(sub),
		Token: raw,
	}
	p.Email, _ = claims["email"].(string)
	p.DisplayName, _ = claims["name"].(string)
	if role, ok := claims[v.cfg.RoleClaim].(string); ok {
		p.Claims.Role = domain.Role(role)
	}
	p.Claims.Admin, _ = claims["admin"].(bool)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		p.Claims.IssuedAt = iat.Time.UTC()
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		p.Claims.ExpiresAt = exp.Time.UTC()
	}
	return p, nil
}
