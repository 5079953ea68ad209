package identity

import (
	"context"
	"time"

	"github.com/campus-events/eventhub-api/internal/domain"
)

// Claims are the custom claims carried by a principal's token.
type Claims struct {
	Role  domain.Role
	Admin bool

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsAdmin reports whether the claims grant access to administrative callables.
func (c Claims) IsAdmin() bool {
	return c.Admin || c.Role == domain.RoleAdmin
}

// Principal is an authenticated identity.
//
// Token is the bearer token the principal was authenticated with, when there is one.
// Claims are the claims asserted when the principal was authenticated; they can be stale
// relative to the provider's current record.
type Principal struct {
	ID          domain.UserID
	Email       string
	DisplayName string
	Token       string
	Claims      Claims
}

// PrincipalRecord is the administrative view of an account.
type PrincipalRecord struct {
	ID            domain.UserID
	Email         string
	DisplayName   string
	EmailVerified bool
	Disabled      bool
	CreatedAt     time.Time
	LastSignInAt  time.Time
	CustomClaims  Claims
}

// Provider manages accounts and the tokens that authenticate them.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (Principal, error)
	SignIn(ctx context.Context, email, password string) (Principal, error)
	SignOut(ctx context.Context, p Principal) error

	// Claims returns the claims of the principal's current token.
	Claims(ctx context.Context, p Principal) (Claims, error)
	// Refresh issues a new token carrying the account's current custom claims.
	Refresh(ctx context.Context, p Principal) (Principal, error)

	// ElevateToAdmin sets the admin custom claims on the account. Tokens issued earlier
	// keep their old claims until refreshed.
	ElevateToAdmin(ctx context.Context, id domain.UserID) error
	ListPrincipals(ctx context.Context) ([]PrincipalRecord, error)
}

// Verifier authenticates a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Principal, error)
}
