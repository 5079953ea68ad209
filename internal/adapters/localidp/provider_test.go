package localidp

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	memclock "github.com/campus-events/eventhub-api/internal/adapters/memory/clock"
	memdocstore "github.com/campus-events/eventhub-api/internal/adapters/memory/docstore"
	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

func newTestProvider(t *testing.T) (*Provider, *memclock.ManualClock) {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	p, err := New(memdocstore.NewStore(), clk, Options{
		Issuer:     "eventhub-test",
		Audience:   "eventhub",
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, clk
}

func TestNew_RejectsShortKey(t *testing.T) {
	t.Parallel()

	_, err := New(memdocstore.NewStore(), memclock.NewManualClock(time.Now()), Options{SigningKey: []byte("short")}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestCreateAccount_ThenSignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestProvider(t)

	created, err := p.CreateAccount(ctx, "ada@example.edu", "hunter22")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if created.ID == "" || created.Token == "" {
		t.Fatalf("principal=%+v", created)
	}
	if created.Claims.Role != "" || created.Claims.Admin {
		t.Fatalf("new account must carry no custom claims: %+v", created.Claims)
	}

	signedIn, err := p.SignIn(ctx, "ADA@example.edu", "hunter22")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if signedIn.ID != created.ID {
		t.Fatalf("SignIn id=%q want=%q", signedIn.ID, created.ID)
	}

	verified, err := p.Verify(ctx, signedIn.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.ID != created.ID || verified.Email != "ada@example.edu" {
		t.Fatalf("verified=%+v", verified)
	}
}

func TestCreateAccount_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestProvider(t)

	if _, err := p.CreateAccount(ctx, "ada@example.edu", "hunter22"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := p.CreateAccount(ctx, " Ada@Example.edu ", "another1"); !errors.Is(err, identity.ErrEmailAlreadyExists) {
		t.Fatalf("duplicate err=%v want=%v", err, identity.ErrEmailAlreadyExists)
	}
	if _, err := p.CreateAccount(ctx, "bob@example.edu", "123"); !errors.Is(err, identity.ErrWeakPassword) {
		t.Fatalf("weak err=%v want=%v", err, identity.ErrWeakPassword)
	}
	if _, err := p.CreateAccount(ctx, "not-an-email", "hunter22"); !errors.Is(err, identity.ErrInvalidEmail) {
		t.Fatalf("email err=%v want=%v", err, identity.ErrInvalidEmail)
	}
}

func TestSignIn_BadCredential(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestProvider(t)

	if _, err := p.CreateAccount(ctx, "ada@example.edu", "hunter22"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := p.SignIn(ctx, "ada@example.edu", "wrong-password"); !errors.Is(err, identity.ErrInvalidCredential) {
		t.Fatalf("err=%v want=%v", err, identity.ErrInvalidCredential)
	}
	if _, err := p.SignIn(ctx, "nobody@example.edu", "hunter22"); !errors.Is(err, identity.ErrInvalidCredential) {
		t.Fatalf("unknown email err=%v want=%v", err, identity.ErrInvalidCredential)
	}
}

func TestElevateToAdmin_ClaimsAreStaleUntilRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestProvider(t)

	pr, err := p.CreateAccount(ctx, "ada@example.edu", "hunter22")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := p.ElevateToAdmin(ctx, pr.ID); err != nil {
		t.Fatalf("ElevateToAdmin: %v", err)
	}

	stale, err := p.Claims(ctx, pr)
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if stale.IsAdmin() {
		t.Fatalf("old token must keep its old claims")
	}

	refreshed, err := p.Refresh(ctx, pr)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	fresh, err := p.Claims(ctx, refreshed)
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if fresh.Role != domain.RoleAdmin || !fresh.Admin {
		t.Fatalf("refreshed claims=%+v", fresh)
	}

	if err := p.ElevateToAdmin(ctx, "missing"); !errors.Is(err, identity.ErrPrincipalNotFound) {
		t.Fatalf("missing err=%v want=%v", err, identity.ErrPrincipalNotFound)
	}
}

func TestClaims_PrincipalWithoutTokenUsesAssertedClaims(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t)

	c, err := p.Claims(context.Background(), identity.Principal{ID: "u1", Claims: identity.Claims{Role: domain.RoleAdmin}})
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if c.Role != domain.RoleAdmin {
		t.Fatalf("role=%q", c.Role)
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newTestProvider(t)

	pr, err := p.CreateAccount(ctx, "ada@example.edu", "hunter22")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := p.SignOut(ctx, pr); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := p.Verify(ctx, pr.Token); !errors.Is(err, identity.ErrTokenRevoked) {
		t.Fatalf("err=%v want=%v", err, identity.ErrTokenRevoked)
	}

	again, err := p.SignIn(ctx, "ada@example.edu", "hunter22")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := p.Verify(ctx, again.Token); err != nil {
		t.Fatalf("new token rejected: %v", err)
	}
}

func TestVerify_ExpiredAndForeignTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, clk := newTestProvider(t)

	pr, err := p.CreateAccount(ctx, "ada@example.edu", "hunter22")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	clk.Advance(2 * time.Hour)
	if _, err := p.Verify(ctx, pr.Token); !errors.Is(err, identity.ErrInvalidToken) {
		t.Fatalf("expired err=%v want=%v", err, identity.ErrInvalidToken)
	}

	other, _ := newTestProvider(t)
	other.opts.SigningKey = []byte("ffffffffffffffffffffffffffffffff")
	foreign, err := other.CreateAccount(ctx, "eve@example.edu", "hunter22")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := p.Verify(ctx, foreign.Token); !errors.Is(err, identity.ErrInvalidToken) {
		t.Fatalf("foreign err=%v want=%v", err, identity.ErrInvalidToken)
	}
}

func TestListPrincipals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, clk := newTestProvider(t)

	a, _ := p.CreateAccount(ctx, "ada@example.edu", "hunter22")
	clk.Advance(time.Minute)
	b, _ := p.CreateAccount(ctx, "bob@example.edu", "hunter22")
	if err := p.ElevateToAdmin(ctx, b.ID); err != nil {
		t.Fatalf("ElevateToAdmin: %v", err)
	}

	recs, err := p.ListPrincipals(ctx)
	if err != nil {
		t.Fatalf("ListPrincipals: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != a.ID || recs[1].ID != b.ID {
		t.Fatalf("recs=%+v", recs)
	}
	if !recs[1].CustomClaims.IsAdmin() || recs[0].CustomClaims.IsAdmin() {
		t.Fatalf("custom claims=%+v / %+v", recs[0].CustomClaims, recs[1].CustomClaims)
	}
	if recs[0].CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not parsed")
	}
}
