package localidp

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campus-events/eventhub-api/internal/domain"
	"github.com/campus-events/eventhub-api/internal/ports/out/docstore"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

type account struct {
	ID           domain.UserID
	Email        string
	DisplayName  string
	PasswordHash string
	Disabled     bool
	ClaimRole    domain.Role
	ClaimAdmin   bool
	CreatedAt    string
	LastSignInAt string
}

func (a account) fields() docstore.Fields {
	return docstore.Fields{
		"email":        a.Email,
		"emailLower":   strings.ToLower(a.Email),
		"displayName":  a.DisplayName,
		"passwordHash": a.PasswordHash,
		"disabled":     a.Disabled,
		"claimRole":    string(a.ClaimRole),
		"claimAdmin":   a.ClaimAdmin,
		"createdAt":    a.CreatedAt,
		"lastSignInAt": a.LastSignInAt,
	}
}

func accountFromDocument(d docstore.Document) account {
	f := d.Fields
	return account{
		ID:           domain.UserID(d.ID),
		Email:        f.String("email"),
		DisplayName:  f.String("displayName"),
		PasswordHash: f.String("passwordHash"),
		Disabled:     f.Bool("disabled"),
		ClaimRole:    domain.Role(f.String("claimRole")),
		ClaimAdmin:   f.Bool("claimAdmin"),
		CreatedAt:    f.String("createdAt"),
		LastSignInAt: f.String("lastSignInAt"),
	}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

func (c *tokenClaims) principal(raw string) identity.Principal {
	out := identity.Principal{
		ID:          domain.UserID(c.Subject),
		Email:       c.Email,
		DisplayName: c.Name,
		Token:       raw,
		Claims: identity.Claims{
			Role:  domain.Role(c.Role),
			Admin: c.Admin,
		},
	}
	if c.IssuedAt != nil {
		out.Claims.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		out.Claims.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return out
}
