package domain

import "time"

// Role is the authorization role of a user. The zero value means "no role recorded".
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// RolePrecedence decides which source wins when the token claim and the stored profile
// disagree about a user's role.
type RolePrecedence string

const (
	// ClaimsFirst trusts the identity provider's custom claim, then the profile document.
	ClaimsFirst RolePrecedence = "claims-first"
	// ProfileFirst trusts the profile document, then the custom claim.
	ProfileFirst RolePrecedence = "profile-first"

	DefaultRolePrecedence = ClaimsFirst
)

func (p RolePrecedence) Valid() bool {
	return p == ClaimsFirst || p == ProfileFirst
}

// ResolveRole merges the two role sources. The result is never empty.
func ResolveRole(claimRole, profileRole Role, p RolePrecedence) Role {
	first, second := claimRole, profileRole
	if p == ProfileFirst {
		first, second = profileRole, claimRole
	}
	switch {
	case first != "":
		return first
	case second != "":
		return second
	default:
		return RoleUser
	}
}

// User is the profile document stored per principal.
type User struct {
	ID        UserID
	Email     string
	Name      string
	Phone     string
	Location  string
	Bio       string
	Role      Role
	CreatedAt time.Time
}

// ResolvedUser is the session view of the signed-in principal: identity fields merged
// with the profile document and the resolved role.
//
// Profile is nil when the profile document is missing or could not be fetched; Role is
// then empty and the user is never treated as admin.
type ResolvedUser struct {
	ID          UserID
	Email       string
	DisplayName string
	Profile     *User
	Role        Role
}

func (u ResolvedUser) IsAdmin() bool { return u.Role == RoleAdmin }

// Name prefers the profile name and falls back to the identity display name.
func (u ResolvedUser) Name() string {
	if u.Profile != nil && u.Profile.Name != "" {
		return u.Profile.Name
	}
	return u.DisplayName
}
