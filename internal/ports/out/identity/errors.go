package identity

import "errors"

var (
	ErrEmailAlreadyExists = errors.New("email already in use")
	ErrInvalidCredential  = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password too weak")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrPrincipalNotFound  = errors.New("principal not found")
)
