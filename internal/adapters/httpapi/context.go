package httpapi

import (
	"context"

	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(identity.Principal)
	return p, ok && p.ID != ""
}
