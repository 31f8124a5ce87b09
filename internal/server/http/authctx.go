package httpserver

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/edupage/campusauth/internal/model"
)

type ctxKey string

const principalKey ctxKey = "campusauth.principal"

// Principal is the authenticated caller derived from a validated access token.
type Principal struct {
	UserID   uuid.UUID
	TenantID string
	Role     model.Role
}

// WithPrincipal stores the authenticated principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromCtx fetches the authenticated principal from context.
func PrincipalFromCtx(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalKey)
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
