// Package tenant carries the active tenant identifier on context.Context.
//
// The tenant is request-scoped state: it is installed at the start of a
// tenant-scoped operation and travels only with that call chain. Because
// context values are immutable and per-request, a tenant set in one request
// can never leak into a concurrently executing request or into the next
// request scheduled on the same worker; there is no ambient slot to clear.
package tenant

import (
	"context"

	"github.com/edupage/campusauth/internal/errs"
)

type ctxKey string

const tenantIDKey ctxKey = "campusauth.tenantID"

// With returns a child context carrying the tenant identifier.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// From fetches the tenant identifier from context.
func From(ctx context.Context) (string, bool) {
	v := ctx.Value(tenantIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Require fetches the tenant identifier or fails with errs.ErrTenantRequired.
// Callers that must not operate tenant-less use this instead of From.
func Require(ctx context.Context) (string, error) {
	id, ok := From(ctx)
	if !ok {
		return "", errs.ErrTenantRequired
	}
	return id, nil
}

// Clear returns a child context with no tenant set. Reads through the
// returned context report absence even if an ancestor carried a tenant.
func Clear(ctx context.Context) context.Context {
	return context.WithValue(ctx, tenantIDKey, "")
}

// Run executes fn with the tenant installed. The tenant is confined to fn's
// context; the caller's context is untouched on every return path.
func Run(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	return fn(With(ctx, id))
}
