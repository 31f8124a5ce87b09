// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Authentication outcomes returned to callers. Unknown identity and wrong
// password are deliberately merged into ErrInvalidCredentials so the error
// surface never reveals whether an account exists.
var (
	// ErrInvalidCredentials indicates an unknown identity or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked indicates the account is inside an active lockout window.
	ErrAccountLocked = errors.New("account locked")

	// ErrEmailNotVerified indicates the account exists but its email address
	// has not been confirmed yet.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrInvalidToken covers expired, malformed, revoked, or already-consumed
	// tokens of any kind (bearer, refresh, reset, verification).
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrTenantRequired indicates a tenant-scoped operation ran without a
	// tenant in context. Treated as a configuration defect, not a user-facing
	// condition.
	ErrTenantRequired = errors.New("tenant context required")
)

// Persistence sentinels shared between repositories and services.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation
	// (e.g., username or email taken within a tenant).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidRole indicates a role string outside the closed role set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = errors.New("password too weak")
)
