// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/edupage/campusauth/internal/errs"
)

// Role is the closed set of roles an identity may hold within a tenant.
// Role strings from the outside world go through ParseRole at the boundary;
// an unknown string fails fast there instead of deep in business logic.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleStaff   Role = "staff"
)

// ParseRole validates a role string against the closed role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent, RoleStaff:
		return Role(s), nil
	}
	return "", errs.ErrInvalidRole
}

// Tokens collects issued access/refresh tokens.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry
}

// Identity is one user account within one tenant. (tenant_id, username) and
// (tenant_id, email) are each unique. Lockout and single-use token fields
// live directly on the row so their mutations can be made atomic per row.
type Identity struct {
	ID       uuid.UUID // PK
	TenantID string    // opaque tenant identifier (school)
	Username string
	Email    string

	PwdHash  []byte // Argon2id(password, SaltAuth)
	SaltAuth []byte // per-user auth salt

	Role          Role
	Enabled       bool
	EmailVerified bool

	FailedAttempts int
	LockedUntil    time.Time // epoch/zero = not locked; past = lazily unlocked

	VerificationToken string    // empty = none pending; consumed on verify
	ResetToken        string    // empty = none pending; consumed on reset
	ResetExpiry       time.Time // reset token validity bound

	LastLoginAt time.Time
	CreatedAt   time.Time
}

// Locked reports whether the identity is inside an active lockout window at
// the given instant. A LockedUntil in the past counts as unlocked even before
// any explicit reset (lazy unlock).
func (i *Identity) Locked(now time.Time) bool {
	return i.LockedUntil.After(now)
}

// Summary is the minimal identity view returned alongside issued tokens.
type Summary struct {
	ID            uuid.UUID `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
}

// Summarize projects an identity into its external summary.
func (i *Identity) Summarize() Summary {
	return Summary{
		ID:            i.ID,
		TenantID:      i.TenantID,
		Username:      i.Username,
		Email:         i.Email,
		Role:          i.Role,
		EmailVerified: i.EmailVerified,
	}
}
