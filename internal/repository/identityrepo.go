// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/edupage/campusauth/internal/model"
)

// IdentityRepository provides tenant-scoped access to identity records.
// Mutations on single-use token fields are conditional updates: a consume
// succeeds at most once per issued token.
type IdentityRepository interface {
	// Create inserts a new identity; (tenant, username) and (tenant, email)
	// collisions surface as errs.ErrAlreadyExists.
	Create(ctx context.Context, ident *model.Identity) error
	// GetByIdentifier loads an identity by username or email within a tenant.
	GetByIdentifier(ctx context.Context, tenantID, identifier string) (*model.Identity, error)
	// GetByID loads an identity by ID within a tenant.
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*model.Identity, error)
	// GetByEmail loads an identity by email across tenants, for flows where
	// the tenant is not yet known (password reset by email).
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	// UpdatePassword rewrites the password hash and salt.
	UpdatePassword(ctx context.Context, tenantID string, id uuid.UUID, hash, salt []byte) error
	// SetResetToken stores a pending single-use reset token with its expiry.
	SetResetToken(ctx context.Context, tenantID string, id uuid.UUID, tok string, expiry time.Time) error
	// ConsumeResetToken atomically rewrites the password and clears the token,
	// only when the token is pending and unexpired. errs.ErrNotFound otherwise.
	ConsumeResetToken(ctx context.Context, tok string, hash, salt []byte) (*model.Identity, error)
	// SetVerificationToken stores a pending email-verification token.
	SetVerificationToken(ctx context.Context, tenantID string, id uuid.UUID, tok string) error
	// ConsumeVerificationToken atomically marks the email verified and clears
	// the token. errs.ErrNotFound when the token is unknown or already used.
	ConsumeVerificationToken(ctx context.Context, tok string) (*model.Identity, error)
}
