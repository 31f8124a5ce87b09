package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/edupage/campusauth/internal/errs"
	"github.com/edupage/campusauth/internal/model"
)

// IdentityRepo implements IdentityRepository using PostgreSQL.
type IdentityRepo struct{ db *DB }

// NewIdentityRepo constructs an identity repository.
func NewIdentityRepo(db *DB) *IdentityRepo { return &IdentityRepo{db: db} }

const identityCols = `id, tenant_id, username, email, pwd_hash, salt_auth, role, enabled,
email_verified, failed_attempts, locked_until, verification_token,
reset_token, reset_expiry, last_login_at, created_at`

func scanIdentity(row pgx.Row) (*model.Identity, error) {
	var ident model.Identity
	var role string
	err := row.Scan(
		&ident.ID, &ident.TenantID, &ident.Username, &ident.Email,
		&ident.PwdHash, &ident.SaltAuth, &role, &ident.Enabled,
		&ident.EmailVerified, &ident.FailedAttempts, &ident.LockedUntil,
		&ident.VerificationToken, &ident.ResetToken, &ident.ResetExpiry,
		&ident.LastLoginAt, &ident.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	ident.Role = model.Role(role)
	return &ident, nil
}

// Create inserts a new identity row.
func (r *IdentityRepo) Create(ctx context.Context, ident *model.Identity) error {
	const q = `
INSERT INTO identities (id, tenant_id, username, email, pwd_hash, salt_auth, role,
  enabled, email_verified, verification_token)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Pool.Exec(ctx, q,
		ident.ID, ident.TenantID, ident.Username, ident.Email,
		ident.PwdHash, ident.SaltAuth, string(ident.Role),
		ident.Enabled, ident.EmailVerified, ident.VerificationToken,
	)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByIdentifier selects an identity by username or email within a tenant.
func (r *IdentityRepo) GetByIdentifier(ctx context.Context, tenantID, identifier string) (*model.Identity, error) {
	const q = `
SELECT ` + identityCols + `
FROM identities WHERE tenant_id=$1 AND (username=$2 OR email=$2)`
	return scanIdentity(r.db.Pool.QueryRow(ctx, q, tenantID, identifier))
}

// GetByID selects an identity by ID within a tenant.
func (r *IdentityRepo) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*model.Identity, error) {
	const q = `
SELECT ` + identityCols + `
FROM identities WHERE tenant_id=$1 AND id=$2`
	return scanIdentity(r.db.Pool.QueryRow(ctx, q, tenantID, id))
}

// GetByEmail selects an identity by email across tenants.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	const q = `
SELECT ` + identityCols + `
FROM identities WHERE email=$1`
	return scanIdentity(r.db.Pool.QueryRow(ctx, q, email))
}

// UpdatePassword rewrites the password hash and salt.
func (r *IdentityRepo) UpdatePassword(ctx context.Context, tenantID string, id uuid.UUID, hash, salt []byte) error {
	const q = `
UPDATE identities SET pwd_hash=$3, salt_auth=$4 WHERE tenant_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, tenantID, id, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetResetToken stores a pending single-use reset token with its expiry.
func (r *IdentityRepo) SetResetToken(ctx context.Context, tenantID string, id uuid.UUID, tok string, expiry time.Time) error {
	const q = `
UPDATE identities SET reset_token=$3, reset_expiry=$4 WHERE tenant_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, tenantID, id, tok, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ConsumeResetToken rewrites the password and clears the token in a single
// conditional update, so the token is accepted at most once and a replay
// fails as unknown.
func (r *IdentityRepo) ConsumeResetToken(ctx context.Context, tok string, hash, salt []byte) (*model.Identity, error) {
	const q = `
UPDATE identities
SET pwd_hash=$2, salt_auth=$3, reset_token='', reset_expiry='epoch'
WHERE reset_token=$1 AND reset_token <> '' AND reset_expiry > now()
RETURNING ` + identityCols
	return scanIdentity(r.db.Pool.QueryRow(ctx, q, tok, hash, salt))
}

// SetVerificationToken stores a pending email-verification token.
func (r *IdentityRepo) SetVerificationToken(ctx context.Context, tenantID string, id uuid.UUID, tok string) error {
	const q = `
UPDATE identities SET verification_token=$3 WHERE tenant_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, tenantID, id, tok)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ConsumeVerificationToken marks the email verified and clears the token in
// one conditional update.
func (r *IdentityRepo) ConsumeVerificationToken(ctx context.Context, tok string) (*model.Identity, error) {
	const q = `
UPDATE identities
SET verification_token='', email_verified=true
WHERE verification_token=$1 AND verification_token <> ''
RETURNING ` + identityCols
	return scanIdentity(r.db.Pool.QueryRow(ctx, q, tok))
}
