// Package service contains the authentication application service.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/edupage/campusauth/internal/crypto"
	"github.com/edupage/campusauth/internal/errs"
	"github.com/edupage/campusauth/internal/lockout"
	"github.com/edupage/campusauth/internal/mailer"
	"github.com/edupage/campusauth/internal/model"
	"github.com/edupage/campusauth/internal/obs"
	"github.com/edupage/campusauth/internal/repository"
	"github.com/edupage/campusauth/internal/revocation"
	"github.com/edupage/campusauth/internal/tenant"
	"github.com/edupage/campusauth/internal/token"
)

const (
	resetTokenTTL  = time.Hour
	minPasswordLen = 8
)

// AuthService defines the authentication and session lifecycle operations.
// Tenant-scoped operations read the tenant from the request context
// (tenant.With) and fail with errs.ErrTenantRequired when it is absent.
type AuthService interface {
	// Register creates a new identity in the context tenant and dispatches a
	// verification email.
	Register(ctx context.Context, username, email, password string, role model.Role) (model.Summary, error)
	// Login authenticates by username or email within the context tenant.
	Login(ctx context.Context, identifier, password string) (model.Tokens, model.Summary, error)
	// Refresh mints a new access token from a refresh token. The refresh
	// token is echoed back unchanged (no rotation).
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Logout revokes the access token (and the refresh token, when given)
	// for their remaining lifetimes. Idempotent.
	Logout(ctx context.Context, accessToken, refreshToken string) error
	// Authenticate validates a bearer access token and its revocation state
	// and returns the trusted claims.
	Authenticate(ctx context.Context, bearer string) (*token.Claims, error)
	// VerifyEmail consumes a single-use email verification token.
	VerifyEmail(ctx context.Context, tok string) error
	// ResendVerification re-issues a verification token for an unverified
	// account. Never reveals whether the account exists.
	ResendVerification(ctx context.Context, email string) error
	// InitiatePasswordReset issues a one-hour single-use reset token by
	// email, across tenants. Never reveals whether the account exists.
	InitiatePasswordReset(ctx context.Context, email string) error
	// ResetPassword consumes a single-use reset token and rewrites the
	// password.
	ResetPassword(ctx context.Context, tok, newPassword string) error
	// ChangePassword rewrites the password of an authenticated identity
	// after re-verifying the current one.
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
}

type AuthServiceImpl struct {
	idents  repository.IdentityRepository
	tokens  *token.Service
	revoked revocation.Store
	rec     lockout.Recorder
	mail    *mailer.Dispatcher
	log     *zap.Logger
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(idents repository.IdentityRepository, tokens *token.Service,
	revoked revocation.Store, rec lockout.Recorder, mail *mailer.Dispatcher, log *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{idents: idents, tokens: tokens, revoked: revoked, rec: rec, mail: mail, log: log}
}

// Register creates a new identity with per-user salt and a pending
// email-verification token.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string, role model.Role) (model.Summary, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	if username == "" || email == "" {
		return model.Summary{}, errors.New("empty username/email")
	}
	if len(password) < minPasswordLen {
		return model.Summary{}, errs.ErrWeakPassword
	}
	if _, err := model.ParseRole(string(role)); err != nil {
		return model.Summary{}, err
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return model.Summary{}, err
	}
	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return model.Summary{}, err
	}
	verifyTok, err := pkgcrypto.NewOpaqueToken()
	if err != nil {
		return model.Summary{}, err
	}

	ident := &model.Identity{
		ID:                uid,
		TenantID:          tenantID,
		Username:          username,
		Email:             email,
		PwdHash:           pkgcrypto.HashPassword([]byte(password), salt),
		SaltAuth:          salt,
		Role:              role,
		Enabled:           true,
		EmailVerified:     false,
		VerificationToken: verifyTok,
	}
	if err := s.idents.Create(ctx, ident); err != nil {
		return model.Summary{}, err
	}

	s.sendMail("verification", func(ctx context.Context) error {
		return s.mail.Mailer().SendEmailVerification(ctx, ident, verifyTok)
	})
	return ident.Summarize(), nil
}

// Login authenticates an identity within the context tenant.
//
// Unknown identifier and wrong password both surface as
// errs.ErrInvalidCredentials so the error never reveals whether an account
// exists. The unverified-email check runs after the identity is loaded and
// before the password check, so verification-blocked logins never move the
// failed-attempt counter. The attempt that crosses the lockout threshold
// still reports invalid credentials; the lock is observed on the next
// attempt.
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password string) (model.Tokens, model.Summary, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		obs.ObserveLogin(obs.LoginError)
		return model.Tokens{}, model.Summary{}, err
	}
	if identifier == "" || password == "" {
		obs.ObserveLogin(obs.LoginInvalidCredentials)
		return model.Tokens{}, model.Summary{}, errs.ErrInvalidCredentials
	}

	ident, err := s.idents.GetByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			obs.ObserveLogin(obs.LoginInvalidCredentials)
			return model.Tokens{}, model.Summary{}, errs.ErrInvalidCredentials
		}
		obs.ObserveLogin(obs.LoginError)
		return model.Tokens{}, model.Summary{}, err
	}

	if st := lockout.Evaluate(ident.FailedAttempts, ident.LockedUntil, time.Now()); st.Locked {
		obs.ObserveLogin(obs.LoginLocked)
		return model.Tokens{}, model.Summary{}, errs.ErrAccountLocked
	}
	if !ident.Enabled {
		obs.ObserveLogin(obs.LoginInvalidCredentials)
		return model.Tokens{}, model.Summary{}, errs.ErrInvalidCredentials
	}
	if !ident.EmailVerified {
		obs.ObserveLogin(obs.LoginUnverified)
		return model.Tokens{}, model.Summary{}, errs.ErrEmailNotVerified
	}

	if !pkgcrypto.VerifyPassword([]byte(password), ident.SaltAuth, ident.PwdHash) {
		lockedNow, lockFor, ferr := s.rec.Failure(ctx, tenantID, ident.ID)
		if ferr != nil {
			// a lost increment must not turn a failed login into anything
			// but a failed login
			s.log.Error("lockout increment failed",
				zap.String("tenant", tenantID), zap.Stringer("id", ident.ID), zap.Error(ferr))
		}
		if lockedNow {
			s.sendMail("account_locked", func(ctx context.Context) error {
				return s.mail.Mailer().SendAccountLockedEmail(ctx, ident, lockFor)
			})
		}
		obs.ObserveLogin(obs.LoginInvalidCredentials)
		return model.Tokens{}, model.Summary{}, errs.ErrInvalidCredentials
	}

	if err := s.rec.Success(ctx, tenantID, ident.ID); err != nil {
		s.log.Warn("lockout reset failed",
			zap.String("tenant", tenantID), zap.Stringer("id", ident.ID), zap.Error(err))
	}

	toks, err := s.issuePair(ident)
	if err != nil {
		obs.ObserveLogin(obs.LoginError)
		return model.Tokens{}, model.Summary{}, err
	}
	obs.ObserveLogin(obs.LoginOK)
	return toks, ident.Summarize(), nil
}

// Refresh validates a refresh token and issues a fresh access token. The
// identity is re-loaded so a disabled or locked account cannot keep minting
// access tokens. The same refresh token is returned unchanged.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	claims, err := s.tokens.Validate(refreshToken, token.KindRefresh)
	if err != nil {
		return model.Tokens{}, err
	}
	if revoked, err := s.revoked.IsRevoked(ctx, refreshToken); err != nil {
		return model.Tokens{}, err
	} else if revoked {
		return model.Tokens{}, errs.ErrInvalidToken
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return model.Tokens{}, errs.ErrInvalidToken
	}
	ctx = tenant.With(ctx, claims.TenantID)
	ident, err := s.idents.GetByID(ctx, claims.TenantID, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, errs.ErrInvalidToken
		}
		return model.Tokens{}, err
	}
	if !ident.Enabled {
		return model.Tokens{}, errs.ErrInvalidToken
	}
	if st := lockout.Evaluate(ident.FailedAttempts, ident.LockedUntil, time.Now()); st.Locked {
		return model.Tokens{}, errs.ErrAccountLocked
	}

	access, exp, err := s.tokens.Issue(ident.ID, ident.TenantID, ident.Role, token.KindAccess)
	if err != nil {
		return model.Tokens{}, err
	}
	obs.ObserveRefresh()
	return model.Tokens{AccessToken: access, RefreshToken: refreshToken, ExpiresAt: exp}, nil
}

// Logout places the presented tokens on the revocation list for their
// remaining lifetimes. Tokens that do not parse, or that have already
// expired, are ignored: logging out twice, or with a dead token, succeeds.
func (s *AuthServiceImpl) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.revokeRemaining(ctx, token.StripBearer(accessToken)); err != nil {
		return err
	}
	if refreshToken != "" {
		return s.revokeRemaining(ctx, refreshToken)
	}
	return nil
}

func (s *AuthServiceImpl) revokeRemaining(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	claims, err := s.tokens.Peek(raw)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, raw, ttl); err != nil {
		return err
	}
	obs.ObserveRevocation()
	return nil
}

// Authenticate validates a bearer access token and checks the revocation
// list before trusting the claims.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, bearer string) (*token.Claims, error) {
	raw := token.StripBearer(bearer)
	claims, err := s.tokens.Validate(raw, token.KindAccess)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, raw)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

// VerifyEmail marks the owning identity's email verified and burns the token.
func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, tok string) error {
	if tok == "" {
		return errs.ErrInvalidToken
	}
	if _, err := s.idents.ConsumeVerificationToken(ctx, tok); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrInvalidToken
		}
		return err
	}
	return nil
}

// ResendVerification issues a fresh verification token for an unverified
// account in the context tenant. Unknown or already-verified addresses get
// the same silent success.
func (s *AuthServiceImpl) ResendVerification(ctx context.Context, email string) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	ident, err := s.idents.GetByIdentifier(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	if ident.EmailVerified {
		return nil
	}

	verifyTok, err := pkgcrypto.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.idents.SetVerificationToken(ctx, tenantID, ident.ID, verifyTok); err != nil {
		return err
	}
	s.sendMail("verification", func(ctx context.Context) error {
		return s.mail.Mailer().SendEmailVerification(ctx, ident, verifyTok)
	})
	return nil
}

// InitiatePasswordReset stores a one-hour single-use reset token and mails
// it. The email lookup is cross-tenant because the caller does not know the
// tenant yet. An unknown address gets the same silent success.
func (s *AuthServiceImpl) InitiatePasswordReset(ctx context.Context, email string) error {
	ident, err := s.idents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}

	resetTok, err := pkgcrypto.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.idents.SetResetToken(ctx, ident.TenantID, ident.ID, resetTok, time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}
	s.sendMail("password_reset", func(ctx context.Context) error {
		return s.mail.Mailer().SendPasswordResetEmail(ctx, ident, resetTok)
	})
	return nil
}

// ResetPassword consumes a pending, unexpired reset token and rewrites the
// password. The consume is a conditional update, so a replayed token fails.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, tok, newPassword string) error {
	if tok == "" {
		return errs.ErrInvalidToken
	}
	if len(newPassword) < minPasswordLen {
		return errs.ErrWeakPassword
	}
	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return err
	}
	hash := pkgcrypto.HashPassword([]byte(newPassword), salt)

	ident, err := s.idents.ConsumeResetToken(ctx, tok, hash, salt)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrInvalidToken
		}
		return err
	}
	s.sendMail("password_changed", func(ctx context.Context) error {
		return s.mail.Mailer().SendPasswordChangeConfirmation(ctx, ident)
	})
	return nil
}

// ChangePassword re-verifies the current password before rewriting it.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	if len(next) < minPasswordLen {
		return errs.ErrWeakPassword
	}
	ident, err := s.idents.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !pkgcrypto.VerifyPassword([]byte(current), ident.SaltAuth, ident.PwdHash) {
		return errs.ErrInvalidCredentials
	}

	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return err
	}
	if err := s.idents.UpdatePassword(ctx, tenantID, id, pkgcrypto.HashPassword([]byte(next), salt), salt); err != nil {
		return err
	}
	s.sendMail("password_changed", func(ctx context.Context) error {
		return s.mail.Mailer().SendPasswordChangeConfirmation(ctx, ident)
	})
	return nil
}

func (s *AuthServiceImpl) issuePair(ident *model.Identity) (model.Tokens, error) {
	access, exp, err := s.tokens.Issue(ident.ID, ident.TenantID, ident.Role, token.KindAccess)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, _, err := s.tokens.Issue(ident.ID, ident.TenantID, ident.Role, token.KindRefresh)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// sendMail dispatches asynchronously when a dispatcher is configured.
func (s *AuthServiceImpl) sendMail(kind string, send func(ctx context.Context) error) {
	if s.mail == nil {
		return
	}
	s.mail.Go(kind, send)
}
