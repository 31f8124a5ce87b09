// Package token issues and validates signed access/refresh tokens.
//
// Validation here is stateless: signature, expiry, and token kind only.
// Revocation is a separate, explicitly invoked check (see the revocation
// package) so the hot path never requires a store lookup.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/edupage/campusauth/internal/errs"
	"github.com/edupage/campusauth/internal/model"
)

// Kind distinguishes access tokens from refresh tokens. A refresh token is
// never accepted where an access token is required, and vice versa.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the signed claim set carried by every issued token.
type Claims struct {
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens with kind-dependent TTLs.
type Service struct {
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService constructs a token service. accessTTL is short (minutes to
// hours), refreshTTL long (days).
func NewService(signKey []byte, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if len(signKey) == 0 {
		return nil, errors.New("empty signing key")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &Service{signKey: signKey, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// TTL returns the lifetime for the given kind.
func (s *Service) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

// Issue creates a signed token of the given kind for the identity.
func (s *Service) Issue(userID uuid.UUID, tenantID string, role model.Role, kind Kind) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.TTL(kind))
	claims := Claims{
		TenantID: tenantID,
		Role:     string(role),
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// Validate verifies signature and expiry and checks that the token kind
// matches the caller's expectation. Any failure maps to errs.ErrInvalidToken.
func (s *Service) Validate(raw string, want Kind) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, errs.ErrInvalidToken
	}
	if claims.Kind != want {
		return nil, errs.ErrInvalidToken
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

// Peek decodes claims without verifying the signature. Used for cheap claim
// reads (subject, remaining lifetime) where full validation is not needed,
// such as computing a denylist TTL at logout.
func (s *Service) Peek(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

// StripBearer removes an optional "Bearer " prefix from an Authorization value.
func StripBearer(v string) string {
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		return v[7:]
	}
	return v
}
