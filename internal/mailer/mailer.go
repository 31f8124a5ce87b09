// Package mailer defines the outbound email collaborator and an asynchronous
// dispatcher. Email delivery never blocks an authentication operation and a
// delivery failure never surfaces as an authentication failure: errors are
// logged and dropped.
package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edupage/campusauth/internal/model"
)

// Mailer is the external email delivery collaborator.
type Mailer interface {
	SendEmailVerification(ctx context.Context, ident *model.Identity, tok string) error
	SendPasswordResetEmail(ctx context.Context, ident *model.Identity, tok string) error
	SendPasswordChangeConfirmation(ctx context.Context, ident *model.Identity) error
	SendAccountLockedEmail(ctx context.Context, ident *model.Identity, lockFor time.Duration) error
}

// LogMailer is the default Mailer: it records the would-be delivery in the
// log and nothing else. Deployments plug a real SMTP/provider client instead.
type LogMailer struct{ log *zap.Logger }

// NewLogMailer constructs a logging mailer.
func NewLogMailer(log *zap.Logger) *LogMailer { return &LogMailer{log: log} }

func (m *LogMailer) SendEmailVerification(_ context.Context, ident *model.Identity, _ string) error {
	m.log.Info("email verification mail",
		zap.String("tenant", ident.TenantID), zap.String("to", ident.Email))
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(_ context.Context, ident *model.Identity, _ string) error {
	m.log.Info("password reset mail",
		zap.String("tenant", ident.TenantID), zap.String("to", ident.Email))
	return nil
}

func (m *LogMailer) SendPasswordChangeConfirmation(_ context.Context, ident *model.Identity) error {
	m.log.Info("password change confirmation mail",
		zap.String("tenant", ident.TenantID), zap.String("to", ident.Email))
	return nil
}

func (m *LogMailer) SendAccountLockedEmail(_ context.Context, ident *model.Identity, lockFor time.Duration) error {
	m.log.Info("account locked mail",
		zap.String("tenant", ident.TenantID), zap.String("to", ident.Email),
		zap.Duration("lock_for", lockFor))
	return nil
}
