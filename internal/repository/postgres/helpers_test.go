package postgres

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/edupage/campusauth/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var identityColNames = []string{
	"id", "tenant_id", "username", "email", "pwd_hash", "salt_auth", "role", "enabled",
	"email_verified", "failed_attempts", "locked_until", "verification_token",
	"reset_token", "reset_expiry", "last_login_at", "created_at",
}

func testIdentity() *model.Identity {
	return &model.Identity{
		ID:            uuid.Must(uuid.NewV4()),
		TenantID:      "school-A",
		Username:      "alice",
		Email:         "alice@example.org",
		PwdHash:       []byte("h"),
		SaltAuth:      []byte("s"),
		Role:          model.RoleTeacher,
		Enabled:       true,
		EmailVerified: true,
	}
}

func timeNowPlusHour() time.Time { return time.Now().Add(time.Hour) }

func identityRows(ident *model.Identity) *pgxmock.Rows {
	epoch := time.Unix(0, 0)
	return pgxmock.NewRows(identityColNames).AddRow(
		ident.ID, ident.TenantID, ident.Username, ident.Email,
		ident.PwdHash, ident.SaltAuth, string(ident.Role), ident.Enabled,
		ident.EmailVerified, ident.FailedAttempts, epoch,
		ident.VerificationToken, ident.ResetToken, epoch,
		epoch, time.Now(),
	)
}
