package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/edupage/campusauth/internal/errs"
	"github.com/edupage/campusauth/internal/model"
	"github.com/edupage/campusauth/internal/service"
	"github.com/edupage/campusauth/internal/tenant"
	"github.com/edupage/campusauth/internal/token"
)

// stubAuth scripts the service layer per test. Unset methods fail loudly.
type stubAuth struct {
	register       func(ctx context.Context, username, email, password string, role model.Role) (model.Summary, error)
	login          func(ctx context.Context, identifier, password string) (model.Tokens, model.Summary, error)
	refresh        func(ctx context.Context, refreshToken string) (model.Tokens, error)
	logout         func(ctx context.Context, accessToken, refreshToken string) error
	authenticate   func(ctx context.Context, bearer string) (*token.Claims, error)
	verifyEmail    func(ctx context.Context, tok string) error
	resendVerify   func(ctx context.Context, email string) error
	initiateReset  func(ctx context.Context, email string) error
	resetPassword  func(ctx context.Context, tok, newPassword string) error
	changePassword func(ctx context.Context, id uuid.UUID, current, next string) error
}

var _ service.AuthService = (*stubAuth)(nil)

var errStubUnset = errors.New("stub method not set")

func (s *stubAuth) Register(ctx context.Context, username, email, password string, role model.Role) (model.Summary, error) {
	if s.register == nil {
		return model.Summary{}, errStubUnset
	}
	return s.register(ctx, username, email, password, role)
}

func (s *stubAuth) Login(ctx context.Context, identifier, password string) (model.Tokens, model.Summary, error) {
	if s.login == nil {
		return model.Tokens{}, model.Summary{}, errStubUnset
	}
	return s.login(ctx, identifier, password)
}

func (s *stubAuth) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	if s.refresh == nil {
		return model.Tokens{}, errStubUnset
	}
	return s.refresh(ctx, refreshToken)
}

func (s *stubAuth) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if s.logout == nil {
		return errStubUnset
	}
	return s.logout(ctx, accessToken, refreshToken)
}

func (s *stubAuth) Authenticate(ctx context.Context, bearer string) (*token.Claims, error) {
	if s.authenticate == nil {
		return nil, errStubUnset
	}
	return s.authenticate(ctx, bearer)
}

func (s *stubAuth) VerifyEmail(ctx context.Context, tok string) error {
	if s.verifyEmail == nil {
		return errStubUnset
	}
	return s.verifyEmail(ctx, tok)
}

func (s *stubAuth) ResendVerification(ctx context.Context, email string) error {
	if s.resendVerify == nil {
		return errStubUnset
	}
	return s.resendVerify(ctx, email)
}

func (s *stubAuth) InitiatePasswordReset(ctx context.Context, email string) error {
	if s.initiateReset == nil {
		return errStubUnset
	}
	return s.initiateReset(ctx, email)
}

func (s *stubAuth) ResetPassword(ctx context.Context, tok, newPassword string) error {
	if s.resetPassword == nil {
		return errStubUnset
	}
	return s.resetPassword(ctx, tok, newPassword)
}

func (s *stubAuth) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if s.changePassword == nil {
		return errStubUnset
	}
	return s.changePassword(ctx, id, current, next)
}

func newTestServer(auth *stubAuth) http.Handler {
	return New(auth, nil, zap.NewNop(), "test").Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLogin_OKAndTenantFromBody(t *testing.T) {
	t.Parallel()
	var gotTenant string
	auth := &stubAuth{
		login: func(ctx context.Context, identifier, password string) (model.Tokens, model.Summary, error) {
			gotTenant, _ = tenant.From(ctx)
			return model.Tokens{
					AccessToken:  "acc",
					RefreshToken: "ref",
					ExpiresAt:    time.Now().Add(time.Minute),
				}, model.Summary{Username: identifier, TenantID: gotTenant, Role: model.RoleTeacher},
				nil
		},
	}
	rec := doJSON(t, newTestServer(auth), http.MethodPost, "/v1/auth/login",
		`{"tenant_id":"school-a","identifier":"alice","password":"pw"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if gotTenant != "school-a" {
		t.Fatalf("service saw tenant %q", gotTenant)
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.AccessToken != "acc" || resp.RefreshToken != "ref" {
		t.Fatalf("bad response: %+v", resp)
	}
	if resp.ExpiresIn <= 0 || resp.ExpiresIn > 60 {
		t.Fatalf("expires_in = %d", resp.ExpiresIn)
	}
}

func TestLogin_MissingTenant(t *testing.T) {
	t.Parallel()
	rec := doJSON(t, newTestServer(&stubAuth{}), http.MethodPost, "/v1/auth/login",
		`{"identifier":"alice","password":"pw"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want int
	}{
		{errs.ErrInvalidCredentials, http.StatusUnauthorized},
		{errs.ErrAccountLocked, http.StatusLocked},
		{errs.ErrEmailNotVerified, http.StatusForbidden},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		auth := &stubAuth{
			login: func(context.Context, string, string) (model.Tokens, model.Summary, error) {
				return model.Tokens{}, model.Summary{}, tc.err
			},
		}
		rec := doJSON(t, newTestServer(auth), http.MethodPost, "/v1/auth/login",
			`{"tenant_id":"school-a","identifier":"alice","password":"pw"}`, nil)
		if rec.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	t.Parallel()
	auth := &stubAuth{
		refresh: func(context.Context, string) (model.Tokens, error) {
			return model.Tokens{}, errs.ErrInvalidToken
		},
	}
	rec := doJSON(t, newTestServer(auth), http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"stale"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLogout_NoBodyAndHeaderPassthrough(t *testing.T) {
	t.Parallel()
	var gotAccess, gotRefresh string
	auth := &stubAuth{
		logout: func(_ context.Context, accessToken, refreshToken string) error {
			gotAccess, gotRefresh = accessToken, refreshToken
			return nil
		},
	}
	rec := doJSON(t, newTestServer(auth), http.MethodPost, "/v1/auth/logout", "",
		map[string]string{"Authorization": "Bearer abc"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if gotAccess != "Bearer abc" || gotRefresh != "" {
		t.Fatalf("passthrough: access=%q refresh=%q", gotAccess, gotRefresh)
	}
}

func TestPasswordReset_AlwaysAccepted(t *testing.T) {
	t.Parallel()
	auth := &stubAuth{
		initiateReset: func(context.Context, string) error { return nil },
	}
	rec := doJSON(t, newTestServer(auth), http.MethodPost, "/v1/auth/password-reset",
		`{"email":"nobody@x.example"}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
}

func TestRegister_Conflict(t *testing.T) {
	t.Parallel()
	auth := &stubAuth{
		register: func(context.Context, string, string, string, model.Role) (model.Summary, error) {
			return model.Summary{}, errs.ErrAlreadyExists
		},
	}
	rec := doJSON(t, newTestServer(auth), http.MethodPost, "/v1/auth/register",
		`{"tenant_id":"school-a","username":"alice","email":"a@a","password":"long-enough","role":"student"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestMe_RequiresAndUsesBearer(t *testing.T) {
	t.Parallel()
	uid := uuid.Must(uuid.NewV4())
	auth := &stubAuth{
		authenticate: func(_ context.Context, bearer string) (*token.Claims, error) {
			if bearer != "Bearer good" {
				return nil, errs.ErrInvalidToken
			}
			return &token.Claims{
				TenantID: "school-a",
				Role:     "teacher",
				Kind:     token.KindAccess,
				RegisteredClaims: jwt.RegisteredClaims{
					Subject: uid.String(),
				},
			}, nil
		},
	}
	h := newTestServer(auth)

	if rec := doJSON(t, h, http.MethodGet, "/v1/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d, want 401", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/v1/me", "",
		map[string]string{"Authorization": "Bearer bad"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, "/v1/me", "",
		map[string]string{"Authorization": "Bearer good"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		ID       uuid.UUID `json:"id"`
		TenantID string    `json:"tenant_id"`
		Role     string    `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != uid || body.TenantID != "school-a" || body.Role != "teacher" {
		t.Fatalf("bad principal: %+v", body)
	}
}

func TestChangePassword_PrincipalID(t *testing.T) {
	t.Parallel()
	uid := uuid.Must(uuid.NewV4())
	var gotID uuid.UUID
	auth := &stubAuth{
		authenticate: func(context.Context, string) (*token.Claims, error) {
			return &token.Claims{
				TenantID:         "school-a",
				Role:             "staff",
				Kind:             token.KindAccess,
				RegisteredClaims: jwt.RegisteredClaims{Subject: uid.String()},
			}, nil
		},
		changePassword: func(_ context.Context, id uuid.UUID, _, _ string) error {
			gotID = id
			return nil
		},
	}
	rec := doJSON(t, newTestServer(auth), http.MethodPost, "/v1/me/password",
		`{"current_password":"old-password","new_password":"new-password"}`,
		map[string]string{"Authorization": "Bearer good"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if gotID != uid {
		t.Fatalf("service saw id %s, want %s", gotID, uid)
	}
}

func TestRecover_PanicBecomes500(t *testing.T) {
	t.Parallel()
	auth := &stubAuth{
		verifyEmail: func(context.Context, string) error { panic("boom") },
	}
	rec := doJSON(t, newTestServer(auth), http.MethodPost, "/v1/auth/verify-email",
		`{"token":"x"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	rec := doJSON(t, newTestServer(&stubAuth{}), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	t.Parallel()
	srv := New(&stubAuth{}, ReadyProbeFunc(func(context.Context) error {
		return errors.New("db down")
	}), zap.NewNop(), "test")
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
