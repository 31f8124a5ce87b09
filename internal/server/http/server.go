// Package httpserver exposes the authentication service over a JSON HTTP API.
package httpserver

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/edupage/campusauth/internal/obs"
	"github.com/edupage/campusauth/internal/service"
)

// ReadyProbe reports whether backing stores are reachable.
type ReadyProbe interface {
	Check(ctx context.Context) error
}

// ReadyProbeFunc adapts a function to ReadyProbe.
type ReadyProbeFunc func(ctx context.Context) error

func (f ReadyProbeFunc) Check(ctx context.Context) error { return f(ctx) }

// Server is the HTTP layer over the authentication service.
type Server struct {
	mux     *http.ServeMux
	auth    service.AuthService
	ready   ReadyProbe
	log     *zap.Logger
	version string
}

// New wires all routes. ready may be nil; /readyz then always reports ready.
func New(auth service.AuthService, ready ReadyProbe, log *zap.Logger, version string) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		auth:    auth,
		ready:   ready,
		log:     log,
		version: version,
	}

	s.mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /v1/auth/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /v1/auth/logout", s.handleLogout)
	s.mux.HandleFunc("POST /v1/auth/password-reset", s.handlePasswordReset)
	s.mux.HandleFunc("POST /v1/auth/password-reset/confirm", s.handlePasswordResetConfirm)
	s.mux.HandleFunc("POST /v1/auth/verify-email", s.handleVerifyEmail)
	s.mux.HandleFunc("POST /v1/auth/verify-email/resend", s.handleResendVerification)

	s.mux.HandleFunc("GET /v1/me", s.withAuth(s.handleMe))
	s.mux.HandleFunc("POST /v1/me/password", s.withAuth(s.handleChangePassword))

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", obs.Handler())

	return s
}

// Handler returns the full middleware chain around the route mux.
func (s *Server) Handler() http.Handler {
	return WithLogging(s.log, WithRecover(s.log, obs.Instrument(s.mux)))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "campusauth",
		"version": s.version,
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Check(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
