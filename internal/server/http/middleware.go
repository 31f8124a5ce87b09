package httpserver

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/edupage/campusauth/internal/model"
	"github.com/edupage/campusauth/internal/tenant"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// WithLogging logs method, path, status and duration for every request.
// No payloads, metadata only.
func WithLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.code),
			zap.Duration("dur", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// WithRecover converts a handler panic into a 500 instead of killing the
// connection.
func WithRecover(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic",
					zap.Any("reason", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withAuth validates the bearer token, checks revocation, and installs the
// principal and tenant into the request context. The tenant the downstream
// handlers see always comes from the token claims, never from the client's
// request body.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer := r.Header.Get("Authorization")
		if bearer == "" {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		claims, err := s.auth.Authenticate(r.Context(), bearer)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		uid, err := uuid.FromString(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := tenant.With(r.Context(), claims.TenantID)
		ctx = WithPrincipal(ctx, Principal{
			UserID:   uid,
			TenantID: claims.TenantID,
			Role:     model.Role(claims.Role),
		})
		next(w, r.WithContext(ctx))
	}
}
