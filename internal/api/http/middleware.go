package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"evently-backend/internal/logger"
	"evently-backend/internal/security"
)

// RequireAuth validates the bearer access token and stores its claims on the request context.
func RequireAuth(tm security.TokenManager) mux.MiddlewareFunc {
	return authenticate(tm, true)
}

// OptionalAuth is RequireAuth for routes that also serve anonymous callers.
// A request without an Authorization header passes through without claims;
// a header carrying a bad token is still rejected.
func OptionalAuth(tm security.TokenManager) mux.MiddlewareFunc {
	return authenticate(tm, false)
}

func authenticate(tm security.TokenManager, required bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && !required {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := tm.ValidateToken(token)
			if err != nil {
				logger.Debug("Rejected access token", "path", r.URL.Path, "error", err)
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LogRequests logs one line per request with its status and latency.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
