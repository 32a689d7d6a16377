package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/httputil"
	"curio/pkg/requestcontext"
)

// TokenValidator resolves a bearer token to a caller account.
type TokenValidator interface {
	Validate(tokenString string) (domain.AccountID, error)
}

// RequireAuth validates the Authorization header and stamps the caller's
// account into the request context. Services downstream read it via
// requestcontext.Caller.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			caller, err := validator.Validate(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

// RequireAdminToken guards administrative routes with a shared secret
// header. Admin calls additionally act under the administrator identity.
func RequireAdminToken(adminToken string, admin domain.AccountID, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Admin-Token") != adminToken {
				logger.WarnContext(r.Context(), "forbidden admin access",
					"request_id", requestcontext.RequestID(r.Context()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(r.Context(), admin)))
		})
	}
}
