package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/api/problem"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/auth"
)

type claimsKeyType string

const claimsKey claimsKeyType = "sessionClaims"

func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the session claims set by RequireUser, or nil.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// SessionChecker reports whether a token's session is still the account's
// current one.
type SessionChecker interface {
	SessionValid(ctx context.Context, userID, session string) (bool, error)
}

// RequireUser validates the bearer token from the Authorization header and
// stores its claims on the request context. When sessions is not nil the
// token's session must also match the account's current session.
func RequireUser(manager *auth.JWTManager, sessions SessionChecker, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing authorization header", problem.ErrUnauthorized, env)
				return
			}
			token, err := auth.TokenFromHeader(header)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid authorization format", err, env)
				return
			}
			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid token", err, env)
				return
			}
			if sessions != nil {
				ok, err := sessions.SessionValid(r.Context(), claims.UserID(), claims.Session)
				if err != nil {
					problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeUnavailable, "Service unavailable", err, env)
					return
				}
				if !ok {
					problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Session expired", auth.ErrInvalidToken, env)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin rejects sessions that were not issued to an admin account.
// It must run after RequireUser.
func RequireAdmin(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}
			if !claims.IsAdmin() {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", problem.ErrForbidden, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
