package handlers

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/utils"
	"golang.org/x/time/rate"
)

type contextKey string

const claimsContextKey contextKey = "apiClaims"

// AuthMiddleware requires a valid API token carrying one of roles.
func AuthMiddleware(auth *security.AuthService, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
				utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenString == "" {
				utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ValidateToken(tokenString)
			if err != nil {
				log.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
				log.Warn("AuthMiddleware: Role not allowed", "path", r.URL.Path, "subject", claims.Subject, "role", claims.Role)
				utils.SendJSONError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.APIClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*security.APIClaims)
	return claims, ok
}

// RateLimitMiddleware rejects requests once limiter runs dry.
func RateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.FromContext(r.Context()).Warn("Rate limit exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"remoteAddr", r.RemoteAddr)
				utils.SendJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
