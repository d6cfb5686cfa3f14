package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/monitoringhub/auth-service/internal/jwt"
	"github.com/monitoringhub/auth-service/internal/logger"
)

// Authorizer defines the minimal token-checking interface needed by the
// middleware.
type Authorizer interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
	Authorize(ctx context.Context, rawToken, requiredRole string) (*jwt.Claims, error)
}

// RevocationChecker reports whether a token has been revoked since it was
// issued. Optional; a nil checker disables revocation.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, userID uuid.UUID, issuedAt time.Time) (bool, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// claimsKey is an unexported type for the claims context key.
type claimsKey struct{}

// SetClaimsToContext stores verified claims in the context.
func SetClaimsToContext(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaimsFromContext retrieves the verified claims placed in the context
// by AuthMiddleware. Returns nil if the request was not authenticated.
func GetClaimsFromContext(ctx context.Context) *jwt.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims
}

// AuthMiddleware returns a middleware that authenticates the request: it
// extracts the bearer token, verifies it, optionally checks revocation,
// and stores the claims in the request context. Any failure is a 401.
//
// Role enforcement is a separate, later step (RequireRole); the chain is
// always authenticate first, then authorize.
func AuthMiddleware(auth Authorizer, revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, err := auth.GetTokenFromRequest(ctx, r)
			if err != nil {
				logger.Log.Infow("authentication failed", "err", err)
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := auth.Authorize(ctx, tokenString, "")
			if err != nil {
				logger.Log.Infow("authentication failed", "err", err)
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(ctx, claims.UserID, claims.IssuedAt)
				if err != nil {
					// Revocation storage trouble must not lock everyone
					// out; the token still carries a valid signature.
					logger.Log.Errorw("revocation check failed", "err", err)
				} else if revoked {
					logger.Log.Infow("rejected revoked token", "username", claims.Username)
					writeError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(SetClaimsToContext(ctx, claims)))
		})
	}
}

// RequireRole returns a middleware that enforces a role on an already
// authenticated request. It must be chained after AuthMiddleware; a
// request with no claims in context is a 401, a role mismatch a 403.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if claims.Role != role {
				logger.Log.Infow("authorization failed",
					"username", claims.Username,
					"role", claims.Role,
					"required", role,
				)
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
