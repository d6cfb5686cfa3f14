package handlers

import (
	"net/http"

	"github.com/monitoringhub/auth-service/internal/jwt"
	"github.com/monitoringhub/auth-service/internal/middlewares"
)

// VerifyResponse represents a successful token verification response
// swagger:model VerifyResponse
type VerifyResponse struct {
	// Always true for a verified token
	Valid bool `json:"valid"`

	// Decoded token claims
	User jwt.Claims `json:"user"`
}

// NewVerifyHandler returns an HTTP handler that reports the claims of the
// authenticated request. Authentication itself happens in the middleware
// chain; reaching this handler means the token already verified.
// @Summary Verify token
// @Description Returns the decoded claims of the presented bearer token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.VerifyResponse "Token is valid"
// @Failure 401 {object} handlers.ErrorResponse "Missing, malformed or expired token"
// @Router /verify [get]
func NewVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middlewares.GetClaimsFromContext(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
			return
		}

		writeJSON(w, http.StatusOK, VerifyResponse{
			Valid: true,
			User:  *claims,
		})
	}
}
