package handlers

import (
	"net/http"

	"github.com/monitoringhub/auth-service/internal/jwt"
	"github.com/monitoringhub/auth-service/internal/middlewares"
)

// ProfileResponse represents the authenticated user's profile view
// swagger:model ProfileResponse
type ProfileResponse struct {
	// Decoded token claims
	User jwt.Claims `json:"user"`
}

// NewProfileHandler returns an HTTP handler for the authenticated user's
// own profile, as carried in the token claims.
// @Summary Get profile
// @Description Returns the profile of the authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.ProfileResponse "Profile returned"
// @Failure 401 {object} handlers.ErrorResponse "Missing, malformed or expired token"
// @Router /profile [get]
func NewProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middlewares.GetClaimsFromContext(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
			return
		}

		writeJSON(w, http.StatusOK, ProfileResponse{User: *claims})
	}
}
