package handlers

import (
	"context"
	"net/http"

	"github.com/monitoringhub/auth-service/internal/logger"
	"github.com/monitoringhub/auth-service/internal/middlewares"
	"github.com/monitoringhub/auth-service/internal/models"
)

// Logouter defines the interface that the logout service must implement.
type Logouter interface {
	Logout(ctx context.Context, user models.AuthUser, ip, userAgent string) error
}

// LogoutResponse represents a successful logout response
// swagger:model LogoutResponse
type LogoutResponse struct {
	// Success message
	// default: Logged out
	Message string `json:"message"`
}

// NewLogoutHandler returns an HTTP handler for user logout. Outstanding
// tokens of the user are revoked when a revocation store is configured.
// @Summary User logout
// @Description Records the logout and revokes the user's outstanding tokens
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.LogoutResponse "Logged out"
// @Failure 401 {object} handlers.ErrorResponse "Missing, malformed or expired token"
// @Router /logout [post]
func NewLogoutHandler(svc Logouter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middlewares.GetClaimsFromContext(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
			return
		}

		user := models.AuthUser{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
		if err := svc.Logout(r.Context(), user, clientIP(r), r.UserAgent()); err != nil {
			logger.Log.Errorw("internal server error", "err", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, LogoutResponse{Message: "Logged out"})
	}
}
